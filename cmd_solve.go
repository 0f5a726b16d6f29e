package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/report"
	"psp.com/arbitro-quiz/internal/solver"
)

func runSolve(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		var jsonPath, pdfPath string
		var doPrint bool
		s, code := setup(cmd, args, stderr, []config.Group{config.Remote, config.Matching, config.KB}, func(fs *flag.FlagSet) {
			fs.StringVar(&jsonPath, "json", "", "write the solved exam as JSON")
			fs.StringVar(&pdfPath, "pdf", "", "write the exam report as PDF")
			fs.BoolVar(&doPrint, "print", false, "print failed questions and the grade")
		})
		if s == nil {
			return code
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if _, err := os.Stat(s.cfg.KBPath); err != nil {
			fmt.Fprintf(stderr, "Knowledge base %s: %v\n", s.cfg.KBPath, err)
			return ExitError
		}
		bank := questionbank.New(s.logger)
		bank.Policy = s.cfg.MatchPolicy()
		if _, err := bank.Load(s.cfg.KBPath); err != nil {
			fmt.Fprintf(stderr, "Failed to load knowledge base: %v\n", err)
			return ExitError
		}
		if bank.Stats().Resolved == 0 {
			s.logger.Warn("knowledge base has no resolved questions, every answer will be guessed", "path", s.cfg.KBPath)
		}

		sv := &solver.Solver{
			Transport: s.client(),
			Bank:      bank,
			Kind:      s.cfg.Kind,
			Count:     s.cfg.Count,
			Policy:    s.cfg.MatchPolicy(),
			Logger:    s.logger,
		}
		exam, err := sv.Solve(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Solve failed in state %s: %v\n", exam.State, err)
			return ExitError
		}

		if doPrint || (jsonPath == "" && pdfPath == "") {
			if err := report.WriteExam(stdout, exam); err != nil {
				return ExitError
			}
		}
		if jsonPath != "" {
			err := writeFile(jsonPath, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(exam)
			})
			if err != nil {
				fmt.Fprintf(stderr, "Failed to write %s: %v\n", jsonPath, err)
				return ExitError
			}
			fmt.Fprintf(stdout, "Exam written: %s\n", jsonPath)
		}
		if pdfPath != "" {
			if err := writeFile(pdfPath, func(w io.Writer) error { return report.ExamPDF(w, exam, time.Now()) }); err != nil {
				fmt.Fprintf(stderr, "Failed to write %s: %v\n", pdfPath, err)
				return ExitError
			}
			fmt.Fprintf(stdout, "Report written: %s\n", pdfPath)
		}
		return ExitOK
	}
}
