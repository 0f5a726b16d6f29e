package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/deduce"
	"psp.com/arbitro-quiz/internal/export"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/report"
	"psp.com/arbitro-quiz/internal/scraper"
)

func runExtract(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		var out outputs
		var kbPath string
		s, code := setup(cmd, args, stderr, []config.Group{config.Remote, config.Matching}, func(fs *flag.FlagSet) {
			out.register(fs)
			fs.StringVar(&kbPath, "kb", "", "also merge the results into this knowledge base file")
		})
		if s == nil {
			return code
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var bank *questionbank.Bank
		if kbPath != "" {
			bank = questionbank.New(s.logger)
			if _, err := bank.Load(kbPath); err != nil {
				// The extraction itself does not need the bank.
				s.logger.Warn("knowledge base not loaded, results will not be merged", "path", kbPath, "error", err)
				bank = nil
			}
		}

		client := s.client()
		sess, qz, err := scraper.Open(ctx, client, s.cfg.Kind, s.cfg.Count, s.logger)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to fetch quiz: %v\n", err)
			return ExitError
		}
		d := &deduce.Deducer{
			Grader: &scraper.Grader{Transport: client, Session: sess, Questions: qz.Questions},
			Policy: s.cfg.DeducePolicy(),
			Delay:  s.cfg.RequestDelay,
			Logger: s.logger.With("session", sess.ID),
		}
		rep, err := d.Run(ctx, qz.Questions)
		if err != nil {
			fmt.Fprintf(stderr, "Deduction failed: %v\n", err)
			return ExitError
		}
		for _, res := range rep.Unresolved() {
			var anomaly *deduce.AnomalyError
			reason := "no answer"
			if errors.As(res.Err, &anomaly) {
				reason = anomaly.Reason
			} else if res.Err != nil {
				reason = res.Err.Error()
			}
			s.logger.Warn("question left unresolved", "question", res.Question.Label(), "reason", reason)
		}
		recs := rep.Records()
		fmt.Fprintf(stdout, "Baseline %d/%d, %d submissions, %d/%d resolved\n",
			rep.Baseline.Score, rep.Baseline.Total, rep.Submissions, len(recs)-len(rep.Unresolved()), len(recs))

		if out.any() {
			if err := out.write(ctx, recs, stdout, s.logger); err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
		} else {
			if err := report.WriteRecords(stdout, export.Resolved(recs), 1, true); err != nil {
				return ExitError
			}
		}

		if bank != nil {
			for _, rec := range recs {
				bank.Merge(rec)
			}
			if err := bank.Save(kbPath); err != nil {
				fmt.Fprintf(stderr, "Failed to save knowledge base: %v\n", err)
				return ExitError
			}
			st := bank.Stats()
			fmt.Fprintf(stdout, "Knowledge base %s: %d questions (%d resolved)\n", kbPath, st.Total, st.Resolved)
		}
		return ExitOK
	}
}
