package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"psp.com/arbitro-quiz/internal/collector"
	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/report"
)

func runCollect(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		var printBatch, printFinal bool
		s, code := setup(cmd, args, stderr, []config.Group{config.Remote, config.Matching, config.Collect, config.KB}, func(fs *flag.FlagSet) {
			fs.BoolVar(&printBatch, "print-batch", false, "print every new question as it is added")
			fs.BoolVar(&printFinal, "print-final", false, "print the whole knowledge base at the end")
		})
		if s == nil {
			return code
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		bank := questionbank.New(s.logger)
		bank.Policy = s.cfg.MatchPolicy()
		skipped, err := bank.Load(s.cfg.KBPath)
		if err != nil {
			// Saving over an unreadable file would destroy it.
			fmt.Fprintf(stderr, "Failed to load knowledge base: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Knowledge base %s: %d questions loaded, %d skipped\n", s.cfg.KBPath, bank.Len(), skipped)

		ordinal := bank.Len()
		c := &collector.Collector{
			Transport: s.client(),
			Bank:      bank,
			Path:      s.cfg.KBPath,
			Logger:    s.logger,
			Options: collector.Options{
				Kind:           s.cfg.Kind,
				Count:          s.cfg.Count,
				Target:         s.cfg.Target,
				MaxIterations:  s.cfg.MaxIterations,
				StopAfterNoNew: s.cfg.StopAfterNoNew,
				IterationDelay: s.cfg.IterationDelay,
				RequestDelay:   s.cfg.RequestDelay,
				Policy:         s.cfg.DeducePolicy(),
			},
		}
		if printBatch {
			c.OnInsert = func(rec quiz.AnswerRecord) {
				ordinal++
				fmt.Fprintf(stdout, "%s\n\n", report.QuestionBlock(rec.Question, ordinal, quiz.Unresolved))
			}
		}

		sum, err := c.Run(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Collection aborted: %v\n", err)
			return ExitError
		}
		st := bank.Stats()
		fmt.Fprintf(stdout, "Stopped (%s) after %d iterations (%d failed): %d new, %d upgraded, bank %d questions (%d resolved)\n",
			sum.Reason, sum.Iterations, sum.Failed, sum.Inserted, sum.Updated, st.Total, st.Resolved)

		if printFinal {
			if err := report.WriteRecords(stdout, report.SortForDisplay(bank.Records()), 1, false); err != nil {
				return ExitError
			}
		}
		return ExitOK
	}
}
