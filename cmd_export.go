package main

import (
	"context"
	"fmt"
	"io"

	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/questionbank"
)

func runExport(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		var out outputs
		s, code := setup(cmd, args, stderr, []config.Group{config.KB}, out.register)
		if s == nil {
			return code
		}
		if !out.any() {
			fmt.Fprintln(stderr, "Nothing to do: pass at least one of -csv, -json, -xlsx, -sqlite")
			return ExitUsage
		}

		bank := questionbank.New(s.logger)
		skipped, err := bank.Load(s.cfg.KBPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load knowledge base: %v\n", err)
			return ExitError
		}
		if skipped > 0 {
			fmt.Fprintf(stderr, "%d malformed entries skipped\n", skipped)
		}
		if err := out.write(context.Background(), bank.Records(), stdout, s.logger); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
