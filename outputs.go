package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"psp.com/arbitro-quiz/internal/export"
	"psp.com/arbitro-quiz/internal/quiz"
)

// outputs are the export targets shared by extract and export.
type outputs struct {
	csv, json, xlsx, sqlite string
}

func (o *outputs) register(fs *flag.FlagSet) {
	fs.StringVar(&o.csv, "csv", "", "write resolved questions as CSV")
	fs.StringVar(&o.json, "json", "", "write resolved questions as JSON")
	fs.StringVar(&o.xlsx, "xlsx", "", "write resolved questions as an Excel workbook")
	fs.StringVar(&o.sqlite, "sqlite", "", "write resolved questions to a SQLite database")
}

func (o *outputs) any() bool { return o.csv != "" || o.json != "" || o.xlsx != "" || o.sqlite != "" }

func (o *outputs) write(ctx context.Context, recs []quiz.AnswerRecord, stdout io.Writer, logger *slog.Logger) error {
	n := len(export.Resolved(recs))
	if o.csv != "" {
		if err := writeFile(o.csv, func(w io.Writer) error { return export.WriteCSV(w, recs) }); err != nil {
			return fmt.Errorf("write CSV: %w", err)
		}
		fmt.Fprintf(stdout, "CSV written: %s (%d questions)\n", o.csv, n)
	}
	if o.json != "" {
		if err := writeFile(o.json, func(w io.Writer) error { return export.WriteJSON(w, recs) }); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Fprintf(stdout, "JSON written: %s (%d questions)\n", o.json, n)
	}
	if o.xlsx != "" {
		if err := export.WriteXLSX(o.xlsx, recs); err != nil {
			return fmt.Errorf("write XLSX: %w", err)
		}
		fmt.Fprintf(stdout, "XLSX written: %s (%d questions)\n", o.xlsx, n)
	}
	if o.sqlite != "" {
		if err := export.WriteSQLite(ctx, o.sqlite, recs); err != nil {
			return fmt.Errorf("write SQLite: %w", err)
		}
		fmt.Fprintf(stdout, "SQLite written: %s (%d questions)\n", o.sqlite, n)
	}
	if skipped := len(recs) - n; skipped > 0 {
		logger.Warn("unresolved questions left out of exports", "count", skipped)
	}
	return nil
}
