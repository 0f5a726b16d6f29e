// Package export serializes resolved answer records. Unresolved records are
// never written; texts are written exactly as extracted.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
)

// Resolved filters recs down to the records that may be exported.
func Resolved(recs []quiz.AnswerRecord) []quiz.AnswerRecord {
	var out []quiz.AnswerRecord
	for _, r := range recs {
		if r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// Table lays resolved records out as a header and rows, one option column
// per letter up to the longest question.
func Table(recs []quiz.AnswerRecord) ([]string, [][]string) {
	recs = Resolved(recs)
	width := 0
	for _, r := range recs {
		width = max(width, len(r.Question.Options))
	}
	header := []string{"idx", "id_pregunta", "pregunta"}
	for i := 0; i < width; i++ {
		header = append(header, quiz.Letter(i))
	}
	header = append(header, "correcta", "correcta_texto")

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(r.Question.Index), r.Question.ID, r.Question.Text)
		for i := 0; i < width; i++ {
			if i < len(r.Question.Options) {
				row = append(row, r.Question.Options[i].Text)
			} else {
				row = append(row, "")
			}
		}
		row = append(row, r.Letter(), r.CorrectText)
		rows = append(rows, row)
	}
	return header, rows
}

// WriteCSV writes the table as UTF-8 CSV.
func WriteCSV(w io.Writer, recs []quiz.AnswerRecord) error {
	header, rows := Table(recs)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteJSON writes the resolved records in the knowledge base layout, so the
// output can be loaded as a bank.
func WriteJSON(w io.Writer, recs []quiz.AnswerRecord) error {
	recs = Resolved(recs)
	entries := make([]questionbank.Entry, len(recs))
	for i, r := range recs {
		entries[i] = questionbank.NewEntry(r)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
