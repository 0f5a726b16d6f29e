package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"psp.com/arbitro-quiz/internal/solver"
)

// ExamPDF renders exam as an A4 report: grade, per-question table and the
// details of every failed question.
func ExamPDF(w io.Writer, exam *solver.Exam, date time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, tr("Informe de examen"), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Tipo: %s | Fecha: %s", exam.Kind, date.Format("2006-01-02 15:04"))), "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, tr(Grade(exam.Score, exam.Total)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Respondidas desde el banco: %d | Al azar: %d | Entradas obsoletas: %d",
		exam.Count(solver.SourceResolved), exam.Count(solver.SourceGuessed), len(exam.Stale()))), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	widths := []float64{10, 112, 16, 22, 30}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"#", "Pregunta", "Elegida", "Fuente", "Resultado"} {
		align := "C"
		if i == 1 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, it := range exam.Items {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, fit(pdf, tr(it.Text), widths[1]-2), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, it.ChosenLetter(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, it.Source.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, it.Verdict.String(), "1", 1, "C", false, 0, "")
	}

	if failed := exam.Failed(); len(failed) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Preguntas falladas", "", 1, "L", false, 0, "")
		for _, it := range failed {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d) %s", it.Index+1, it.Text)), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("Elegida: %s. %s", it.ChosenLetter(), it.ChosenText())), "", "L", false)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("Correcta: %s. %s", correctLetter(it), it.CorrectText)), "", "L", false)
			pdf.Ln(2)
		}
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "Examen: "+exam.ID, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render exam report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// fit shortens s with an ellipsis until it fits width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
