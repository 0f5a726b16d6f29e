// Package report renders questions and exam results for people: console
// blocks in the layout the quiz site uses, and a PDF exam report.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/solver"
	"psp.com/arbitro-quiz/internal/textnorm"
)

// QuestionBlock renders q as
//
//	01) 1) stem
//	   A. option
//
// where 01 is ordinal and 1 the position of q on its quiz page. When mark
// addresses an option, that option is flagged with an asterisk.
func QuestionBlock(q quiz.Question, ordinal, mark int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%02d) %d) %s", ordinal, q.Index+1, q.Text)
	for i, o := range q.Options {
		bullet := ""
		if q.Valid(mark) {
			bullet = "  "
			if i == mark {
				bullet = "* "
			}
		}
		fmt.Fprintf(&b, "\n   %s%s. %s", bullet, quiz.Letter(i), o.Text)
	}
	return b.String()
}

// RecordBlock renders a record with its correct option flagged.
func RecordBlock(rec quiz.AnswerRecord, ordinal int) string {
	return QuestionBlock(rec.Question, ordinal, rec.Correct)
}

// SortForDisplay returns recs ordered by page position, then text.
func SortForDisplay(recs []quiz.AnswerRecord) []quiz.AnswerRecord {
	out := make([]quiz.AnswerRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Question, out[j].Question
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return textnorm.Normalize(a.Text) < textnorm.Normalize(b.Text)
	})
	return out
}

// WriteRecords prints one block per record separated by blank lines,
// numbering from first.
func WriteRecords(w io.Writer, recs []quiz.AnswerRecord, first int, annotate bool) error {
	for i, rec := range recs {
		block := QuestionBlock(rec.Question, first+i, quiz.Unresolved)
		if annotate {
			block = RecordBlock(rec, first+i)
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", block); err != nil {
			return err
		}
	}
	return nil
}

// Grade formats the final score line.
func Grade(score, total int) string {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(score) / float64(total)
	}
	return fmt.Sprintf("Nota: %d/%d  (%.2f%%)", score, total, pct)
}

// WriteExam prints the failed questions of exam followed by the grade.
func WriteExam(w io.Writer, exam *solver.Exam) error {
	var b strings.Builder
	b.WriteString("==================== RESULTADOS DEL EXAMEN ====================\n\n")
	failed := 0
	for i, it := range exam.Items {
		if !it.Wrong() {
			continue
		}
		if failed == 0 {
			b.WriteString("---- PREGUNTAS FALLADAS ----\n\n")
		}
		failed++
		b.WriteString(QuestionBlock(it.Question, i+1, it.Chosen))
		fmt.Fprintf(&b, "\n   -> Elegida: %s | Correcta: %s  INCORRECTA (%s)\n\n",
			it.ChosenLetter(), correctLetter(it), it.Verdict)
	}
	if failed == 0 {
		b.WriteString("No se han detectado fallos.\n")
	}
	if unknown := countVerdict(exam, solver.VerdictUnknown); unknown > 0 {
		fmt.Fprintf(&b, "Preguntas sin corrección visible: %d\n", unknown)
	}
	b.WriteString(Grade(exam.Score, exam.Total))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func correctLetter(it solver.Item) string {
	for i, o := range it.Options {
		if textnorm.Equal(o.Text, it.CorrectText) {
			return quiz.Letter(i)
		}
	}
	return "?"
}

func countVerdict(exam *solver.Exam, v solver.Verdict) int {
	n := 0
	for _, it := range exam.Items {
		if it.Verdict == v {
			n++
		}
	}
	return n
}
