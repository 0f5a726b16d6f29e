package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/solver"
)

func question(idx int, text string, opts ...string) quiz.Question {
	q := quiz.Question{Index: idx, ID: text, Text: text}
	for _, o := range opts {
		q.Options = append(q.Options, quiz.Option{Text: o})
	}
	return q
}

func TestQuestionBlock(t *testing.T) {
	q := question(0, "¿Cuántas décimas?", "2 décimas", "3 décimas")
	require.Equal(t, "01) 1) ¿Cuántas décimas?\n   A. 2 décimas\n   B. 3 décimas", QuestionBlock(q, 1, quiz.Unresolved))
	require.Equal(t, "12) 1) ¿Cuántas décimas?\n     A. 2 décimas\n   * B. 3 décimas", RecordBlock(quiz.NewRecord(q, 1), 12))
}

func TestSortForDisplay(t *testing.T) {
	recs := []quiz.AnswerRecord{
		quiz.NewRecord(question(2, "Zeta", "a"), 0),
		quiz.NewRecord(question(0, "beta", "a"), 0),
		quiz.NewRecord(question(0, "Álamo", "a"), 0),
	}
	got := SortForDisplay(recs)
	require.Equal(t, "Álamo", got[0].Question.Text)
	require.Equal(t, "beta", got[1].Question.Text)
	require.Equal(t, "Zeta", got[2].Question.Text)
	require.Equal(t, "Zeta", recs[0].Question.Text, "input untouched")
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	recs := []quiz.AnswerRecord{quiz.NewRecord(question(4, "Uno", "x", "y"), 1)}
	require.NoError(t, WriteRecords(&buf, recs, 3, false))
	require.Equal(t, "03) 5) Uno\n   A. x\n   B. y\n\n", buf.String())
}

func sampleExam() *solver.Exam {
	return &solver.Exam{
		ID:   "exam-1",
		Kind: "testArb",
		Items: []solver.Item{
			{Question: question(0, "¿Saque de esquina?", "Asistente", "Árbitro"), Chosen: 1, Source: solver.SourceResolved, Verdict: solver.VerdictCorrect},
			{Question: question(1, "¿Barrera?", "8 m", "9,15 m"), Chosen: 0, Source: solver.SourceResolved, Verdict: solver.VerdictStale, CorrectText: "9,15 m"},
		},
		Score: 1,
		Total: 2,
		State: solver.StateScored,
	}
}

func TestWriteExam(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExam(&buf, sampleExam()))
	out := buf.String()
	require.Contains(t, out, "---- PREGUNTAS FALLADAS ----")
	require.Contains(t, out, "02) 2) ¿Barrera?\n   * A. 8 m\n     B. 9,15 m\n   -> Elegida: A | Correcta: B  INCORRECTA (stale-entry)")
	require.NotContains(t, out, "Saque")
	require.True(t, strings.HasSuffix(out, "Nota: 1/2  (50.00%)\n"))
}

func TestExamPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExamPDF(&buf, sampleExam(), time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
