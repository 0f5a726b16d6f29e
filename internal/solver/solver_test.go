package solver

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/quiztest"
	"psp.com/arbitro-quiz/internal/scraper"
)

func siteQuestions() []quiztest.Question {
	return []quiztest.Question{
		{ID: "201", Text: "¿Cuántas décimas se descuentan?", Options: []string{"2 décimas", "3 décimas", "5 décimas"}, Correct: 1},
		{ID: "202", Text: "El balón está en juego cuando", Options: []string{"Se mueve claramente", "Lo toca otro jugador"}, Correct: 0},
		{ID: "203", Text: "¿Quién señala el saque de esquina?", Options: []string{"El asistente", "El árbitro"}, Correct: 1},
		{ID: "", Text: "¿Puede el portero coger el balón con la mano tras una cesión?", Options: []string{"Sí", "No", "Solo en su área"}, Correct: 1},
	}
}

func record(id, text string, opts []string, correct int) quiz.AnswerRecord {
	qq := quiz.Question{ID: id, Text: text}
	for _, o := range opts {
		qq.Options = append(qq.Options, quiz.Option{Text: o})
	}
	return quiz.NewRecord(qq, correct)
}

func TestSolveFlagsStaleEntries(t *testing.T) {
	site := &quiztest.Site{Disclose: true, Questions: siteQuestions()}
	client := scraper.NewClient(quiztest.Start(t, site), 0)

	bank := questionbank.New(nil)
	// Same answer, options stored in another order.
	bank.Merge(record("201", "¿Cuántas décimas se descuentan?", []string{"5 décimas", "3 décimas", "2 décimas"}, 1))
	// Stale: the site now says option A.
	bank.Merge(record("202", "El balón está en juego cuando", []string{"Se mueve claramente", "Lo toca otro jugador"}, 1))
	// Found by text only.
	bank.Merge(record("", "¿Puede el portero coger el balón con la mano tras una cesión?", []string{"Sí", "No", "Solo en su área"}, 1))

	s := &Solver{Transport: client, Bank: bank, Kind: "testArb", Count: 4}
	exam, err := s.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateScored, exam.State)

	require.Equal(t, []int{1, 1, 0, 1}, site.Submitted(1))
	require.Equal(t, 1, site.Grades())
	require.Equal(t, 2, exam.Score)
	require.Equal(t, 4, exam.Total)
	require.InDelta(t, 50.0, exam.Percent(), 1e-9)

	got := make([]Verdict, len(exam.Items))
	for i, it := range exam.Items {
		got[i] = it.Verdict
	}
	require.Equal(t, []Verdict{VerdictCorrect, VerdictStale, VerdictGuessedWrong, VerdictCorrect}, got)

	require.Equal(t, questionbank.ByID, exam.Items[0].Lookup)
	require.Equal(t, questionbank.ByText, exam.Items[3].Lookup)
	require.Equal(t, SourceGuessed, exam.Items[2].Source)
	require.Equal(t, "Se mueve claramente", exam.Items[1].CorrectText)
	require.Equal(t, "B", exam.Items[1].ChosenLetter())
	require.Equal(t, "Lo toca otro jugador", exam.Items[1].ChosenText())
	require.Len(t, exam.Stale(), 1)
	require.Len(t, exam.Failed(), 2)
	require.Equal(t, 3, exam.Count(SourceResolved))
}

func TestSolveWithoutDisclosureLeavesVerdictsUnknown(t *testing.T) {
	site := &quiztest.Site{Questions: siteQuestions()}
	client := scraper.NewClient(quiztest.Start(t, site), 0)

	s := &Solver{Transport: client, Bank: questionbank.New(nil), Kind: "testArb", Count: 4}
	exam, err := s.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, exam.Score)
	for _, it := range exam.Items {
		require.Equal(t, VerdictUnknown, it.Verdict)
		require.Equal(t, SourceGuessed, it.Source)
		require.Equal(t, 0, it.Chosen)
	}
}

func TestSolveAllCorrectWithoutDisclosure(t *testing.T) {
	qs := siteQuestions()[:2]
	site := &quiztest.Site{Questions: qs}
	client := scraper.NewClient(quiztest.Start(t, site), 0)

	bank := questionbank.New(nil)
	for _, q := range qs {
		bank.Merge(record(q.ID, q.Text, q.Options, q.Correct))
	}
	exam, err := (&Solver{Transport: client, Bank: bank, Kind: "testArb", Count: 2}).Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, exam.Score)
	for _, it := range exam.Items {
		require.Equal(t, VerdictCorrect, it.Verdict)
	}
}

func TestSolveStopsAtFailedSubmission(t *testing.T) {
	site := &quiztest.Site{Questions: siteQuestions(), Fail: func(int) int { return http.StatusServiceUnavailable }}
	client := scraper.NewClient(quiztest.Start(t, site), 0)

	exam, err := (&Solver{Transport: client, Bank: questionbank.New(nil), Kind: "testArb", Count: 4}).Solve(context.Background())
	require.Error(t, err)
	var te *scraper.TransportError
	require.ErrorAs(t, err, &te)
	require.True(t, te.RateLimited())
	require.Equal(t, StateResolving, exam.State)
	require.Len(t, exam.Items, 4)
}

func TestChooseFallsBackToStoredPosition(t *testing.T) {
	s := &Solver{}
	stored := record("1", "x", []string{"Amarilla", "Roja"}, 1)
	stored.CorrectText = "texto que ya no aparece"
	fresh := record("1", "x", []string{"amarilla", "roja"}, 0).Question

	pos, ok := s.choose(stored, fresh)
	require.True(t, ok)
	require.Equal(t, 1, pos)

	fresh.Options = append(fresh.Options, quiz.Option{Text: "Azul"})
	_, ok = s.choose(stored, fresh)
	require.False(t, ok)
}
