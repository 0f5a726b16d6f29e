package collector

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/quiztest"
	"psp.com/arbitro-quiz/internal/scraper"
)

func newSite() *quiztest.Site {
	return &quiztest.Site{
		Disclose: true,
		Hide:     map[int]bool{1: true},
		Questions: []quiztest.Question{
			{ID: "301", Text: "¿Distancia de la barrera?", Options: []string{"8 metros", "9,15 metros", "10 metros"}, Correct: 1},
			{ID: "302", Text: "¿Duración de cada parte?", Options: []string{"40 minutos", "45 minutos"}, Correct: 1},
		},
	}
}

func newCollector(t *testing.T, site *quiztest.Site, opts Options) (*Collector, *[]time.Duration) {
	t.Helper()
	var waits []time.Duration
	c := &Collector{
		Transport: scraper.NewClient(quiztest.Start(t, site), 0),
		Bank:      questionbank.New(nil),
		Options:   opts,
		wait: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return ctx.Err()
		},
	}
	return c, &waits
}

func TestRunStopsAfterNoNew(t *testing.T) {
	site := newSite()
	c, waits := newCollector(t, site, Options{Kind: "testArb", Count: 2, StopAfterNoNew: 2, IterationDelay: time.Second})
	c.Path = filepath.Join(t.TempDir(), "answers.json")
	var inserted []string
	c.OnInsert = func(rec quiz.AnswerRecord) { inserted = append(inserted, rec.Question.ID) }

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StopNoNew, sum.Reason)
	require.Equal(t, 3, sum.Iterations)
	require.Equal(t, 2, sum.Inserted)
	require.Zero(t, sum.Failed)
	require.Equal(t, []string{"301", "302"}, inserted)
	require.Equal(t, []time.Duration{time.Second, time.Second}, *waits)

	// Baseline plus one probe, then only baselines once answers are known.
	require.Equal(t, 3, site.Sessions())
	require.Equal(t, 4, site.Grades())

	saved := questionbank.New(nil)
	_, err = saved.Load(c.Path)
	require.NoError(t, err)
	recs := saved.Records()
	require.Len(t, recs, 2)
	require.Equal(t, "9,15 metros", recs[0].CorrectText)
	require.Equal(t, "45 minutos", recs[1].CorrectText)
}

func TestRunStopsAtTarget(t *testing.T) {
	c, _ := newCollector(t, newSite(), Options{Kind: "testArb", Count: 2, Target: 2, MaxIterations: 10})
	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StopTarget, sum.Reason)
	require.Equal(t, 1, sum.Iterations)
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	c, _ := newCollector(t, newSite(), Options{Kind: "testArb", Count: 2, MaxIterations: 2})
	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StopMaxIterations, sum.Reason)
	require.Equal(t, 2, sum.Iterations)
}

func TestFailedIterationsCountTowardStreak(t *testing.T) {
	site := newSite()
	site.Fail = func(int) int { return http.StatusTooManyRequests }
	c, _ := newCollector(t, site, Options{Kind: "testArb", Count: 2, MaxIterations: 5, StopAfterNoNew: 2})

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StopNoNew, sum.Reason)
	require.Equal(t, 2, sum.Failed)
	require.Zero(t, c.Bank.Len())
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newCollector(t, newSite(), Options{Kind: "testArb", Count: 2})
	sum, err := c.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StopCanceled, sum.Reason)
	require.Zero(t, sum.Iterations)
}

func TestRunWithoutQuestionsIsFatal(t *testing.T) {
	c, _ := newCollector(t, &quiztest.Site{}, Options{Kind: "testArb", Count: 2, MaxIterations: 3})
	sum, err := c.Run(context.Background())
	require.ErrorIs(t, err, scraper.ErrNoQuestions)
	require.Equal(t, 1, sum.Iterations)
}
