package scraper

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"psp.com/arbitro-quiz/internal/quiztest"
)

func sampleSite() *quiztest.Site {
	return &quiztest.Site{
		Disclose: true,
		Questions: []quiztest.Question{
			{ID: "101", Text: "¿Cuántas décimas se descuentan?", Options: []string{"2 décimas", "3 décimas", "5 décimas"}, Correct: 1},
			{ID: "102", Text: "El balón está en juego cuando", Options: []string{"Se mueve claramente", "Lo toca otro jugador"}, Correct: 0},
		},
	}
}

func TestOpenParsesQuiz(t *testing.T) {
	site := sampleSite()
	c := NewClient(quiztest.Start(t, site), 0)

	s, qz, err := Open(context.Background(), c, "testArb", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.Equal(t, s.ID, qz.ID)
	require.Len(t, qz.Questions, 2)

	q := qz.Questions[0]
	require.Equal(t, 0, q.Index)
	require.Equal(t, "101", q.ID)
	require.Equal(t, "¿Cuántas décimas se descuentan?", q.Text)
	require.Equal(t, []string{"2 décimas", "3 décimas", "5 décimas"}, q.OptionTexts())
	require.Equal(t, quiztest.OptionValue(0, 2), q.Options[2].Value)
	require.Equal(t, 1, site.Sessions())
}

func TestLatin1PagesDecodeLosslessly(t *testing.T) {
	site := sampleSite()
	site.Latin1 = true
	c := NewClient(quiztest.Start(t, site), 0)

	_, qz, err := Open(context.Background(), c, "testArb", 2, nil)
	require.NoError(t, err)
	require.Equal(t, "3 décimas", qz.Questions[0].Options[1].Text)
}

func TestGraderScoresAndDiscloses(t *testing.T) {
	site := sampleSite()
	c := NewClient(quiztest.Start(t, site), 0)
	var trace bytes.Buffer
	c.Trace = &trace

	ctx := context.Background()
	s, qz, err := Open(ctx, c, "testArb", 2, nil)
	require.NoError(t, err)

	g := &Grader{Transport: c, Session: s, Questions: qz.Questions}
	out, err := g.Grade(ctx, []int{0, 0})
	require.NoError(t, err)
	require.Equal(t, 1, out.Score)
	require.Equal(t, 2, out.Total)
	require.Equal(t, map[int]string{0: "3 décimas"}, out.Disclosed)
	require.Equal(t, []int{0, 0}, site.Submitted(1))
	require.Contains(t, trace.String(), "aciertos sobre")

	out, err = g.Grade(ctx, []int{1, -3})
	require.NoError(t, err)
	require.Equal(t, 2, out.Score)
	require.Empty(t, out.Disclosed)
	require.Equal(t, []int{1, 0}, site.Submitted(2), "out of range choice is clamped")
}

func TestTransportErrorOnStatus(t *testing.T) {
	site := sampleSite()
	site.Fail = func(int) int { return http.StatusTooManyRequests }
	c := NewClient(quiztest.Start(t, site), 0)

	ctx := context.Background()
	s, qz, err := Open(ctx, c, "testArb", 2, nil)
	require.NoError(t, err)

	_, err = (&Grader{Transport: c, Session: s, Questions: qz.Questions}).Grade(ctx, []int{0, 0})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, http.StatusTooManyRequests, te.Status)
	require.True(t, te.RateLimited())
}

func TestSessionCookieRequired(t *testing.T) {
	c := NewClient(quiztest.Start(t, sampleSite()), 0)
	_, err := c.FetchQuiz(context.Background(), NewSession("testArb", 2))
	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, http.StatusForbidden, te.Status)
}
