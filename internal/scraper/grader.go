package scraper

import (
	"context"
	"log/slog"

	"psp.com/arbitro-quiz/internal/quiz"
)

// Grader binds a session and its questions so an answer vector can be
// submitted and scored in one call.
type Grader struct {
	Transport Transport
	Session   *Session
	Questions []quiz.Question
}

// Grade submits choices and parses the result page.
func (g *Grader) Grade(ctx context.Context, choices []int) (quiz.Outcome, error) {
	markup, err := g.Transport.SubmitAnswers(ctx, g.Session, g.Questions, choices)
	if err != nil {
		return quiz.Outcome{}, err
	}
	return ParseOutcome(markup)
}

// Open starts a session, fetches a fresh quiz and parses it.
func Open(ctx context.Context, t Transport, kind string, count int, logger *slog.Logger) (*Session, quiz.Quiz, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := t.StartSession(ctx, kind, count)
	if err != nil {
		return nil, quiz.Quiz{}, err
	}
	markup, err := t.FetchQuiz(ctx, s)
	if err != nil {
		return nil, quiz.Quiz{}, err
	}
	questions, skipped, err := ParseQuiz(markup)
	for _, e := range skipped {
		logger.Warn("question skipped", "session", s.ID, "error", e)
	}
	if err != nil {
		return nil, quiz.Quiz{}, err
	}
	return s, quiz.Quiz{ID: s.ID, Kind: kind, Questions: questions}, nil
}
