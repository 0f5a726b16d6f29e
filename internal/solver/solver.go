// Package solver answers a fresh quiz instance from the knowledge base and
// reports which answers held up once the site graded them.
package solver

import (
	"context"
	"fmt"
	"log/slog"

	"psp.com/arbitro-quiz/internal/match"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/scraper"
	"psp.com/arbitro-quiz/internal/textnorm"
)

// State is the progress of one exam.
type State int

const (
	StatePending State = iota
	StateFetched
	StateResolving
	StateAnswered
	StateScored
)

func (s State) String() string {
	switch s {
	case StateFetched:
		return "FETCHED"
	case StateResolving:
		return "RESOLVING"
	case StateAnswered:
		return "ANSWERED"
	case StateScored:
		return "SCORED"
	default:
		return "PENDING"
	}
}

// Lookup is the part of the knowledge base the solver reads.
type Lookup interface {
	Lookup(q quiz.Question) questionbank.Hit
}

// Solver runs one exam per Solve call.
type Solver struct {
	Transport scraper.Transport
	Bank      Lookup
	Kind      string
	Count     int
	// Policy matches a stored correct text against the fresh options.
	Policy match.Policy
	Logger *slog.Logger
}

// Solve walks an exam from PENDING to SCORED. On error the returned exam
// holds whatever state was reached.
func (s *Solver) Solve(ctx context.Context) (*Exam, error) {
	exam := &Exam{Kind: s.Kind}
	for {
		switch exam.State {
		case StatePending:
			sess, qz, err := scraper.Open(ctx, s.Transport, s.Kind, s.Count, s.logger())
			if err != nil {
				return exam, fmt.Errorf("fetch quiz: %w", err)
			}
			exam.ID, exam.session, exam.State = qz.ID, sess, StateFetched
			exam.Items = make([]Item, len(qz.Questions))
			for i, q := range qz.Questions {
				exam.Items[i] = Item{Question: q, Chosen: 0, Source: SourceGuessed}
			}
		case StateFetched:
			exam.State = StateResolving
			for i := range exam.Items {
				s.resolve(&exam.Items[i])
			}
		case StateResolving:
			g := &scraper.Grader{Transport: s.Transport, Session: exam.session, Questions: exam.questions()}
			out, err := g.Grade(ctx, exam.choices())
			if err != nil {
				return exam, fmt.Errorf("submit answers: %w", err)
			}
			exam.outcome, exam.State = out, StateAnswered
		case StateAnswered:
			s.score(exam)
			exam.State = StateScored
		case StateScored:
			return exam, nil
		}
	}
}

// resolve picks the option for one item from the knowledge base. Questions
// without a usable record keep the first option and stay guessed.
func (s *Solver) resolve(it *Item) {
	hit := s.Bank.Lookup(it.Question)
	it.Lookup = hit.By
	if !hit.Found() || !hit.Record.Resolved() {
		s.logger().Debug("no stored answer, guessing", "question", it.Question.Label(), "lookup", hit.By)
		return
	}
	pos, ok := s.choose(hit.Record, it.Question)
	if !ok {
		s.logger().Warn("stored answer matches no option, guessing", "question", it.Question.Label(),
			"stored", hit.Record.CorrectText, "options", it.Question.OptionTexts())
		return
	}
	it.Chosen, it.Source, it.Stored = pos, SourceResolved, hit.Record.CorrectText
}

// choose locates the stored correct text among the fresh options, falling
// back to the stored position when both option lists are the same.
func (s *Solver) choose(rec quiz.AnswerRecord, q quiz.Question) (int, bool) {
	if m := s.matcher().Match(rec.CorrectText, q.OptionTexts()); m.OK() {
		return m.Index, true
	}
	if sameOptions(rec.Question, q) && q.Valid(rec.Correct) {
		return rec.Correct, true
	}
	return 0, false
}

func sameOptions(a, b quiz.Question) bool {
	if len(a.Options) != len(b.Options) {
		return false
	}
	for i := range a.Options {
		if !textnorm.Equal(a.Options[i].Text, b.Options[i].Text) {
			return false
		}
	}
	return true
}

// score assigns verdicts. A disclosed correct text marks an item wrong. When
// every wrong answer was disclosed the rest are correct; otherwise items
// without a disclosure cannot be judged.
func (s *Solver) score(exam *Exam) {
	out := exam.outcome
	exam.Score, exam.Total = out.Score, out.Total
	if exam.Total == 0 {
		exam.Total = len(exam.Items)
	}
	wrong := exam.Total - exam.Score
	disclosedWrong := 0
	for _, it := range exam.Items {
		if _, ok := out.Disclosed[it.Question.Index]; ok {
			disclosedWrong++
		}
	}
	complete := disclosedWrong >= wrong

	for i := range exam.Items {
		it := &exam.Items[i]
		text, missed := out.Disclosed[it.Question.Index]
		switch {
		case missed && it.Source == SourceResolved:
			it.Verdict, it.CorrectText = VerdictStale, text
			s.logger().Warn("stale knowledge base entry", "question", it.Question.Label(),
				"stored", it.Stored, "site", text)
		case missed:
			it.Verdict, it.CorrectText = VerdictGuessedWrong, text
		case complete:
			it.Verdict = VerdictCorrect
		default:
			it.Verdict = VerdictUnknown
		}
	}
	s.logger().Info("exam scored", "exam", exam.ID, "score", exam.Score, "total", exam.Total,
		"resolved", exam.Count(SourceResolved), "stale", len(exam.Stale()))
}

func (s *Solver) matcher() match.Policy {
	if s.Policy.Threshold <= 0 {
		return match.DefaultPolicy
	}
	return s.Policy
}

func (s *Solver) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
