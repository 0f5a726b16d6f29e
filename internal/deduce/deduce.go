// Package deduce resolves the correct option of every question of a quiz
// instance from disclosed answer texts and aggregate score deltas.
//
// The protocol submits the all-first-option baseline once, resolves
// disclosed questions through the option matcher, then for each remaining
// question resubmits the baseline with only that question changed, one
// candidate at a time. Submissions are strictly sequential.
package deduce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"psp.com/arbitro-quiz/internal/match"
	"psp.com/arbitro-quiz/internal/quiz"
)

// Grader submits one answer vector and reports what the result page shows.
type Grader interface {
	Grade(ctx context.Context, choices []int) (quiz.Outcome, error)
}

// Status records how a question was resolved.
type Status int

const (
	StatusUnresolved Status = iota
	StatusKnown
	StatusDisclosed
	StatusDeduced
	StatusEliminated
	StatusBaseline
)

func (s Status) String() string {
	switch s {
	case StatusKnown:
		return "known"
	case StatusDisclosed:
		return "disclosed"
	case StatusDeduced:
		return "deduced"
	case StatusEliminated:
		return "eliminated"
	case StatusBaseline:
		return "baseline"
	default:
		return "unresolved"
	}
}

// Resolution is the per-question result. Correct is quiz.Unresolved exactly
// when Status is StatusUnresolved.
type Resolution struct {
	Question quiz.Question
	Status   Status
	Correct  int
	Tier     match.Tier
	Probes   int
	Err      error
}

// Resolved reports whether an option was asserted correct.
func (r Resolution) Resolved() bool { return r.Status != StatusUnresolved }

// Record converts the resolution to an answer record.
func (r Resolution) Record() quiz.AnswerRecord { return quiz.NewRecord(r.Question, r.Correct) }

// Policy tunes how evidence is interpreted.
type Policy struct {
	Match match.Policy
	// TrustDecrease treats a score drop of exactly one as proof that the
	// baseline option is correct. Off, any drop is an anomaly.
	TrustDecrease bool
}

// DefaultPolicy uses the default matcher and reports every drop as an anomaly.
var DefaultPolicy = Policy{Match: match.DefaultPolicy}

// Deducer runs the protocol against one quiz session.
type Deducer struct {
	Grader Grader
	Policy Policy
	// Delay is slept before every submission after the baseline.
	Delay time.Duration
	// Known, when set, supplies answers already established elsewhere.
	// Such questions are not probed.
	Known  func(q quiz.Question) (int, bool)
	Logger *slog.Logger

	sleep func(time.Duration)
}

// Report summarises one deduction run.
type Report struct {
	Baseline    quiz.Outcome
	Submissions int
	Resolutions []Resolution
}

// Records returns one record per question, unresolved ones included.
func (r Report) Records() []quiz.AnswerRecord {
	out := make([]quiz.AnswerRecord, len(r.Resolutions))
	for i, res := range r.Resolutions {
		out[i] = res.Record()
	}
	return out
}

// Unresolved lists the questions left without an answer.
func (r Report) Unresolved() []Resolution {
	var out []Resolution
	for _, res := range r.Resolutions {
		if !res.Resolved() {
			out = append(out, res)
		}
	}
	return out
}

// Run deduces every question. Only a failed baseline submission is fatal;
// anything that goes wrong afterwards is confined to one question.
func (d *Deducer) Run(ctx context.Context, questions []quiz.Question) (Report, error) {
	base := quiz.Baseline(len(questions))
	s0, err := d.Grader.Grade(ctx, base)
	if err != nil {
		return Report{}, fmt.Errorf("baseline submission: %w", err)
	}
	rep := Report{Baseline: s0, Submissions: 1, Resolutions: make([]Resolution, len(questions))}
	if s0.Total != 0 && s0.Total != len(questions) {
		d.logger().Warn("baseline total differs from question count", "total", s0.Total, "questions", len(questions))
	}
	d.logger().Info("baseline scored", "score", s0.Score, "total", s0.Total, "disclosed", len(s0.Disclosed))

	for i, q := range questions {
		res := Resolution{Question: q, Correct: quiz.Unresolved}
		text, disclosed := s0.Disclosed[q.Index]
		if disclosed {
			m := d.matcher().Match(text, q.OptionTexts())
			switch {
			case m.OK() && m.Index != base[i]:
				res.Status, res.Correct, res.Tier = StatusDisclosed, m.Index, m.Tier
				rep.Resolutions[i] = res
				continue
			case m.OK():
				// A disclosure is only shown for a missed question, so it cannot name the submitted option.
				d.logger().Warn("disclosed answer matches the submitted option, probing instead",
					"question", q.Label(), "disclosed", text, "candidate", quiz.Letter(m.Index), "tier", m.Tier)
			default:
				d.logger().Warn("disclosed answer matches no option, probing instead",
					"question", q.Label(), "disclosed", text, "options", q.OptionTexts(), "reason", m.Reason)
			}
		}
		if !disclosed && d.Known != nil {
			if pos, ok := d.Known(q); ok && q.Valid(pos) {
				res.Status, res.Correct = StatusKnown, pos
				rep.Resolutions[i] = res
				continue
			}
		}
		res = d.probe(ctx, i, q, base, s0.Score, disclosed)
		rep.Submissions += res.Probes
		rep.Resolutions[i] = res
	}
	return rep, nil
}

// probe tests the non-baseline options of question i in letter order.
// baselineWrong is set when the result page already proved option A wrong.
func (d *Deducer) probe(ctx context.Context, i int, q quiz.Question, base []int, s0 int, baselineWrong bool) Resolution {
	res := Resolution{Question: q, Correct: quiz.Unresolved}
	for pos := 1; pos < len(q.Options); pos++ {
		d.pause()
		out, err := d.Grader.Grade(ctx, quiz.With(base, i, pos))
		res.Probes++
		if err != nil {
			res.Err = err
			d.logger().Warn("probe failed", "question", q.Label(), "candidate", quiz.Letter(pos), "error", err)
			return res
		}
		switch delta := out.Score - s0; {
		case delta == 1:
			res.Status, res.Correct = StatusDeduced, pos
			return res
		case delta == 0:
			continue
		case delta == -1 && d.Policy.TrustDecrease && !baselineWrong:
			res.Status, res.Correct = StatusBaseline, 0
			return res
		default:
			return d.anomaly(res, pos, s0, out.Score, "score moved by more than one or decreased")
		}
	}
	if baselineWrong {
		return d.anomaly(res, quiz.Unresolved, s0, s0, "no candidate raised the score although the baseline was reported wrong")
	}
	res.Status, res.Correct = StatusEliminated, 0
	return res
}

func (d *Deducer) anomaly(res Resolution, candidate, s0, s1 int, reason string) Resolution {
	res.Err = &AnomalyError{QuestionID: res.Question.Label(), Candidate: candidate, Baseline: s0, Observed: s1, Reason: reason}
	d.logger().Warn("deduction anomaly", "question", res.Question.Label(), "candidate", quiz.Letter(candidate),
		"s0", s0, "s1", s1, "reason", reason)
	res.Status, res.Correct = StatusUnresolved, quiz.Unresolved
	return res
}

func (d *Deducer) pause() {
	if d.Delay <= 0 {
		return
	}
	if d.sleep != nil {
		d.sleep(d.Delay)
		return
	}
	time.Sleep(d.Delay)
}

func (d *Deducer) matcher() match.Policy {
	if d.Policy.Match.Threshold <= 0 {
		return match.DefaultPolicy
	}
	return d.Policy.Match
}

func (d *Deducer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
