// Package collector grows the knowledge base by running extraction
// iterations, one fresh quiz session each, until a stop condition holds.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"psp.com/arbitro-quiz/internal/deduce"
	"psp.com/arbitro-quiz/internal/match"
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/scraper"
)

// StopReason tells why Run returned.
type StopReason int

const (
	StopNone StopReason = iota
	StopTarget
	StopMaxIterations
	StopNoNew
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopTarget:
		return "target reached"
	case StopMaxIterations:
		return "max iterations"
	case StopNoNew:
		return "no new questions"
	case StopCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Options bound a collection run. Zero values disable a limit.
type Options struct {
	Kind  string
	Count int
	// Target stops the run once the bank holds this many unique questions.
	Target         int
	MaxIterations  int
	StopAfterNoNew int
	IterationDelay time.Duration
	RequestDelay   time.Duration
	Policy         deduce.Policy
}

// Collector runs iterations against Transport and merges into Bank. When
// Path is set the bank is saved there after every iteration.
type Collector struct {
	Transport scraper.Transport
	Bank      *questionbank.Bank
	Path      string
	Options   Options
	Logger    *slog.Logger
	// OnInsert is called for every record new to the bank.
	OnInsert func(rec quiz.AnswerRecord)

	wait func(ctx context.Context, d time.Duration) error
}

// Summary reports a finished run.
type Summary struct {
	Iterations int
	Failed     int
	Inserted   int
	Updated    int
	Unresolved int
	Reason     StopReason
}

// Run iterates until a stop condition holds. Cancelling ctx stops the run
// between iterations; an iteration in progress is completed. Only a failed
// save or a page without questions ends the run with an error.
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	streak := 0
	for {
		switch {
		case ctx.Err() != nil:
			sum.Reason = StopCanceled
		case c.Options.Target > 0 && c.Bank.Len() >= c.Options.Target:
			sum.Reason = StopTarget
		case c.Options.MaxIterations > 0 && sum.Iterations >= c.Options.MaxIterations:
			sum.Reason = StopMaxIterations
		case c.Options.StopAfterNoNew > 0 && streak >= c.Options.StopAfterNoNew:
			sum.Reason = StopNoNew
		}
		if sum.Reason != StopNone {
			c.logger().Info("collection finished", "reason", sum.Reason, "iterations", sum.Iterations,
				"inserted", sum.Inserted, "updated", sum.Updated, "bank", c.Bank.Len())
			return sum, nil
		}

		if sum.Iterations > 0 {
			if err := c.pause(ctx); err != nil {
				continue
			}
		}
		sum.Iterations++
		it, err := c.iterate(context.WithoutCancel(ctx), sum.Iterations)
		if errors.Is(err, scraper.ErrNoQuestions) {
			return sum, fmt.Errorf("iteration %d: %w", sum.Iterations, err)
		}
		if err != nil {
			sum.Failed++
			streak++
			c.logger().Warn("iteration failed", "iteration", sum.Iterations, "error", err)
			continue
		}
		sum.Inserted += it.Inserted
		sum.Updated += it.Updated
		sum.Unresolved += it.Unresolved
		if it.Inserted+it.Updated == 0 {
			streak++
		} else {
			streak = 0
		}

		if c.Path != "" {
			if err := c.Bank.Save(c.Path); err != nil {
				return sum, fmt.Errorf("save knowledge base: %w", err)
			}
		}
		c.logger().Info("iteration done", "iteration", sum.Iterations, "new", it.Inserted, "upgraded", it.Updated,
			"unresolved", it.Unresolved, "bank", c.Bank.Len(), "no_new_streak", streak)
	}
}

// iterate runs one session: fetch, deduce, merge.
func (c *Collector) iterate(ctx context.Context, n int) (Summary, error) {
	sess, qz, err := scraper.Open(ctx, c.Transport, c.Options.Kind, c.Options.Count, c.logger())
	if err != nil {
		return Summary{}, err
	}
	d := &deduce.Deducer{
		Grader: &scraper.Grader{Transport: c.Transport, Session: sess, Questions: qz.Questions},
		Policy: c.Options.Policy,
		Delay:  c.Options.RequestDelay,
		Known:  c.known,
		Logger: c.logger().With("iteration", n, "session", sess.ID),
	}
	rep, err := d.Run(ctx, qz.Questions)
	if err != nil {
		return Summary{}, err
	}

	var it Summary
	for _, rec := range rep.Records() {
		if !rec.Resolved() {
			it.Unresolved++
		}
		switch c.Bank.Merge(rec) {
		case questionbank.Inserted:
			it.Inserted++
			if c.OnInsert != nil {
				c.OnInsert(rec)
			}
		case questionbank.Updated:
			it.Updated++
		}
	}
	return it, nil
}

// known answers questions already resolved in the bank under the same
// identifier, locating the stored text among the fresh options.
func (c *Collector) known(q quiz.Question) (int, bool) {
	if q.ID == "" {
		return 0, false
	}
	hit := c.Bank.Lookup(q)
	if hit.By != questionbank.ByID || !hit.Record.Resolved() {
		return 0, false
	}
	policy := c.Options.Policy.Match
	if policy.Threshold <= 0 {
		policy = match.DefaultPolicy
	}
	m := policy.Match(hit.Record.CorrectText, q.OptionTexts())
	if !m.OK() {
		return 0, false
	}
	return m.Index, true
}

func (c *Collector) pause(ctx context.Context) error {
	if c.wait != nil {
		return c.wait(ctx, c.Options.IterationDelay)
	}
	if c.Options.IterationDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.Options.IterationDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
