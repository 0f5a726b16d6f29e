package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoQuestions means the quiz markup contained no recognisable question.
	ErrNoQuestions = errors.New("no questions found in quiz markup")
	// ErrScoreMissing means the result markup had no "aciertos sobre" line.
	ErrScoreMissing = errors.New("score not found in result markup")
)

// TransportError wraps a failed request to the quiz site.
type TransportError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimited reports whether the site refused the request for load reasons.
func (e *TransportError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// ParseError reports an expected element that was absent from the markup.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse " + e.What + ": " + e.Err.Error()
	}
	return "parse " + e.What
}

func (e *ParseError) Unwrap() error { return e.Err }
