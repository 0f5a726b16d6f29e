package solver

import (
	"psp.com/arbitro-quiz/internal/questionbank"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/scraper"
)

// Source tells whether an answer came from the knowledge base.
type Source int

const (
	SourceGuessed Source = iota
	SourceResolved
)

func (s Source) String() string {
	if s == SourceResolved {
		return "resolved"
	}
	return "guessed"
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Verdict is the graded state of one answer.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictCorrect
	VerdictGuessedWrong
	// VerdictStale is a wrong answer taken from the knowledge base.
	VerdictStale
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictGuessedWrong:
		return "guessed-wrong"
	case VerdictStale:
		return "stale-entry"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Item is one answered question.
type Item struct {
	quiz.Question
	Chosen  int                     `json:"elegida_indice"`
	Source  Source                  `json:"fuente"`
	Lookup  questionbank.LookupKind `json:"-"`
	Verdict Verdict                 `json:"veredicto"`
	// Stored is the correct text the knowledge base held.
	Stored string `json:"correcta_guardada,omitempty"`
	// CorrectText is the correct text the result page disclosed.
	CorrectText string `json:"correcta_texto,omitempty"`
}

// ChosenLetter is the letter submitted for the item.
func (it Item) ChosenLetter() string { return quiz.Letter(it.Chosen) }

// ChosenText is the text of the submitted option.
func (it Item) ChosenText() string {
	if !it.Question.Valid(it.Chosen) {
		return ""
	}
	return it.Question.Options[it.Chosen].Text
}

// Wrong reports whether the site showed the answer to be wrong.
func (it Item) Wrong() bool { return it.Verdict == VerdictGuessedWrong || it.Verdict == VerdictStale }

// Exam is one solved quiz instance.
type Exam struct {
	ID    string `json:"id"`
	Kind  string `json:"tipo"`
	State State  `json:"-"`
	Items []Item `json:"preguntas"`
	Score int    `json:"aciertos"`
	Total int    `json:"total"`

	session *scraper.Session
	outcome quiz.Outcome
}

// Percent is the score as a percentage of the total.
func (e *Exam) Percent() float64 {
	if e.Total == 0 {
		return 0
	}
	return 100 * float64(e.Score) / float64(e.Total)
}

// Count returns how many items have source src.
func (e *Exam) Count(src Source) int {
	n := 0
	for _, it := range e.Items {
		if it.Source == src {
			n++
		}
	}
	return n
}

// Failed returns the items the site marked wrong.
func (e *Exam) Failed() []Item {
	var out []Item
	for _, it := range e.Items {
		if it.Wrong() {
			out = append(out, it)
		}
	}
	return out
}

// Stale returns the wrong items whose answer came from the knowledge base.
func (e *Exam) Stale() []Item {
	var out []Item
	for _, it := range e.Items {
		if it.Verdict == VerdictStale {
			out = append(out, it)
		}
	}
	return out
}

func (e *Exam) questions() []quiz.Question {
	out := make([]quiz.Question, len(e.Items))
	for i, it := range e.Items {
		out[i] = it.Question
	}
	return out
}

func (e *Exam) choices() []int {
	out := make([]int, len(e.Items))
	for i, it := range e.Items {
		out[i] = it.Chosen
	}
	return out
}
