package questionbank

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/textnorm"
)

// Entry is the persisted form of one record.
type Entry struct {
	Index       int      `json:"idx"`
	ID          *string  `json:"id_pregunta"`
	Text        string   `json:"pregunta"`
	Options     []string `json:"opciones"`
	Letter      string   `json:"correcta,omitempty"`
	Correct     int      `json:"correcta_indice"`
	CorrectText string   `json:"correcta_texto,omitempty"`
}

// NewEntry converts a record to its persisted form.
func NewEntry(r quiz.AnswerRecord) Entry {
	e := Entry{
		Index:   r.Question.Index,
		Text:    r.Question.Text,
		Options: r.Question.OptionTexts(),
		Correct: quiz.Unresolved,
	}
	if id := r.Question.ID; id != "" {
		e.ID = &id
	}
	if r.Resolved() {
		e.Letter, e.Correct, e.CorrectText = r.Letter(), r.Correct, r.CorrectText
	}
	return e
}

var errNoText = errors.New("missing question text")
var errNoOptions = errors.New("missing options")
var errBadAnswer = errors.New("stored answer matches no option")

// decodeEntry reads one stored entry. Besides the Entry layout it accepts the
// field names used by earlier tools: the correct option may come from
// correcta_indice, a letter field, a correct-text field or a 1-based solucion.
func decodeEntry(raw json.RawMessage, ordinal int) (quiz.AnswerRecord, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return quiz.AnswerRecord{}, fmt.Errorf("not an object: %w", err)
	}
	q := quiz.Question{
		Index: ordinal,
		ID:    scalar(m, "id_pregunta", "id"),
		Text:  strings.TrimSpace(scalar(m, "pregunta", "enunciado", "question")),
	}
	if n, ok := integer(m, "idx", "numero"); ok {
		q.Index = n
	}
	if q.Text == "" {
		return quiz.AnswerRecord{}, errNoText
	}
	for _, text := range options(m) {
		q.Options = append(q.Options, quiz.Option{Text: text})
	}
	if len(q.Options) == 0 {
		return quiz.AnswerRecord{}, errNoOptions
	}
	pos, err := correctPosition(m, q)
	if err != nil {
		return quiz.AnswerRecord{}, err
	}
	return quiz.NewRecord(q, pos), nil
}

// correctPosition returns quiz.Unresolved when the entry stores no answer and
// errBadAnswer when it stores one that fits none of its options.
func correctPosition(m map[string]any, q quiz.Question) (int, error) {
	stored := false
	if n, ok := integer(m, "correcta_indice"); ok && n != quiz.Unresolved {
		stored = true
		if q.Valid(n) {
			return n, nil
		}
	}
	for _, k := range []string{"correcta", "respuesta_correcta", "solution_letter", "solution"} {
		s := scalar(m, k)
		if s == "" {
			continue
		}
		stored = true
		if len(s) == 1 {
			if pos, ok := quiz.ParseLetter(s); ok && q.Valid(pos) {
				return pos, nil
			}
		} else if pos := optionWithText(q, s); pos != quiz.Unresolved {
			return pos, nil
		}
	}
	if text := scalar(m, "correcta_texto", "correct_text", "respuesta", "solucion_texto"); text != "" {
		stored = true
		if pos := optionWithText(q, text); pos != quiz.Unresolved {
			return pos, nil
		}
	}
	if n, ok := integer(m, "solucion"); ok {
		stored = true
		if q.Valid(n - 1) {
			return n - 1, nil
		}
	}
	if stored {
		return quiz.Unresolved, fmt.Errorf("%w (%d options)", errBadAnswer, len(q.Options))
	}
	return quiz.Unresolved, nil
}

func optionWithText(q quiz.Question, text string) int {
	for i, o := range q.Options {
		if textnorm.Equal(o.Text, text) {
			return i
		}
	}
	return quiz.Unresolved
}

// options reads a list of texts or a letter-keyed object.
func options(m map[string]any) []string {
	for _, k := range []string{"opciones", "opciones_texto", "answers", "respuestas"} {
		switch v := m[k].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, o := range v {
				out = append(out, strings.TrimSpace(fmt.Sprint(o)))
			}
			return out
		case map[string]any:
			letters := make([]string, 0, len(v))
			for l := range v {
				if _, ok := quiz.ParseLetter(l); ok {
					letters = append(letters, l)
				}
			}
			sort.Slice(letters, func(i, j int) bool {
				a, _ := quiz.ParseLetter(letters[i])
				b, _ := quiz.ParseLetter(letters[j])
				return a < b
			})
			out := make([]string, 0, len(letters))
			for _, l := range letters {
				out = append(out, strings.TrimSpace(fmt.Sprint(v[l])))
			}
			return out
		}
	}
	return nil
}

// scalar returns the first key holding a string or a number, as text.
func scalar(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func integer(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v == float64(int(v)) {
				return int(v), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
