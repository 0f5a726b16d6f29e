package quiz

import "strings"

// Unresolved is the correct-option position of a record whose answer is unknown.
const Unresolved = -1

// AnswerRecord is a question together with its correct option.
type AnswerRecord struct {
	Question    Question
	Correct     int
	CorrectText string
}

// NewRecord builds a record for q with the option at pos marked correct.
// An out-of-range pos yields an unresolved record.
func NewRecord(q Question, pos int) AnswerRecord {
	if !q.Valid(pos) {
		return AnswerRecord{Question: q, Correct: Unresolved}
	}
	return AnswerRecord{Question: q, Correct: pos, CorrectText: q.Options[pos].Text}
}

// Resolved reports whether Correct points at one of the question's options.
func (r AnswerRecord) Resolved() bool { return r.Question.Valid(r.Correct) }

// Letter is the correct option's letter, or "" when unresolved.
func (r AnswerRecord) Letter() string {
	if !r.Resolved() {
		return ""
	}
	return Letter(r.Correct)
}

// Letter converts a 0-based position to A, B, ... Z, AA, AB, ...
func Letter(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ParseLetter converts a letter produced by Letter back to its position.
func ParseLetter(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, true
}
