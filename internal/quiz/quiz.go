package quiz

import "strconv"

// Option is one selectable answer. Value is what the form submits for it.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
}

// Question is one multiple-choice question as displayed. Options keep display
// order; the letter of an option derives from its position.
type Question struct {
	Index   int      `json:"idx"`
	ID      string   `json:"id_pregunta,omitempty"`
	Text    string   `json:"pregunta"`
	Options []Option `json:"opciones"`
}

// OptionTexts returns the visible text of every option in order.
func (q Question) OptionTexts() []string {
	out := make([]string, len(q.Options))
	for i, o := range q.Options {
		out[i] = o.Text
	}
	return out
}

// Valid reports whether pos addresses one of the options.
func (q Question) Valid(pos int) bool { return pos >= 0 && pos < len(q.Options) }

// Label is the human identifier used in diagnostics.
func (q Question) Label() string {
	if q.ID != "" {
		return q.ID
	}
	return "#" + strconv.Itoa(q.Index+1)
}

// Quiz is one generated quiz instance tied to a single remote session.
type Quiz struct {
	ID        string     `json:"id"`
	Kind      string     `json:"tipo"`
	Questions []Question `json:"questions"`
}

// Outcome is what a result page reveals after one submission.
type Outcome struct {
	Score int
	Total int
	// Disclosed maps a question index to the correct-answer text the page
	// shows for questions missed in that submission.
	Disclosed map[int]string
}

// Baseline returns the all-first-option answer vector for n questions.
func Baseline(n int) []int { return make([]int, n) }

// With returns a copy of choices where position i is set to pos.
func With(choices []int, i, pos int) []int {
	out := make([]int, len(choices))
	copy(out, choices)
	out[i] = pos
	return out
}
