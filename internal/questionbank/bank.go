// Package questionbank is the answer knowledge base: a deduplicated,
// insertion-ordered collection of answer records that grows across
// extraction runs and is consulted by the solver.
package questionbank

import (
	"log/slog"
	"sync"

	"psp.com/arbitro-quiz/internal/match"
	"psp.com/arbitro-quiz/internal/quiz"
	"psp.com/arbitro-quiz/internal/textnorm"
)

// MergeResult tells what Merge did with a record.
type MergeResult int

const (
	Duplicate MergeResult = iota
	Inserted
	Updated
)

func (r MergeResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "duplicate"
	}
}

// LookupKind tells how Lookup found a record.
type LookupKind int

const (
	NotFound LookupKind = iota
	ByID
	ByText
	ByFuzzyText
)

func (k LookupKind) String() string {
	switch k {
	case ByID:
		return "id"
	case ByText:
		return "text"
	case ByFuzzyText:
		return "fuzzy-text"
	default:
		return "not-found"
	}
}

// Hit is a Lookup result.
type Hit struct {
	Record quiz.AnswerRecord
	By     LookupKind
	Score  float64
}

// Found reports whether a record was returned.
func (h Hit) Found() bool { return h.By != NotFound }

// Stats summarises the bank content.
type Stats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

// Bank stores at most one record per dedup key. It is safe for concurrent
// readers; writers are expected to be a single collector.
type Bank struct {
	// Policy governs fuzzy question-text lookup.
	Policy match.Policy

	mu      sync.RWMutex
	records []quiz.AnswerRecord
	keys    map[string]int
	texts   map[string]int
	logger  *slog.Logger
}

// New returns an empty bank. A nil logger means slog.Default().
func New(logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		Policy: match.DefaultPolicy,
		keys:   make(map[string]int),
		texts:  make(map[string]int),
		logger: logger,
	}
}

// Key is the dedup key of q: its identifier, else its normalized text.
func Key(q quiz.Question) string {
	if q.ID != "" {
		return q.ID
	}
	return "text:" + textnorm.Normalize(q.Text)
}

// Merge inserts rec or upgrades an unresolved entry with the same key.
// A resolved entry is never replaced.
func (b *Bank) Merge(rec quiz.AnswerRecord) MergeResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.merge(rec)
}

func (b *Bank) merge(rec quiz.AnswerRecord) MergeResult {
	key := Key(rec.Question)
	pos, ok := b.keys[key]
	if !ok {
		b.keys[key] = len(b.records)
		b.records = append(b.records, rec)
		b.indexText(len(b.records) - 1)
		return Inserted
	}
	existing := b.records[pos]
	switch {
	case rec.Resolved() && !existing.Resolved():
		b.records[pos] = rec
		old := textnorm.Normalize(existing.Question.Text)
		if p, ok := b.texts[old]; ok && p == pos {
			delete(b.texts, old)
		}
		b.indexText(pos)
		return Updated
	case rec.Resolved() && existing.Resolved() && !textnorm.Equal(rec.CorrectText, existing.CorrectText):
		b.logger.Warn("conflicting answer ignored", "key", key,
			"stored", existing.CorrectText, "incoming", rec.CorrectText)
	}
	return Duplicate
}

// indexText points the text index at the record at pos unless the text
// already leads to a record at least as useful: an earlier one, or a resolved one.
func (b *Bank) indexText(pos int) {
	t := textnorm.Normalize(b.records[pos].Question.Text)
	if t == "" {
		return
	}
	if p, seen := b.texts[t]; seen && (b.records[p].Resolved() || !b.records[pos].Resolved()) {
		return
	}
	b.texts[t] = pos
}

// Lookup finds the record for q: by identifier, then by exact normalized
// text, then by closest question text under b.Policy. An unresolved
// identifier hit gives way to a resolved record found by text.
func (b *Bank) Lookup(q quiz.Question) Hit {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var byID Hit
	if q.ID != "" {
		if pos, ok := b.keys[q.ID]; ok {
			byID = Hit{Record: b.records[pos], By: ByID, Score: 1}
			if byID.Record.Resolved() {
				return byID
			}
		}
	}
	if hit := b.lookupText(q.Text); hit.Found() && (hit.Record.Resolved() || !byID.Found()) {
		return hit
	}
	return byID
}

func (b *Bank) lookupText(text string) Hit {
	t := textnorm.Normalize(text)
	if t == "" {
		return Hit{}
	}
	if pos, ok := b.texts[t]; ok {
		return Hit{Record: b.records[pos], By: ByText, Score: 1}
	}
	texts := make([]string, len(b.records))
	for i, r := range b.records {
		texts[i] = r.Question.Text
	}
	m := b.Policy.Closest(text, texts)
	if !m.OK() {
		return Hit{}
	}
	return Hit{Record: b.records[m.Index], By: ByFuzzyText, Score: m.Score}
}

// Records returns every record in insertion order.
func (b *Bank) Records() []quiz.AnswerRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]quiz.AnswerRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Resolved returns the resolved records in insertion order.
func (b *Bank) Resolved() []quiz.AnswerRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []quiz.AnswerRecord
	for _, r := range b.records {
		if r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// Len is the number of stored records.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Bank) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Stats{Total: len(b.records)}
	for _, r := range b.records {
		if r.Resolved() {
			s.Resolved++
		}
	}
	return s
}
