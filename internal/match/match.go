// Package match maps free answer text onto one option of a question.
//
// Three tiers are tried in order on normalized text: exact equality,
// containment (either direction) and fuzzy similarity. A candidate that no
// tier accepts is reported as NoMatch and never guessed.
package match

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"psp.com/arbitro-quiz/internal/textnorm"
)

// NoMatch is the index reported when no option is accepted.
const NoMatch = -1

// DefaultThreshold is the minimum fuzzy similarity accepted by DefaultPolicy.
const DefaultThreshold = 0.80

// Tier identifies which strategy produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierContains
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierContains:
		return "contains"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// TieBreak decides what happens when several options share the best fuzzy score.
type TieBreak int

const (
	// TieEarliest picks the lowest position (lowest letter).
	TieEarliest TieBreak = iota
	// TieReject reports NoMatch.
	TieReject
)

// ParseTieBreak accepts "earliest" or "reject".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "earliest":
		return TieEarliest, nil
	case "reject":
		return TieReject, nil
	}
	return TieEarliest, fmt.Errorf("unknown tie-break policy %q", s)
}

func (t TieBreak) String() string {
	if t == TieReject {
		return "reject"
	}
	return "earliest"
}

// Policy holds the fuzzy acceptance threshold and tie handling.
type Policy struct {
	Threshold float64
	TieBreak  TieBreak
}

// DefaultPolicy accepts fuzzy scores >= 0.80 and breaks ties by position.
var DefaultPolicy = Policy{Threshold: DefaultThreshold, TieBreak: TieEarliest}

// Result describes the outcome of Match.
type Result struct {
	Index  int
	Tier   Tier
	Score  float64
	Reason string
}

// OK reports whether an option was matched.
func (r Result) OK() bool { return r.Index != NoMatch }

var dmp = diffmatchpatch.New()

// Match uses DefaultPolicy.
func Match(candidate string, options []string) Result {
	return DefaultPolicy.Match(candidate, options)
}

// Match returns the option that best corresponds to candidate.
func (p Policy) Match(candidate string, options []string) Result {
	c, normalized := prepare(candidate, options)
	if c == "" {
		return Result{Index: NoMatch, Reason: "empty candidate"}
	}
	if r, ok := exact(c, normalized); ok {
		return r
	}
	contained := containing(c, normalized)
	if len(contained) == 1 {
		return Result{Index: contained[0], Tier: TierContains, Score: Similarity(c, normalized[contained[0]])}
	}
	return p.fuzzy(c, normalized)
}

// Closest is Match without the containment tier. It suits long texts such
// as whole questions, where a short text is contained in many unrelated ones.
func (p Policy) Closest(candidate string, options []string) Result {
	c, normalized := prepare(candidate, options)
	if c == "" {
		return Result{Index: NoMatch, Reason: "empty candidate"}
	}
	if r, ok := exact(c, normalized); ok {
		return r
	}
	return p.fuzzy(c, normalized)
}

func prepare(candidate string, options []string) (string, []string) {
	normalized := make([]string, len(options))
	for i, o := range options {
		normalized[i] = textnorm.Normalize(o)
	}
	return textnorm.Normalize(candidate), normalized
}

func exact(c string, options []string) (Result, bool) {
	for i, o := range options {
		if o == c {
			return Result{Index: i, Tier: TierExact, Score: 1}, true
		}
	}
	return Result{}, false
}

func (p Policy) fuzzy(c string, options []string) Result {
	best, bestScore, ties := NoMatch, 0.0, 0
	for i, o := range options {
		if o == "" {
			continue
		}
		s := Similarity(c, o)
		switch {
		case s > bestScore:
			best, bestScore, ties = i, s, 1
		case s == bestScore && best != NoMatch:
			ties++
		}
	}
	if best == NoMatch || bestScore < p.Threshold {
		return Result{Index: NoMatch, Score: bestScore, Reason: fmt.Sprintf("best similarity %.2f below %.2f", bestScore, p.Threshold)}
	}
	if ties > 1 && p.TieBreak == TieReject {
		return Result{Index: NoMatch, Score: bestScore, Reason: fmt.Sprintf("%d options tie at %.2f", ties, bestScore)}
	}
	return Result{Index: best, Tier: TierFuzzy, Score: bestScore}
}

// containing lists options that contain c or are contained in it.
// Empty options never count, they would be contained in everything.
// A side ending in an ellipsis was cut off, so only its stem is compared,
// as a prefix of the other side.
func containing(c string, options []string) []int {
	cStem, cCut := truncated(c)
	if cStem == "" {
		return nil
	}
	var hits []int
	for i, o := range options {
		oStem, oCut := truncated(o)
		if oStem == "" {
			continue
		}
		var hit bool
		switch {
		case cCut && oCut:
			hit = strings.HasPrefix(oStem, cStem) || strings.HasPrefix(cStem, oStem)
		case cCut:
			hit = strings.HasPrefix(o, cStem)
		case oCut:
			hit = strings.HasPrefix(c, oStem)
		default:
			hit = strings.Contains(o, c) || strings.Contains(c, o)
		}
		if hit {
			hits = append(hits, i)
		}
	}
	return hits
}

// truncated strips a trailing ellipsis from normalized text.
func truncated(s string) (string, bool) {
	stem := strings.TrimRight(s, ".")
	if len(s)-len(stem) < 3 {
		return s, false
	}
	return strings.TrimSpace(stem), true
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) counted in runes.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
	return 1 - float64(d)/float64(longest)
}
