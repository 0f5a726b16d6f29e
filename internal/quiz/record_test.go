package quiz

import "testing"

func TestLetterRoundTrip(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for pos, want := range cases {
		if got := Letter(pos); got != want {
			t.Errorf("Letter(%d) = %q, want %q", pos, got, want)
		}
		back, ok := ParseLetter(want)
		if !ok || back != pos {
			t.Errorf("ParseLetter(%q) = %d, %v, want %d", want, back, ok, pos)
		}
	}
	if Letter(-1) != "" {
		t.Errorf("Letter(-1) should be empty")
	}
	for _, bad := range []string{"", "1", "A1", "ñ"} {
		if _, ok := ParseLetter(bad); ok {
			t.Errorf("ParseLetter(%q) should fail", bad)
		}
	}
	if pos, ok := ParseLetter(" c "); !ok || pos != 2 {
		t.Errorf("ParseLetter(\" c \") = %d, %v", pos, ok)
	}
}

func TestNewRecord(t *testing.T) {
	q := Question{ID: "17", Text: "¿Qué?", Options: []Option{{Text: "A-opt"}, {Text: "B-opt"}}}

	r := NewRecord(q, 1)
	if !r.Resolved() || r.CorrectText != "B-opt" || r.Letter() != "B" {
		t.Fatalf("unexpected record %+v", r)
	}

	r = NewRecord(q, 2)
	if r.Resolved() || r.Correct != Unresolved || r.Letter() != "" {
		t.Fatalf("out of range position should be unresolved, got %+v", r)
	}
}

func TestWithCopies(t *testing.T) {
	base := Baseline(3)
	probe := With(base, 1, 2)
	if base[1] != 0 || probe[1] != 2 || probe[0] != 0 || probe[2] != 0 {
		t.Fatalf("With must not mutate baseline: base=%v probe=%v", base, probe)
	}
}

func TestQuestionLabel(t *testing.T) {
	if got := (Question{ID: "99"}).Label(); got != "99" {
		t.Errorf("label = %q", got)
	}
	if got := (Question{Index: 4}).Label(); got != "#5" {
		t.Errorf("label = %q", got)
	}
}
