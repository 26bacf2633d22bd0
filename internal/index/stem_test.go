package index

import "testing"

func TestStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"caresses", "caress"},
		{"ponies", "poni"},
		{"ties", "ti"},
		{"caress", "caress"},
		{"cats", "cat"},
		{"feed", "feed"},
		{"agreed", "agre"},
		{"plastered", "plaster"},
		{"bled", "bled"},
		{"motoring", "motor"},
		{"sing", "sing"},
		{"conflated", "conflat"},
		{"troubled", "troubl"},
		{"sized", "size"},
		{"happy", "happi"},
		{"relational", "relat"},
		{"conditional", "condit"},
		{"triplicate", "triplic"},
		{"formative", "form"},
		{"electricity", "electr"},
		{"hopefulness", "hope"},
		{"controll", "control"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Stem(tt.in); got != tt.want {
				t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStem_ShortWordsUnchanged(t *testing.T) {
	for _, w := range []string{"a", "an", "is", "it"} {
		if got := Stem(w); got != w {
			t.Errorf("Stem(%q) = %q, want unchanged", w, got)
		}
	}
}

func TestStem_Idempotent(t *testing.T) {
	words := []string{"running", "happiness", "generalization", "argument"}
	for _, w := range words {
		once := Stem(w)
		twice := Stem(once)
		if once != twice {
			t.Errorf("Stem not idempotent for %q: %q vs %q", w, once, twice)
		}
	}
}
