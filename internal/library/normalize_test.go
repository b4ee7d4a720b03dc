package library

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "HELLO World", "hello world"},
		{"punctuation", "Don't Stop Me Now!", "don t stop me now"},
		{"whitespace", "  too   many	spaces ", "too many spaces"},
		{"empty", "", ""},
		{"only punctuation", "...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompositeKey_CaseInsensitive(t *testing.T) {
	a := CompositeKey("Title", "Artist", "Album")
	b := CompositeKey("TITLE", "artist", "ALBUM")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestCompositeKey_FieldsDoNotBleed(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc" across field boundaries.
	a := CompositeKey("ab", "c", "")
	b := CompositeKey("a", "bc", "")
	if a == b {
		t.Error("field boundary collision")
	}
}
