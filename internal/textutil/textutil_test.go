package textutil

import "testing"

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		lo, hi float64
	}{
		{"identical", "the quick brown fox", "the quick brown fox", 0.999999, 1},
		{"case and accents", "Café Résumé", "café résumé", 0.999999, 1},
		{"disjoint", "apple banana cherry", "dog elephant frog", 0, 0},
		{"partial", "gradient descent converges slowly", "gradient descent converges quickly", 0.5, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(NewFingerprint(tt.a), NewFingerprint(tt.b))
			if got < tt.lo || got > tt.hi {
				t.Fatalf("CosineSimilarity(%q, %q) = %v, want [%v,%v]", tt.a, tt.b, got, tt.lo, tt.hi)
			}
		})
	}
	if got := CosineSimilarity(nil, NewFingerprint("text here")); got != 0 {
		t.Fatalf("expected 0 for nil fingerprint, got %v", got)
	}
}

func TestTextSimilarityEmpty(t *testing.T) {
	if got := TextSimilarity("", "  "); got != 1 {
		t.Fatalf("expected empty texts to match, got %v", got)
	}
	if got := TextSimilarity("", "words here"); got != 0 {
		t.Fatalf("expected empty vs text to be 0, got %v", got)
	}
}

func TestTokenizeDropsSingleCharacters(t *testing.T) {
	got := Tokenize("A matrix, x and y: O(n²) time")
	want := []string{"matrix", "and", "time"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
}

func TestNormalizeComposesAndCollapses(t *testing.T) {
	decomposed := "Café\n\n  menu\t"
	if got := Normalize(decomposed); got != "Café menu" {
		t.Fatalf("Normalize = %q", got)
	}
	if got := SingleLine("line one\nline\ttwo"); got != "line one line two" {
		t.Fatalf("SingleLine = %q", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("intro_to-graph.theory"); got != "Intro To Graph Theory" {
		t.Fatalf("Title = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(" Week 3: Trees/Heaps? "); got != "Week 3- Trees-Heaps" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}
