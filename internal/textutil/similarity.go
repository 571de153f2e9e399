package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return min(1, dot/(a.norm*b.norm))
}

// TextSimilarity compares two texts by token cosine similarity. Two texts
// without any tokens are treated as identical.
func TextSimilarity(a, b string) float64 {
	fa, fb := NewFingerprint(a), NewFingerprint(b)
	if fa == nil && fb == nil {
		return 1
	}
	return CosineSimilarity(fa, fb)
}
