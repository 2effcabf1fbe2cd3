package cli

// Similar reports whether a and b differ by at most threshold characters
// when compared as bags of runes. Order is ignored: only the counts of each
// rune matter, so anagrams are always similar.
func Similar(a, b string, threshold int) bool {
	return bagDistance(a, b) <= threshold
}

// bagDistance returns the size of the multiset symmetric difference of the
// runes of a and b.
func bagDistance(a, b string) int {
	counts := make(map[rune]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	for _, r := range b {
		counts[r]--
	}
	dist := 0
	for _, c := range counts {
		if c < 0 {
			c = -c
		}
		dist += c
	}
	return dist
}
