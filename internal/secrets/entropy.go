package secrets

import "math"

// ShannonEntropy calculates the Shannon entropy of a string. Higher
// entropy indicates more randomness, which is characteristic of secrets.
// Typical thresholds:
//   - < 2.0: very low entropy (likely not a secret)
//   - 2.0-3.0: low entropy (probably not a secret)
//   - 3.0-4.0: medium entropy (possible secret, needs verification)
//   - > 4.0: high entropy (likely a secret)
func ShannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}

	length := float64(len(s))
	var entropy float64

	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}
