package latencycheck

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseThresholds parses a comma-separated list of confidence thresholds,
// for example "90,20".
func ParseThresholds(s string) ([]int, error) {
	var result []int
	for _, word := range strings.Split(s, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		v, err := strconv.Atoi(word)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold '%s': %w", word, err)
		}
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("threshold %d is out of range 0..100", v)
		}
		result = append(result, v)
	}
	return result, nil
}

// ApplyThresholds assigns thresholds to refs in order; the references beyond
// the list get the last threshold. An empty list leaves refs untouched.
func ApplyThresholds(refs []Reference, thresholds []int) {
	if len(thresholds) == 0 {
		return
	}
	for idx := range refs {
		refs[idx].Threshold = thresholds[min(idx, len(thresholds)-1)]
	}
}
