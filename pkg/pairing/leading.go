package pairing

import (
	"github.com/xaionaro-go/audiolat/pkg/scanner"
)

// SelectLeadingLabel returns the label with the most markers; ties are
// resolved in favour of the label seen first.
//
// This encodes an assumption of the experiment, not a general rule: the
// round-trip start signal is the marker that repeats the most (it works as
// a clock), every other marker is a response to it.
func SelectLeadingLabel(markers []scanner.Marker) string {
	counts := map[string]int{}
	var order []string
	for _, m := range markers {
		if _, ok := counts[m.Label]; !ok {
			order = append(order, m.Label)
		}
		counts[m.Label]++
	}

	var (
		leading  string
		maxCount int
	)
	for _, label := range order {
		if counts[label] > maxCount {
			maxCount = counts[label]
			leading = label
		}
	}
	return leading
}

// SplitByLeadingLabel separates the markers of the leading label from the
// rest, preserving the order of both.
func SplitByLeadingLabel(markers []scanner.Marker) (leadingLabel string, leading, trailing []scanner.Marker) {
	leadingLabel = SelectLeadingLabel(markers)
	for _, m := range markers {
		if m.Label == leadingLabel {
			leading = append(leading, m)
		} else {
			trailing = append(trailing, m)
		}
	}
	return
}
