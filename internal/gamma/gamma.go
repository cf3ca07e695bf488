// Package gamma parses gamma counts out of subreddit flair text and maps
// them onto the flair rank ladder.
package gamma

import (
	"fmt"
	"strconv"
	"strings"
)

// Extract parses the leading whitespace-delimited token of a flair string
// as a gamma count. A non-numeric token is a parse failure, never a zero;
// callers decide whether to ignore it.
func Extract(flair string) (int64, error) {
	token, _, _ := strings.Cut(strings.TrimSpace(flair), " ")
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("flair %q has no leading gamma count", flair)
	}
	return n, nil
}

// Thresholds are the gamma values that trigger a rank announcement when
// crossed, in ascending order. Each is the inclusive lower bound of a
// celebrated flair tier.
var Thresholds = []int64{51, 101, 251, 501, 1001, 2501, 5000}

// CrossedThresholds returns every announcement threshold t with
// old < t <= new, in ascending order. A single large jump may cross
// several tiers at once.
func CrossedThresholds(old, new int64) []int64 {
	var crossed []int64
	for _, t := range Thresholds {
		if old < t && t <= new {
			crossed = append(crossed, t)
		}
	}
	return crossed
}
