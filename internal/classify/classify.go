// Package classify decides whether a Reddit comment is a transcription and
// whether it can serve as a gamma reference comment.
package classify

import (
	"strconv"
	"strings"
	"time"
)

// templateCutover is the date the required transcription footer template
// changed on r/TranscribersOfReddit. Comments created on or after this date
// are matched against the current template, older ones against the legacy
// wording.
var templateCutover = time.Date(2018, time.November, 20, 0, 0, 0, 0, time.UTC)

const (
	footerURL   = "www.reddit.com/r/TranscribersOfReddit"
	footerSpace = "&#32;"
)

// legacySubstrings must all appear in the case-folded body of a
// pre-cutover transcription.
var legacySubstrings = []string{
	"human",
	"content",
	"volunteer",
	"transcriber",
	"r/transcribersofreddit/wiki/index",
}

// IsTranscription reports whether a comment body matches the transcription
// footer template that was in force when the comment was created.
func IsTranscription(body string, created time.Time) bool {
	if !created.Before(templateCutover) {
		return strings.Contains(body, footerURL) && strings.Contains(body, footerSpace)
	}

	folded := strings.ToLower(body)
	for _, s := range legacySubstrings {
		if !strings.Contains(folded, s) {
			return false
		}
	}
	return true
}

// ReferenceVerdict is the outcome of checking a comment as a gamma
// reference candidate.
type ReferenceVerdict int

const (
	// NotApplicable means the comment is outside the home subreddit or
	// carries no flair at all; it was never a candidate.
	NotApplicable ReferenceVerdict = iota
	// Rejected means the comment looked like a candidate but its flair
	// does not start with a numeric gamma token.
	Rejected
	// Eligible means the comment can be bound as the reference comment.
	Eligible
)

// CheckReference evaluates a comment as a reference-comment candidate.
// The comment must belong to the home subreddit and carry flair whose first
// whitespace-delimited token is a non-negative integer.
func CheckReference(subreddit string, flair *string, home string) ReferenceVerdict {
	if !strings.EqualFold(subreddit, home) || flair == nil || *flair == "" {
		return NotApplicable
	}

	token, _, _ := strings.Cut(strings.TrimSpace(*flair), " ")
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || n < 0 {
		return Rejected
	}
	return Eligible
}
