package classify

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

const modernFooter = "^^I'm&#32;a&#32;human&#32;volunteer! [More info](https://www.reddit.com/r/TranscribersOfReddit/wiki/index)"

const legacyFooter = "I'm a human volunteer content transcriber for Reddit! " +
	"If you'd like more information on what we do and why we do it, " +
	"click here: r/TranscribersOfReddit/wiki/index"

func TestIsTranscriptionModern(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		created time.Time
		want    bool
	}{
		{"full modern footer", "*Image Transcription*\n\n---\n" + modernFooter, date(2019, 3, 1), true},
		{"url without space marker", "see www.reddit.com/r/TranscribersOfReddit for details", date(2019, 3, 1), false},
		{"space marker without url", "weird&#32;spacing here", date(2019, 3, 1), false},
		{"plain comment", "nice picture!", date(2019, 3, 1), false},
		{"on the cutover date uses modern rule", legacyFooter, date(2018, 11, 20), false},
		{"modern footer on cutover date", modernFooter, date(2018, 11, 20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTranscription(tt.body, tt.created); got != tt.want {
				t.Errorf("IsTranscription() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTranscriptionLegacy(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"full legacy footer", "*Image Transcription*\n\n---\n" + legacyFooter, true},
		{"mixed case legacy footer", "HUMAN Volunteer CONTENT Transcriber R/TranscribersOfReddit/Wiki/Index", true},
		{"missing volunteer", "human content transcriber r/transcribersofreddit/wiki/index", false},
		{"missing wiki path", "human content volunteer transcriber", false},
		{"modern footer before cutover", modernFooter, false},
		{"empty body", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTranscription(tt.body, date(2017, 6, 1)); got != tt.want {
				t.Errorf("IsTranscription() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckReference(t *testing.T) {
	flair := func(s string) *string { return &s }

	tests := []struct {
		name      string
		subreddit string
		flair     *string
		want      ReferenceVerdict
	}{
		{"numeric flair in home sub", "TranscribersOfReddit", flair("137 Γ"), Eligible},
		{"bare number", "TranscribersOfReddit", flair("42"), Eligible},
		{"zero gamma", "TranscribersOfReddit", flair("0 Γ"), Eligible},
		{"home sub compared case-insensitively", "transcribersofreddit", flair("5 Γ"), Eligible},
		{"non-numeric leading token", "TranscribersOfReddit", flair("Moderator"), Rejected},
		{"negative gamma token", "TranscribersOfReddit", flair("-3 Γ"), Rejected},
		{"wrong subreddit", "pics", flair("137 Γ"), NotApplicable},
		{"no flair", "TranscribersOfReddit", nil, NotApplicable},
		{"empty flair", "TranscribersOfReddit", flair(""), NotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckReference(tt.subreddit, tt.flair, "TranscribersOfReddit"); got != tt.want {
				t.Errorf("CheckReference() = %v, want %v", got, tt.want)
			}
		})
	}
}
