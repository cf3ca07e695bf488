package database

// Transcriber is the persisted crawl state for one tracked redditor.
// StartComment and EndComment bound the already-scanned range; both are nil
// until the first scan seeds them. Forwards selects the scan direction for
// the next round.
type Transcriber struct {
	Name               string
	StartComment       *string
	EndComment         *string
	Forwards           bool
	ReferenceComment   *string
	Valid              bool
	OfficialGammaCount *int64
	CountedComments    int64
	DiscordID          *string
}

// Transcription is one discovered transcription comment plus the engagement
// counters the analyzer keeps refreshed.
type Transcription struct {
	ID          int64
	CommentID   string
	Transcriber string
	Content     string
	Subreddit   string
	Found       *string
	Created     string

	GoodBot      int
	BadBot       int
	GoodHuman    int
	BadHuman     int
	CommentCount int
	Upvotes      int
	LastChecked  *string
	Error        bool
}

// GammaEvent is one append-only record of a detected gamma change.
// OldGamma is nil on the first reading for a transcriber.
type GammaEvent struct {
	ID          int64
	Transcriber string
	OldGamma    *int64
	NewGamma    int64
	Time        *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Transcribers        int
	ValidTranscribers   int
	Transcriptions      int
	TranscriptionErrors int
	GammaEvents         int
	CountedComments     int64
}

// LeaderboardEntry is one row of the gamma leaderboard.
type LeaderboardEntry struct {
	Name           string
	Gamma          int64
	Transcriptions int
	Valid          bool
}
