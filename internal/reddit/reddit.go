// Package reddit is a minimal client for the public Reddit JSON API,
// covering the listing and comment-detail calls the crawler needs.
package reddit

import (
	"errors"
	"time"
)

// MaxBatch is Reddit's hard page-size ceiling for a single listing request.
const MaxBatch = 100

// ErrNotFound signals that an account or comment cannot be resolved.
// It is not retryable; any other fetch error is considered transient.
var ErrNotFound = errors.New("reddit: not found")

// Post is one comment as exposed by the API. Replies holds direct replies
// (each of which may carry its own nested Replies) and is only populated
// by Detail.
type Post struct {
	ID          string
	Author      string
	Body        string
	Created     time.Time
	Subreddit   string
	SubredditID string
	FlairText   *string
	Score       int
	Permalink   string
	LinkID      string
	Replies     []Post
}

// Fullname returns the API's t1_-prefixed comment identifier.
func (p Post) Fullname() string {
	return "t1_" + p.ID
}
