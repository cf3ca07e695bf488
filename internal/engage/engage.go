// Package engage refreshes per-transcription engagement counters: reply
// tallies like "good bot" and the comment's score.
package engage

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/lornebot/torstats/internal/database"
	"github.com/lornebot/torstats/internal/reddit"
)

// Source fetches a single comment with its reply tree. *reddit.Client
// satisfies it; tests script it.
type Source interface {
	Detail(ctx context.Context, id string) (*reddit.Post, error)
}

// Result summarizes one engagement round.
type Result struct {
	Checked int
	Updated int
	Errors  int
}

// Analyzer refreshes engagement counters for recent transcriptions.
type Analyzer struct {
	db          *database.DB
	source      Source
	retries     int
	windowHours int
}

func New(db *database.DB, source Source, retries, windowHours int) *Analyzer {
	if retries < 1 {
		retries = 1
	}
	return &Analyzer{db: db, source: source, retries: retries, windowHours: windowHours}
}

// RefreshAll refreshes every transcription due for a check. A comment that
// cannot be fetched gets its counters zeroed and its error flag set, so a
// row never carries stale numbers presented as current.
func (a *Analyzer) RefreshAll(ctx context.Context) (*Result, error) {
	ids, err := a.db.GetTranscriptionsNeedingRefresh(a.windowHours)
	if err != nil {
		return nil, err
	}

	r := &Result{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		r.Checked++
		updated, err := a.refresh(ctx, id)
		if err != nil {
			return r, err
		}
		if updated {
			r.Updated++
		} else {
			r.Errors++
		}
	}
	return r, nil
}

// refresh fetches one comment and writes the outcome. It only returns an
// error when the database write fails; fetch failures are absorbed into the
// row's error flag.
func (a *Analyzer) refresh(ctx context.Context, id string) (bool, error) {
	post, err := a.fetch(ctx, id)
	if err != nil {
		log.Printf("giving up on comment %s: %v", id, err)
		return false, a.db.MarkEngagementError(id)
	}

	return true, a.db.UpdateEngagement(id, Tally(post))
}

// fetch retries transient failures a fixed number of times. A missing
// comment is permanent and not retried.
func (a *Analyzer) fetch(ctx context.Context, id string) (*reddit.Post, error) {
	var lastErr error
	for attempt := 1; attempt <= a.retries; attempt++ {
		post, err := a.source.Detail(ctx, id)
		if err == nil {
			return post, nil
		}
		if errors.Is(err, reddit.ErrNotFound) {
			return nil, err
		}
		lastErr = err
		log.Printf("attempt %d/%d fetching comment %s failed: %v", attempt, a.retries, id, err)
	}
	return nil, lastErr
}

// Tally computes engagement counters from a fetched comment. Phrase counts
// cover direct replies only; nested discussion is about the thread, not the
// transcription.
func Tally(post *reddit.Post) database.Engagement {
	e := database.Engagement{
		CommentCount: len(post.Replies),
		Upvotes:      post.Score,
	}
	for _, reply := range post.Replies {
		body := strings.ToLower(reply.Body)
		if strings.Contains(body, "good bot") {
			e.GoodBot++
		}
		if strings.Contains(body, "bad bot") {
			e.BadBot++
		}
		if strings.Contains(body, "good human") {
			e.GoodHuman++
		}
		if strings.Contains(body, "bad human") {
			e.BadHuman++
		}
	}
	return e
}
