// Package crawl implements the incremental bidirectional comment crawler
// and the gamma re-check that feeds announcements.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lornebot/torstats/internal/classify"
	"github.com/lornebot/torstats/internal/database"
	"github.com/lornebot/torstats/internal/gamma"
	"github.com/lornebot/torstats/internal/reddit"
)

// Source provides the comment listings and details the engine consumes.
// *reddit.Client satisfies it; tests script it.
type Source interface {
	Newest(ctx context.Context, user string) (*reddit.Post, error)
	Before(ctx context.Context, user, cursor string, limit int) ([]reddit.Post, error)
	After(ctx context.Context, user, cursor string, limit int) ([]reddit.Post, error)
	Detail(ctx context.Context, id string) (*reddit.Post, error)
}

// Notifier receives gamma changes worth announcing. oldGamma is nil on the
// first reading for a transcriber.
type Notifier interface {
	GammaChanged(ctx context.Context, t database.Transcriber, oldGamma *int64, newGamma int64) error
}

// Result summarizes one crawl round.
type Result struct {
	Users             int
	Scanned           int
	Transcriptions    int
	NewTranscriptions int
	Invalidated       int
}

// Engine runs the per-user crawl state machine.
type Engine struct {
	db        *database.DB
	source    Source
	notifier  Notifier
	batchSize int
	home      string
	ignore    map[string]struct{}
}

// New creates an engine. The batch size is validated here: requesting more
// than Reddit's listing ceiling is a programming error, not a runtime
// condition, so it must fail before any external call.
func New(db *database.DB, source Source, notifier Notifier, batchSize int, homeSubreddit string, ignore []string) (*Engine, error) {
	if batchSize < 1 || batchSize > reddit.MaxBatch {
		return nil, fmt.Errorf("crawl: batch size %d out of range 1..%d", batchSize, reddit.MaxBatch)
	}

	ignored := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ignored[strings.ToLower(name)] = struct{}{}
	}

	return &Engine{
		db:        db,
		source:    source,
		notifier:  notifier,
		batchSize: batchSize,
		home:      homeSubreddit,
		ignore:    ignored,
	}, nil
}

// ScanAll runs one round over every known transcriber. Failures are
// isolated per user; the context is checked between users so a round can
// be aborted cleanly at those checkpoints.
func (e *Engine) ScanAll(ctx context.Context) (*Result, error) {
	transcribers, err := e.db.ListTranscribers()
	if err != nil {
		return nil, fmt.Errorf("listing transcribers: %w", err)
	}

	r := &Result{}
	for _, t := range transcribers {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		r.Users++
		if err := e.scanUser(ctx, t.Name, r); err != nil {
			log.Printf("error scanning /u/%s: %v", t.Name, err)
		}
	}
	return r, nil
}

// ScanUser runs one round for a single user, creating the transcriber row
// on first sighting.
func (e *Engine) ScanUser(ctx context.Context, name string) error {
	if _, err := e.db.EnsureTranscriber(name); err != nil {
		return err
	}
	return e.scanUser(ctx, name, &Result{})
}

func (e *Engine) scanUser(ctx context.Context, name string, r *Result) error {
	if _, ok := e.ignore[strings.ToLower(name)]; ok {
		log.Printf("/u/%s ignored", name)
		return nil
	}

	t, err := e.db.GetTranscriber(name)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("unknown transcriber %s", name)
	}

	// The newest-comment probe doubles as the validity check: an account
	// that resolves and has comments is valid, whatever the stored flag
	// says. This is also how an invalid account recovers.
	newest, err := e.source.Newest(ctx, name)
	if errors.Is(err, reddit.ErrNotFound) {
		log.Printf("/u/%s is not a valid redditor", name)
		r.Invalidated++
		return e.db.SetValid(name, false)
	}
	if err != nil {
		log.Printf("transient error fetching newest comment for /u/%s: %v", name, err)
		return nil
	}
	if newest == nil {
		log.Printf("/u/%s has no comments, cannot fetch their stats", name)
		r.Invalidated++
		return e.db.SetValid(name, false)
	}
	if !t.Valid {
		if err := e.db.SetValid(name, true); err != nil {
			return err
		}
		t.Valid = true
	}

	if t.ReferenceComment != nil {
		if err := e.recheckGamma(ctx, name); err != nil {
			return err
		}
	}

	// t.Valid was fixed up above, so the derived state is never invalid
	// here; a recovered account resumes from whatever cursors it kept.
	state := stateOf(t)
	switch state.phase {
	case phaseUninitialized:
		return e.seed(ctx, t, newest, r)
	case phaseForward:
		if newest.ID == state.cursor {
			log.Printf("/u/%s has no unchecked comments", name)
			return nil
		}
		return e.scanForward(ctx, t, state.cursor, r)
	case phaseBackward:
		return e.scanBackward(ctx, t, state.cursor, r)
	}
	return nil
}

// seed initializes both cursors to the newest comment. The scanned range
// is exclusive of its endpoints, so the seed comment itself is classified
// here or it would never be.
func (e *Engine) seed(ctx context.Context, t *database.Transcriber, newest *reddit.Post, r *Result) error {
	log.Printf("seeding cursors for /u/%s at comment %s", t.Name, newest.ID)

	batch := e.processBatch(t, []reddit.Post{*newest})
	batch.NewStart = &newest.ID
	batch.NewEnd = &newest.ID
	forwards := false
	batch.SetForwards = &forwards

	return e.applyBatch(ctx, t.Name, batch, r)
}

// scanForward reads comments newer than the start cursor. An empty batch
// means the user is caught up and nothing is written.
func (e *Engine) scanForward(ctx context.Context, t *database.Transcriber, cursor string, r *Result) error {
	log.Printf("fetching up to %d comments for /u/%s reading forwards from %s", e.batchSize, t.Name, cursor)

	posts, err := e.source.Before(ctx, t.Name, cursor, e.batchSize)
	if err != nil {
		return e.invalidate(t.Name, err, r)
	}
	if len(posts) == 0 {
		log.Printf("reached /u/%s's newest comment, no comments to read", t.Name)
		return nil
	}

	batch := e.processBatch(t, posts)
	// Listings are newest first; the first element becomes the new upper
	// bound even when the batch came back short.
	batch.NewStart = &posts[0].ID

	return e.applyBatch(ctx, t.Name, batch, r)
}

// scanBackward reads comments older than the end cursor. Once the backlog
// is exhausted (empty or short batch), all future rounds go forwards.
func (e *Engine) scanBackward(ctx context.Context, t *database.Transcriber, cursor string, r *Result) error {
	log.Printf("fetching up to %d comments for /u/%s reading backwards from %s", e.batchSize, t.Name, cursor)

	posts, err := e.source.After(ctx, t.Name, cursor, e.batchSize)
	if err != nil {
		return e.invalidate(t.Name, err, r)
	}

	forwards := true
	if len(posts) == 0 {
		log.Printf("reached the end of /u/%s's comments", t.Name)
		return e.applyBatch(ctx, t.Name, &database.ScanBatch{
			Transcriber: t.Name,
			SetForwards: &forwards,
		}, r)
	}

	batch := e.processBatch(t, posts)
	batch.NewEnd = &posts[len(posts)-1].ID
	if len(posts) < e.batchSize {
		log.Printf("reached the end of /u/%s's comments", t.Name)
		batch.SetForwards = &forwards
	}

	return e.applyBatch(ctx, t.Name, batch, r)
}

// processBatch classifies every fetched comment. Each one counts toward
// counted_comments whether or not it matched. The first eligible reference
// candidate in batch order wins; later ones are ignored.
func (e *Engine) processBatch(t *database.Transcriber, posts []reddit.Post) *database.ScanBatch {
	batch := &database.ScanBatch{
		Transcriber: t.Name,
		Counted:     len(posts),
	}

	for _, p := range posts {
		if classify.IsTranscription(p.Body, p.Created) {
			batch.Transcriptions = append(batch.Transcriptions, database.NewTranscription{
				CommentID: p.ID,
				Content:   p.Body,
				Subreddit: p.SubredditID,
				Created:   p.Created.Format("2006-01-02 15:04:05"),
			})
			continue
		}
		if t.ReferenceComment == nil && batch.BindReference == nil &&
			classify.CheckReference(p.Subreddit, p.FlairText, e.home) == classify.Eligible {
			log.Printf("setting reference comment for /u/%s to %s", t.Name, p.ID)
			id := p.ID
			batch.BindReference = &id
		}
	}
	return batch
}

// applyBatch commits the batch atomically, then runs the gamma re-check if
// this batch bound a fresh reference comment.
func (e *Engine) applyBatch(ctx context.Context, name string, batch *database.ScanBatch, r *Result) error {
	inserted, err := e.db.ApplyScanBatch(batch)
	if err != nil {
		return err
	}

	r.Scanned += batch.Counted
	r.Transcriptions += len(batch.Transcriptions)
	r.NewTranscriptions += inserted
	if len(batch.Transcriptions) > 0 {
		log.Printf("found %d transcriptions for /u/%s, %d new", len(batch.Transcriptions), name, inserted)
	}

	if batch.BindReference != nil {
		return e.recheckGamma(ctx, name)
	}
	return nil
}

// invalidate marks a user invalid after a failed listing fetch. The round
// continues with other users.
func (e *Engine) invalidate(name string, cause error, r *Result) error {
	log.Printf("WARNING: listing fetch failed for /u/%s, marking invalid: %v", name, cause)
	r.Invalidated++
	return e.db.SetValid(name, false)
}

// recheckGamma re-reads the flair on the bound reference comment and
// records any change. A reference whose flair disappeared is unbound so a
// new one can be found; a flair that no longer parses leaves the stored
// count untouched.
func (e *Engine) recheckGamma(ctx context.Context, name string) error {
	t, err := e.db.GetTranscriber(name)
	if err != nil {
		return err
	}
	if t == nil || t.ReferenceComment == nil {
		return nil
	}

	post, err := e.source.Detail(ctx, *t.ReferenceComment)
	if errors.Is(err, reddit.ErrNotFound) {
		log.Printf("WARNING: reference comment %s for /u/%s is gone, unbinding", *t.ReferenceComment, name)
		return e.db.ClearReference(name)
	}
	if err != nil {
		log.Printf("transient error fetching reference comment for /u/%s: %v", name, err)
		return nil
	}

	if post.FlairText == nil || *post.FlairText == "" {
		log.Printf("WARNING: no flair on /u/%s's reference comment %s, unbinding", name, *t.ReferenceComment)
		return e.db.ClearReference(name)
	}

	official, err := gamma.Extract(*post.FlairText)
	if err != nil {
		log.Printf("WARNING: %v for /u/%s, keeping stored gamma", err, name)
		return nil
	}

	old := t.OfficialGammaCount
	if old != nil && *old == official {
		log.Printf("/u/%s has %dΓ, no change", name, official)
		return nil
	}

	if err := e.db.RecordGammaChange(name, old, official); err != nil {
		return err
	}

	if old != nil && official < *old {
		// Gamma is expected to be monotone upstream; a decrease is a data
		// anomaly worth recording but not celebrating.
		log.Printf("WARNING: gamma for /u/%s decreased from %dΓ to %dΓ", name, *old, official)
		return nil
	}

	if old == nil {
		log.Printf("first gamma check for /u/%s, they have %dΓ", name, official)
	} else {
		log.Printf("/u/%s got from %dΓ to %dΓ", name, *old, official)
	}

	if err := e.notifier.GammaChanged(ctx, *t, old, official); err != nil {
		log.Printf("error announcing gamma change for /u/%s: %v", name, err)
	}
	return nil
}
