package crawl

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lornebot/torstats/internal/database"
	"github.com/lornebot/torstats/internal/reddit"
)

const home = "TranscribersOfReddit"

const transcriptionBody = "*Image Transcription*\n\n---\n" +
	"^^I'm&#32;a&#32;human&#32;volunteer! [More info](https://www.reddit.com/r/TranscribersOfReddit/wiki/index)"

// fakeSource scripts listing responses. Before/After pop one batch per call.
type fakeSource struct {
	newest    *reddit.Post
	newestErr error

	before    [][]reddit.Post
	beforeErr error
	after     [][]reddit.Post
	afterErr  error

	detail    map[string]*reddit.Post
	detailErr error

	beforeCalls int
	afterCalls  int
}

func (f *fakeSource) Newest(ctx context.Context, user string) (*reddit.Post, error) {
	return f.newest, f.newestErr
}

func (f *fakeSource) Before(ctx context.Context, user, cursor string, limit int) ([]reddit.Post, error) {
	f.beforeCalls++
	if f.beforeErr != nil {
		return nil, f.beforeErr
	}
	if len(f.before) == 0 {
		return nil, nil
	}
	batch := f.before[0]
	f.before = f.before[1:]
	return batch, nil
}

func (f *fakeSource) After(ctx context.Context, user, cursor string, limit int) ([]reddit.Post, error) {
	f.afterCalls++
	if f.afterErr != nil {
		return nil, f.afterErr
	}
	if len(f.after) == 0 {
		return nil, nil
	}
	batch := f.after[0]
	f.after = f.after[1:]
	return batch, nil
}

func (f *fakeSource) Detail(ctx context.Context, id string) (*reddit.Post, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if p, ok := f.detail[id]; ok {
		return p, nil
	}
	return nil, reddit.ErrNotFound
}

type notification struct {
	user     string
	oldGamma *int64
	newGamma int64
}

type fakeNotifier struct {
	calls []notification
}

func (f *fakeNotifier) GammaChanged(ctx context.Context, t database.Transcriber, oldGamma *int64, newGamma int64) error {
	f.calls = append(f.calls, notification{user: t.Name, oldGamma: oldGamma, newGamma: newGamma})
	return nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEngine(t *testing.T, db *database.DB, src Source, n Notifier) *Engine {
	t.Helper()
	e, err := New(db, src, n, 3, home, nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func post(id, body, subreddit string, flair *string, created time.Time) reddit.Post {
	return reddit.Post{
		ID:          id,
		Author:      "someone",
		Body:        body,
		Created:     created,
		Subreddit:   subreddit,
		SubredditID: "t5_" + subreddit,
		FlairText:   flair,
	}
}

func flair(s string) *string  { return &s }
func gammaPtr(n int64) *int64 { return &n }

var modern = time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)

func TestNewBatchSizeFailsFast(t *testing.T) {
	db := openTestDB(t)
	if _, err := New(db, &fakeSource{}, &fakeNotifier{}, 101, home, nil); err == nil {
		t.Error("expected error for batch size > 100")
	}
	if _, err := New(db, &fakeSource{}, &fakeNotifier{}, 0, home, nil); err == nil {
		t.Error("expected error for batch size < 1")
	}
}

func TestSeedClassifiesSeedComment(t *testing.T) {
	db := openTestDB(t)
	seed := post("abc", transcriptionBody, "pics", nil, modern)
	src := &fakeSource{newest: &seed}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "newbie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("newbie")
	if tr.StartComment == nil || *tr.StartComment != "abc" {
		t.Errorf("expected start_comment=abc, got %v", tr.StartComment)
	}
	if tr.EndComment == nil || *tr.EndComment != "abc" {
		t.Errorf("expected end_comment=abc, got %v", tr.EndComment)
	}
	if tr.Forwards {
		t.Error("expected forwards=false after seeding")
	}

	row, _ := db.GetTranscription("abc")
	if row == nil {
		t.Fatal("expected the seed comment itself to be classified")
	}

	// The next round must not classify the seed again: the scanned range
	// excludes both endpoints.
	src.after = [][]reddit.Post{nil}
	if err := e.ScanUser(context.Background(), "newbie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, _ = db.GetTranscriber("newbie")
	if tr.CountedComments != 1 {
		t.Errorf("expected the seed to be counted exactly once, got %d", tr.CountedComments)
	}
}

func TestBackwardShortBatchAdvancesAndFlips(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("worker")
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "worker",
		NewStart:    strPtr("newest"),
		NewEnd:      strPtr("newest"),
	})

	newest := post("newest", "hello", "pics", nil, modern)
	src := &fakeSource{
		newest: &newest,
		after: [][]reddit.Post{{
			post("m1", transcriptionBody, "pics", nil, modern),
			post("m2", "plain reply", "pics", nil, modern),
		}},
	}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "worker"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("worker")
	if tr.EndComment == nil || *tr.EndComment != "m2" {
		t.Errorf("expected end_comment advanced to oldest fetched id m2, got %v", tr.EndComment)
	}
	if !tr.Forwards {
		t.Error("expected short backward batch to flip forwards=true")
	}
	if tr.CountedComments != 2 {
		t.Errorf("expected counted_comments=2, got %d", tr.CountedComments)
	}
	if row, _ := db.GetTranscription("m1"); row == nil {
		t.Error("expected transcription m1 recorded")
	}
}

func TestBackwardEmptyBatchFlipsOnly(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("done")
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "done",
		NewStart:    strPtr("s1"),
		NewEnd:      strPtr("e1"),
	})

	newest := post("s2", "hello", "pics", nil, modern)
	src := &fakeSource{newest: &newest, after: [][]reddit.Post{nil}}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("done")
	if !tr.Forwards {
		t.Error("expected forwards=true after exhausted backlog")
	}
	if *tr.EndComment != "e1" {
		t.Errorf("expected end_comment unchanged, got %v", *tr.EndComment)
	}
	if tr.CountedComments != 0 {
		t.Errorf("expected nothing counted, got %d", tr.CountedComments)
	}
}

func TestForwardEmptyBatchNoWrites(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("caughtup")
	fwd := true
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "caughtup",
		NewStart:    strPtr("s1"),
		NewEnd:      strPtr("e1"),
		SetForwards: &fwd,
	})

	newest := post("brandnew", "hello", "pics", nil, modern)
	src := &fakeSource{newest: &newest, before: [][]reddit.Post{nil}}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "caughtup"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("caughtup")
	if *tr.StartComment != "s1" {
		t.Errorf("expected start_comment unchanged, got %v", *tr.StartComment)
	}
	if !tr.Forwards {
		t.Error("expected forwards to stay true")
	}
	if tr.CountedComments != 0 {
		t.Errorf("expected nothing counted, got %d", tr.CountedComments)
	}
}

func TestForwardAdvancesToNewestFetched(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("active")
	fwd := true
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "active",
		NewStart:    strPtr("s1"),
		NewEnd:      strPtr("e1"),
		SetForwards: &fwd,
	})

	newest := post("n1", "hello", "pics", nil, modern)
	src := &fakeSource{
		newest: &newest,
		// Newest first, short batch: start still advances.
		before: [][]reddit.Post{{
			post("n1", "hello", "pics", nil, modern),
			post("n2", transcriptionBody, "pics", nil, modern),
		}},
	}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "active"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("active")
	if *tr.StartComment != "n1" {
		t.Errorf("expected start_comment=n1, got %v", *tr.StartComment)
	}
	if !tr.Forwards {
		t.Error("forward scan must never flip direction")
	}
	if row, _ := db.GetTranscription("n2"); row == nil {
		t.Error("expected transcription n2 recorded")
	}
}

func TestForwardCaughtUpFastPath(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("idle")
	fwd := true
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "idle",
		NewStart:    strPtr("same"),
		NewEnd:      strPtr("e1"),
		SetForwards: &fwd,
	})

	newest := post("same", "hello", "pics", nil, modern)
	src := &fakeSource{newest: &newest}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "idle"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.beforeCalls != 0 {
		t.Error("expected no listing fetch when the newest comment is the cursor")
	}
}

func TestRescanDoesNotDuplicate(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("repeat")
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "repeat",
		NewStart:    strPtr("s1"),
		NewEnd:      strPtr("e1"),
	})

	newest := post("s1", "hello", "pics", nil, modern)
	batch := []reddit.Post{post("m1", transcriptionBody, "pics", nil, modern)}
	src := &fakeSource{newest: &newest, after: [][]reddit.Post{batch, batch}}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	e.ScanUser(context.Background(), "repeat")
	// Second round resends the same batch (short batches flip direction,
	// so reset it for a like-for-like rescan).
	db.ApplyScanBatch(&database.ScanBatch{Transcriber: "repeat", SetForwards: boolPtr(false)})
	e.ScanUser(context.Background(), "repeat")

	rows, _ := db.GetTranscriptionsForTranscriber("repeat", 10)
	if len(rows) != 1 {
		t.Errorf("expected 1 transcription after rescan, got %d", len(rows))
	}
}

func TestNotFoundInvalidatesUser(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("deleted")
	src := &fakeSource{newestErr: reddit.ErrNotFound}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "deleted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, _ := db.GetTranscriber("deleted")
	if tr.Valid {
		t.Error("expected valid=false for unresolvable account")
	}
}

func TestInvalidUserRecovers(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("phoenix")
	db.SetValid("phoenix", false)
	db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "phoenix",
		NewStart:    strPtr("s1"),
		NewEnd:      strPtr("e1"),
	})

	newest := post("s2", "hello", "pics", nil, modern)
	src := &fakeSource{newest: &newest, after: [][]reddit.Post{nil}}
	e := newTestEngine(t, db, src, &fakeNotifier{})

	if err := e.ScanUser(context.Background(), "phoenix"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("phoenix")
	if !tr.Valid {
		t.Error("expected recovery to valid=true")
	}
	if *tr.EndComment != "e1" {
		t.Error("recovery must resume from kept cursors, not reseed")
	}
}

func TestIgnoredUserSkipped(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("TranscriBot")
	src := &fakeSource{newestErr: reddit.ErrNotFound}
	e, err := New(db, src, &fakeNotifier{}, 3, home, []string{"transcribot"})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if err := e.ScanUser(context.Background(), "TranscriBot"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, _ := db.GetTranscriber("TranscriBot")
	if !tr.Valid {
		t.Error("ignored users must not be touched at all")
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
