package database

import "testing"

func TestApplyScanBatchSeedsCursors(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("newbie")

	inserted, err := db.ApplyScanBatch(&ScanBatch{
		Transcriber: "newbie",
		Transcriptions: []NewTranscription{
			{CommentID: "abc", Content: "transcription body", Subreddit: "t5_x", Created: "2019-01-01 00:00:00"},
		},
		Counted:     1,
		NewStart:    strPtr("abc"),
		NewEnd:      strPtr("abc"),
		SetForwards: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 1 {
		t.Errorf("expected 1 inserted transcription, got %d", inserted)
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
	if tr.CountedComments != 1 {
		t.Errorf("expected counted_comments=1, got %d", tr.CountedComments)
	}
}

func TestApplyScanBatchIdempotentInsert(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("repeat")

	batch := &ScanBatch{
		Transcriber: "repeat",
		Transcriptions: []NewTranscription{
			{CommentID: "dup1", Content: "body", Subreddit: "t5_x", Created: "2019-01-01 00:00:00"},
		},
		Counted: 1,
	}

	inserted, err := db.ApplyScanBatch(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", inserted)
	}

	inserted, err = db.ApplyScanBatch(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected duplicate batch to insert 0, got %d", inserted)
	}

	// counted_comments counts every fetched comment, matched or not.
	tr, _ := db.GetTranscriber("repeat")
	if tr.CountedComments != 2 {
		t.Errorf("expected counted_comments=2 after two batches, got %d", tr.CountedComments)
	}
}

func TestApplyScanBatchDirectionFlip(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("flipper")

	_, err := db.ApplyScanBatch(&ScanBatch{
		Transcriber: "flipper",
		Counted:     3,
		NewEnd:      strPtr("oldest"),
		SetForwards: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("flipper")
	if !tr.Forwards {
		t.Error("expected forwards=true after backlog exhausted")
	}
	if tr.EndComment == nil || *tr.EndComment != "oldest" {
		t.Errorf("expected end_comment=oldest, got %v", tr.EndComment)
	}
}

func TestRecordGammaChange(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("climber")

	if err := db.RecordGammaChange("climber", nil, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.RecordGammaChange("climber", intPtr(100), 137); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := db.GetTranscriber("climber")
	if tr.OfficialGammaCount == nil || *tr.OfficialGammaCount != 137 {
		t.Errorf("expected gamma 137, got %v", tr.OfficialGammaCount)
	}

	events, err := db.GetGammaHistory("climber", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 gamma events, got %d", len(events))
	}
	// Newest first.
	if events[0].NewGamma != 137 || events[0].OldGamma == nil || *events[0].OldGamma != 100 {
		t.Errorf("unexpected newest event: %+v", events[0])
	}
	if events[1].OldGamma != nil {
		t.Error("first event should have nil old_gamma")
	}
}

func TestClearReference(t *testing.T) {
	db := openTestDB(t)
	db.EnsureTranscriber("flairless")
	db.ApplyScanBatch(&ScanBatch{Transcriber: "flairless", BindReference: strPtr("ref1")})

	tr, _ := db.GetTranscriber("flairless")
	if tr.ReferenceComment == nil || *tr.ReferenceComment != "ref1" {
		t.Fatalf("expected bound reference, got %v", tr.ReferenceComment)
	}

	if err := db.ClearReference("flairless"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, _ = db.GetTranscriber("flairless")
	if tr.ReferenceComment != nil {
		t.Error("expected reference to be unbound")
	}
}
