package store

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/reunion50/reunion/internal/database"
	"github.com/reunion50/reunion/internal/poll"
)

func setupVoteTestDB(t *testing.T) (*VoteStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewVoteStore(db), NewUserStore(db)
}

func TestToggleVenueVote(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	for i, want := range []bool{true, false, true} {
		got, err := vs.ToggleVenueVote(ctx, "key-a", "kadavu")
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if got != want {
			t.Errorf("toggle %d selected = %v, want %v", i, got, want)
		}
	}

	counts, err := vs.LiveCounts(ctx, poll.KindVenue)
	if err != nil {
		t.Fatalf("live counts: %v", err)
	}
	if counts["kadavu"] != 1 {
		t.Errorf("kadavu = %d, want 1", counts["kadavu"])
	}
}

func TestVenueMultiSelect(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	vs.ToggleVenueVote(ctx, "key-a", "kadavu")
	vs.ToggleVenueVote(ctx, "key-a", "vythiri")
	vs.ToggleVenueVote(ctx, "key-b", "vythiri")

	sel, err := vs.VenueSelections(ctx, "key-a")
	if err != nil {
		t.Fatalf("selections: %v", err)
	}
	if want := []string{"kadavu", "vythiri"}; !reflect.DeepEqual(sel, want) {
		t.Errorf("selections = %v, want %v", sel, want)
	}

	counts, _ := vs.LiveCounts(ctx, poll.KindVenue)
	want := poll.Counts{"kadavu": 1, "vythiri": 2}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestToggleVenueVoteInvalidOption(t *testing.T) {
	vs, _ := setupVoteTestDB(t)

	_, err := vs.ToggleVenueVote(t.Context(), "key-a", "july18_19")
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want %v", err, ErrInvalidOption)
	}
}

func TestConcurrentTogglesAreSerialized(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	// An even number of toggles must leave the option unselected.
	const n = 10
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := vs.ToggleVenueVote(ctx, "key-a", "bolgatty"); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	sel, _ := vs.VenueSelections(ctx, "key-a")
	if len(sel) != 0 {
		t.Errorf("selections = %v, want none", sel)
	}
}

func TestRecordDateVoteOverwrites(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	if err := vs.RecordDateVote(ctx, "key-a", "july18_19", ""); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := vs.RecordDateVote(ctx, "key-a", "aug8_9", ""); err != nil {
		t.Fatalf("second vote: %v", err)
	}

	counts, _ := vs.LiveCounts(ctx, poll.KindDate)
	want := poll.Counts{"aug8_9": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}

	v, err := vs.DateVoteFor(ctx, "key-a")
	if err != nil {
		t.Fatalf("date vote: %v", err)
	}
	if v == nil || v.Option != "aug8_9" {
		t.Errorf("date vote = %+v, want aug8_9", v)
	}
}

func TestRecordDateVoteOtherText(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	if err := vs.RecordDateVote(ctx, "key-a", "other", "  Dec 26  "); err != nil {
		t.Fatalf("vote: %v", err)
	}
	v, _ := vs.DateVoteFor(ctx, "key-a")
	if v.OtherText != "Dec 26" {
		t.Errorf("other_text = %q, want %q", v.OtherText, "Dec 26")
	}

	// Switching away from "other" drops the text.
	if err := vs.RecordDateVote(ctx, "key-a", "july18_19", "ignored"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	v, _ = vs.DateVoteFor(ctx, "key-a")
	if v.OtherText != "" {
		t.Errorf("other_text = %q, want empty", v.OtherText)
	}
}

func TestRecordDateVoteInvalidOption(t *testing.T) {
	vs, _ := setupVoteTestDB(t)

	err := vs.RecordDateVote(t.Context(), "key-a", "kadavu", "")
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want %v", err, ErrInvalidOption)
	}
}

func TestDateVoteForMissing(t *testing.T) {
	vs, _ := setupVoteTestDB(t)

	v, err := vs.DateVoteFor(t.Context(), "nobody")
	if err != nil {
		t.Fatalf("date vote: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil, got %+v", v)
	}
}

func TestMergedCountsIncludesLegacy(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	if err := vs.SetLegacyCounts(ctx, poll.KindVenue, poll.Counts{"kadavu": 4, "bolgatty": 1}); err != nil {
		t.Fatalf("set legacy: %v", err)
	}
	vs.ToggleVenueVote(ctx, "key-a", "kadavu")
	vs.ToggleVenueVote(ctx, "key-a", "vythiri")

	got, err := vs.MergedCounts(ctx, poll.KindVenue)
	if err != nil {
		t.Fatalf("merged: %v", err)
	}
	want := poll.Counts{"kadavu": 5, "vythiri": 1, "bolgatty": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}

	// Legacy totals for another kind stay separate.
	dates, _ := vs.MergedCounts(ctx, poll.KindDate)
	if len(dates) != 0 {
		t.Errorf("date counts = %v, want empty", dates)
	}
}

func TestSetLegacyCountsOverwrites(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	vs.SetLegacyCounts(ctx, poll.KindDate, poll.Counts{"aug8_9": 2})
	vs.SetLegacyCounts(ctx, poll.KindDate, poll.Counts{"aug8_9": 7})

	got, _ := vs.LegacyCounts(ctx, poll.KindDate)
	if got["aug8_9"] != 7 {
		t.Errorf("aug8_9 = %d, want 7", got["aug8_9"])
	}
}

func TestVotersForOption(t *testing.T) {
	vs, us := setupVoteTestDB(t)
	ctx := t.Context()
	at := time.UnixMilli(1000)

	us.Upsert(ctx, "key-a", "zara", at)
	us.Upsert(ctx, "key-b", "Anu", at)
	us.Upsert(ctx, "key-c", "bijoy", at)

	vs.ToggleVenueVote(ctx, "key-a", "kadavu")
	vs.ToggleVenueVote(ctx, "key-b", "kadavu")
	vs.ToggleVenueVote(ctx, "key-c", "kadavu")
	vs.ToggleVenueVote(ctx, "key-d", "kadavu")
	vs.ToggleVenueVote(ctx, "key-c", "vythiri")

	got, err := vs.VotersForOption(ctx, poll.KindVenue, "kadavu")
	if err != nil {
		t.Fatalf("voters: %v", err)
	}
	want := []string{UnknownVoterName, "Anu", "bijoy", "zara"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("voters = %v, want %v", got, want)
	}

	none, err := vs.VotersForOption(ctx, poll.KindVenue, "bolgatty")
	if err != nil {
		t.Fatalf("voters: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("voters = %#v, want empty slice", none)
	}
}

func TestVotersForDateOption(t *testing.T) {
	vs, us := setupVoteTestDB(t)
	ctx := t.Context()

	us.Upsert(ctx, "key-a", "Anu", time.UnixMilli(1000))
	vs.RecordDateVote(ctx, "key-a", "july18_19", "")
	vs.RecordDateVote(ctx, "key-a", "aug8_9", "")

	got, _ := vs.VotersForOption(ctx, poll.KindDate, "aug8_9")
	if want := []string{"Anu"}; !reflect.DeepEqual(got, want) {
		t.Errorf("voters = %v, want %v", got, want)
	}
	old, _ := vs.VotersForOption(ctx, poll.KindDate, "july18_19")
	if len(old) != 0 {
		t.Errorf("voters = %v, want empty", old)
	}
}

func TestVotersForOptionInvalid(t *testing.T) {
	vs, _ := setupVoteTestDB(t)

	_, err := vs.VotersForOption(t.Context(), poll.KindDate, "kadavu")
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want %v", err, ErrInvalidOption)
	}
}

func TestImportVenueVoteIsIdempotent(t *testing.T) {
	vs, _ := setupVoteTestDB(t)
	ctx := t.Context()

	added, err := vs.ImportVenueVote(ctx, "key-a", "vythiri")
	if err != nil || !added {
		t.Fatalf("first import = %v, %v; want true, nil", added, err)
	}
	added, err = vs.ImportVenueVote(ctx, "key-a", "vythiri")
	if err != nil || added {
		t.Fatalf("second import = %v, %v; want false, nil", added, err)
	}

	sel, _ := vs.VenueSelections(ctx, "key-a")
	if want := []string{"vythiri"}; !reflect.DeepEqual(sel, want) {
		t.Errorf("selections = %v, want %v", sel, want)
	}
}
