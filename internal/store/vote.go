package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reunion50/reunion/internal/model"
	"github.com/reunion50/reunion/internal/poll"
)

var ErrInvalidOption = errors.New("invalid option")

// UnknownVoterName stands in for voters who never supplied a name.
const UnknownVoterName = "(unknown)"

type VoteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewVoteStore(db *sql.DB) *VoteStore {
	return &VoteStore{db: db, now: time.Now}
}

// RecordDateVote sets the voter's single date choice, replacing any earlier one.
func (s *VoteStore) RecordDateVote(ctx context.Context, voterKey, option, otherText string) error {
	if !poll.ValidOption(poll.KindDate, option) {
		return ErrInvalidOption
	}
	var other sql.NullString
	if t := poll.CleanOtherText(option, otherText); t != "" {
		other = sql.NullString{String: t, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO date_votes (voter_key, option, other_text, updated_at_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(voter_key) DO UPDATE SET option = excluded.option, other_text = excluded.other_text, updated_at_ms = excluded.updated_at_ms`,
		voterKey, option, other, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert date vote: %w", err)
	}
	return nil
}

// ToggleVenueVote flips the voter's selection of option and reports whether
// it is now selected.
func (s *VoteStore) ToggleVenueVote(ctx context.Context, voterKey, option string) (bool, error) {
	if !poll.ValidOption(poll.KindVenue, option) {
		return false, ErrInvalidOption
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM venue_votes WHERE voter_key = ? AND option = ?`, voterKey, option)
	if err != nil {
		return false, fmt.Errorf("delete venue vote: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	selected := removed == 0
	if selected {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO venue_votes (voter_key, option, updated_at_ms) VALUES (?, ?, ?)`,
			voterKey, option, s.now().UnixMilli(),
		)
		if err != nil {
			return false, fmt.Errorf("insert venue vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle tx: %w", err)
	}
	return selected, nil
}

// ImportVenueVote selects option for the voter without toggling. Used by the
// legacy import; returns false if the row already existed.
func (s *VoteStore) ImportVenueVote(ctx context.Context, voterKey, option string) (bool, error) {
	if !poll.ValidOption(poll.KindVenue, option) {
		return false, ErrInvalidOption
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO venue_votes (voter_key, option, updated_at_ms) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		voterKey, option, s.now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("import venue vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanCounts(rows *sql.Rows) (poll.Counts, error) {
	defer rows.Close()
	out := poll.Counts{}
	for rows.Next() {
		var opt string
		var n int
		if err := rows.Scan(&opt, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[opt] = n
	}
	return out, rows.Err()
}

// LiveCounts tallies per-voter rows for kind.
func (s *VoteStore) LiveCounts(ctx context.Context, kind poll.Kind) (poll.Counts, error) {
	var q string
	switch kind {
	case poll.KindVenue:
		q = `SELECT option, COUNT(*) FROM venue_votes GROUP BY option`
	case poll.KindDate:
		q = `SELECT option, COUNT(*) FROM date_votes GROUP BY option`
	default:
		return nil, fmt.Errorf("unknown poll kind %q", kind)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("live counts: %w", err)
	}
	return scanCounts(rows)
}

// LegacyCounts returns the pre-migration totals for kind.
func (s *VoteStore) LegacyCounts(ctx context.Context, kind poll.Kind) (poll.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT option, count FROM legacy_counts WHERE kind = ?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("legacy counts: %w", err)
	}
	return scanCounts(rows)
}

// MergedCounts is LegacyCounts plus LiveCounts, per option.
func (s *VoteStore) MergedCounts(ctx context.Context, kind poll.Kind) (poll.Counts, error) {
	legacy, err := s.LegacyCounts(ctx, kind)
	if err != nil {
		return nil, err
	}
	live, err := s.LiveCounts(ctx, kind)
	if err != nil {
		return nil, err
	}
	return poll.Merge(legacy, live), nil
}

// SetLegacyCounts overwrites legacy totals. Only the offline import calls this.
func (s *VoteStore) SetLegacyCounts(ctx context.Context, kind poll.Kind, counts poll.Counts) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin legacy tx: %w", err)
	}
	defer tx.Rollback()

	for opt, n := range counts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO legacy_counts (kind, option, count) VALUES (?, ?, ?)
			 ON CONFLICT(kind, option) DO UPDATE SET count = excluded.count`,
			string(kind), opt, n,
		)
		if err != nil {
			return fmt.Errorf("set legacy count %s/%s: %w", kind, opt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit legacy tx: %w", err)
	}
	return nil
}

// VotersForOption lists display names of live voters for option, sorted
// case-insensitively. Legacy votes have no names and are not included.
func (s *VoteStore) VotersForOption(ctx context.Context, kind poll.Kind, option string) ([]string, error) {
	if !poll.ValidOption(kind, option) {
		return nil, ErrInvalidOption
	}

	table := "venue_votes"
	if kind == poll.KindDate {
		table = "date_votes"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(u.name, ?) AS voter_name
		 FROM `+table+` v LEFT JOIN users u ON u.voter_key = v.voter_key
		 WHERE v.option = ?
		 ORDER BY voter_name COLLATE NOCASE, voter_name`,
		UnknownVoterName, option,
	)
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// VenueSelections returns the options the voter currently has selected.
func (s *VoteStore) VenueSelections(ctx context.Context, voterKey string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT option FROM venue_votes WHERE voter_key = ? ORDER BY option`, voterKey)
	if err != nil {
		return nil, fmt.Errorf("venue selections: %w", err)
	}
	defer rows.Close()

	opts := []string{}
	for rows.Next() {
		var opt string
		if err := rows.Scan(&opt); err != nil {
			return nil, fmt.Errorf("scan venue selection: %w", err)
		}
		opts = append(opts, opt)
	}
	return opts, rows.Err()
}

// DateVoteFor returns the voter's date choice, or nil if none.
func (s *VoteStore) DateVoteFor(ctx context.Context, voterKey string) (*model.DateVote, error) {
	var (
		v         model.DateVote
		other     sql.NullString
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT voter_key, option, other_text, updated_at_ms FROM date_votes WHERE voter_key = ?`, voterKey,
	).Scan(&v.VoterKey, &v.Option, &other, &updatedMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get date vote: %w", err)
	}
	v.OtherText = other.String
	v.UpdatedAt = time.UnixMilli(updatedMs)
	return &v, nil
}
