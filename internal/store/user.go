package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reunion50/reunion/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert records the display name for a verified voter.
func (s *UserStore) Upsert(ctx context.Context, voterKey, name string, verifiedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (voter_key, name, verified_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(voter_key) DO UPDATE SET name = excluded.name, verified_at_ms = excluded.verified_at_ms`,
		voterKey, name, verifiedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, voterKey string) (*model.User, error) {
	var (
		u          model.User
		name       sql.NullString
		verifiedMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT voter_key, name, verified_at_ms FROM users WHERE voter_key = ?`, voterKey,
	).Scan(&u.VoterKey, &name, &verifiedMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Name = name.String
	u.VerifiedAt = time.UnixMilli(verifiedMs)
	return &u, nil
}
