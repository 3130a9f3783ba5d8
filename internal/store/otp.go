package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reunion50/reunion/internal/model"
)

const (
	otpStatusPending   = "pending"
	otpStatusExhausted = "exhausted"
)

// OTPStore persists the per-phone OTP ledger.
type OTPStore struct {
	db *sql.DB
}

func NewOTPStore(db *sql.DB) *OTPStore {
	return &OTPStore{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const otpCols = `status, send_count, window_start_ms, sent_at_ms, expires_at_ms, salt, code_hash, attempts, name`

func scanOTP(scanner interface{ Scan(...any) error }) (model.OTPState, error) {
	var (
		status                      string
		sendCount, attempts         int
		windowMs, sentMs, expiresMs int64
		salt, codeHash              sql.NullString
		name                        string
	)
	err := scanner.Scan(&status, &sendCount, &windowMs, &sentMs, &expiresMs, &salt, &codeHash, &attempts, &name)
	if err != nil {
		return nil, err
	}

	window := model.OTPWindow{SendCount: sendCount, StartedAt: time.UnixMilli(windowMs)}
	switch status {
	case otpStatusPending:
		return model.OTPPending{
			Window:    window,
			SentAt:    time.UnixMilli(sentMs),
			ExpiresAt: time.UnixMilli(expiresMs),
			Salt:      salt.String,
			CodeHash:  codeHash.String,
			Attempts:  attempts,
			Name:      name,
		}, nil
	case otpStatusExhausted:
		return model.OTPExhausted{
			Window:    window,
			SentAt:    time.UnixMilli(sentMs),
			ExpiresAt: time.UnixMilli(expiresMs),
			Attempts:  attempts,
			Name:      name,
		}, nil
	}
	return nil, fmt.Errorf("unknown otp status %q", status)
}

func getOTP(ctx context.Context, q querier, phone string) (model.OTPState, error) {
	row := q.QueryRowContext(ctx, `SELECT `+otpCols+` FROM otp_records WHERE phone = ?`, phone)
	st, err := scanOTP(row)
	if err == sql.ErrNoRows {
		return model.OTPNone{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	return st, nil
}

const upsertOTP = `INSERT INTO otp_records (phone, ` + otpCols + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(phone) DO UPDATE SET
    status = excluded.status,
    send_count = excluded.send_count,
    window_start_ms = excluded.window_start_ms,
    sent_at_ms = excluded.sent_at_ms,
    expires_at_ms = excluded.expires_at_ms,
    salt = excluded.salt,
    code_hash = excluded.code_hash,
    attempts = excluded.attempts,
    name = excluded.name`

func putOTP(ctx context.Context, q querier, phone string, st model.OTPState) error {
	var err error
	switch v := st.(type) {
	case model.OTPNone:
		_, err = q.ExecContext(ctx, `DELETE FROM otp_records WHERE phone = ?`, phone)
	case model.OTPPending:
		_, err = q.ExecContext(ctx, upsertOTP, phone, otpStatusPending,
			v.Window.SendCount, v.Window.StartedAt.UnixMilli(), v.SentAt.UnixMilli(), v.ExpiresAt.UnixMilli(),
			v.Salt, v.CodeHash, v.Attempts, v.Name)
	case model.OTPExhausted:
		_, err = q.ExecContext(ctx, upsertOTP, phone, otpStatusExhausted,
			v.Window.SendCount, v.Window.StartedAt.UnixMilli(), v.SentAt.UnixMilli(), v.ExpiresAt.UnixMilli(),
			nil, nil, v.Attempts, v.Name)
	default:
		return fmt.Errorf("unsupported otp state %T", st)
	}
	if err != nil {
		return fmt.Errorf("write otp record: %w", err)
	}
	return nil
}

// Get returns the current state for phone, OTPNone if there is no record.
func (s *OTPStore) Get(ctx context.Context, phone string) (model.OTPState, error) {
	return getOTP(ctx, s.db, phone)
}

// Mutate runs fn on the current state inside one transaction. A non-nil state
// returned by fn is persisted even when fn also returns an error, so failed
// attempts are still recorded. fn's error is returned after commit.
func (s *OTPStore) Mutate(ctx context.Context, phone string, fn func(model.OTPState) (model.OTPState, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin otp tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := getOTP(ctx, tx, phone)
	if err != nil {
		return err
	}

	next, fnErr := fn(cur)
	if next != nil {
		if err := putOTP(ctx, tx, phone, next); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit otp tx: %w", err)
	}
	return fnErr
}
