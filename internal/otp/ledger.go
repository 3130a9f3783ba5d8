// Package otp issues and verifies one-time phone codes.
package otp

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/reunion50/reunion/internal/model"
)

const (
	MaxSendsPerWindow = 3
	SendWindow        = time.Hour
	CodeTTL           = 5 * time.Minute
	MaxAttempts       = 5
)

var (
	ErrNotAuthorized   = errors.New("phone not authorized")
	ErrRateLimited     = errors.New("too many code requests")
	ErrInvalidCode     = errors.New("invalid code format")
	ErrNotRequested    = errors.New("code not requested")
	ErrExpired         = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrIncorrectCode   = errors.New("incorrect code")
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Store is the transactional per-phone state the ledger runs on.
type Store interface {
	Mutate(ctx context.Context, phone string, fn func(model.OTPState) (model.OTPState, error)) error
}

// Authorizer reports whether a normalized phone may take part.
type Authorizer interface {
	Allowed(phone string) bool
}

// Issued describes a freshly issued code. Code is the clear code and must
// only be handed to the delivery channel.
type Issued struct {
	Code      string
	Fixed     bool
	ExpiresAt time.Time
}

type Ledger struct {
	store  Store
	gate   Authorizer
	bypass *Bypass
	now    func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger builds a ledger. bypass may be nil.
func NewLedger(store Store, gate Authorizer, bypass *Bypass, opts ...Option) *Ledger {
	l := &Ledger{store: store, gate: gate, bypass: bypass, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allowed reports whether phone passes the allowlist.
func (l *Ledger) Allowed(phone string) bool {
	return l.gate.Allowed(phone)
}

// IsFixed reports whether phone receives the fixed bypass code instead of an SMS.
func (l *Ledger) IsFixed(phone string) bool {
	_, ok := l.bypass.Code(phone)
	return ok
}

// RequestCode issues a new code for phone, replacing any outstanding one.
func (l *Ledger) RequestCode(ctx context.Context, phone, name string) (Issued, error) {
	if !l.gate.Allowed(phone) {
		return Issued{}, ErrNotAuthorized
	}

	var issued Issued
	err := l.store.Mutate(ctx, phone, func(cur model.OTPState) (model.OTPState, error) {
		now := l.now()

		win, _ := model.WindowOf(cur)
		if win.StartedAt.IsZero() || now.Sub(win.StartedAt) > SendWindow {
			win = model.OTPWindow{StartedAt: now}
		}
		if win.SendCount >= MaxSendsPerWindow {
			return nil, ErrRateLimited
		}

		code, fixed := l.bypass.Code(phone)
		if !fixed {
			var err error
			if code, err = generateCode(); err != nil {
				return nil, err
			}
		}
		salt, err := generateSalt()
		if err != nil {
			return nil, err
		}

		win.SendCount++
		issued = Issued{Code: code, Fixed: fixed, ExpiresAt: now.Add(CodeTTL)}
		return model.OTPPending{
			Window:    win,
			SentAt:    now,
			ExpiresAt: issued.ExpiresAt,
			Salt:      salt,
			CodeHash:  hashCode(salt, code),
			Name:      name,
		}, nil
	})
	if err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// VerifyCode checks code against the outstanding one for phone. On success the
// record is consumed and the name given at request time is returned.
func (l *Ledger) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	if !l.gate.Allowed(phone) {
		return "", ErrNotAuthorized
	}
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}

	var name string
	err := l.store.Mutate(ctx, phone, func(cur model.OTPState) (model.OTPState, error) {
		now := l.now()

		switch st := cur.(type) {
		case model.OTPPending:
			if now.After(st.ExpiresAt) {
				return nil, ErrExpired
			}
			st.Attempts++
			if st.Attempts > MaxAttempts {
				return exhaust(st.Window, st.SentAt, st.ExpiresAt, st.Attempts, st.Name), ErrTooManyAttempts
			}
			if !hmac.Equal([]byte(hashCode(st.Salt, code)), []byte(st.CodeHash)) {
				return st, ErrIncorrectCode
			}
			name = st.Name
			return model.OTPNone{}, nil

		case model.OTPExhausted:
			if now.After(st.ExpiresAt) {
				return nil, ErrExpired
			}
			return exhaust(st.Window, st.SentAt, st.ExpiresAt, st.Attempts+1, st.Name), ErrTooManyAttempts

		default:
			return nil, ErrNotRequested
		}
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func exhaust(win model.OTPWindow, sentAt, expiresAt time.Time, attempts int, name string) model.OTPExhausted {
	return model.OTPExhausted{
		Window:    win,
		SentAt:    sentAt,
		ExpiresAt: expiresAt,
		Attempts:  attempts,
		Name:      name,
	}
}

// generateCode returns a uniformly random 6-digit code, leading zeros included.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashCode(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
