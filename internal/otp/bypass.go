package otp

import (
	"log/slog"
	"sync"

	"github.com/reunion50/reunion/internal/allowlist"
)

// DefaultFixedCode is used when no fixed code is configured.
const DefaultFixedCode = "550055"

// Bypass hands a fixed code to a short, reloadable list of phones so they can
// sign in without SMS. A nil *Bypass matches nobody.
type Bypass struct {
	code   string
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	phones allowlist.Set
}

func NewBypass(path, code string, logger *slog.Logger) *Bypass {
	if code == "" {
		code = DefaultFixedCode
	}
	return &Bypass{
		code:   code,
		path:   path,
		logger: logger.With("component", "otp_bypass"),
		phones: allowlist.Set{},
	}
}

// Reload rereads the phone list. On error the list is emptied.
func (b *Bypass) Reload() error {
	set, err := allowlist.ReadLines(b.path)
	if err != nil {
		set = allowlist.Set{}
	}

	b.mu.Lock()
	b.phones = set
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("fixed-code list unreadable, bypass disabled", "path", b.path, "error", err)
		return err
	}
	b.logger.Info("fixed-code list loaded", "path", b.path, "phones", len(set))
	return nil
}

// Code returns the fixed code if phone is listed.
func (b *Bypass) Code(phone string) (string, bool) {
	if b == nil {
		return "", false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.phones.Has(phone) {
		return "", false
	}
	return b.code, true
}

func (b *Bypass) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.phones)
}
