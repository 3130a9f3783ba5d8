// Package sms delivers one-time codes by text message.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reunion50/reunion/internal/phone"
)

var (
	ErrNotConfigured = errors.New("sms delivery not configured")
	ErrDelivery      = errors.New("sms delivery failed")
)

// Sender delivers a message body to a normalized phone and returns the
// provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
	Configured() bool
}

// CodeMessage renders the text sent with a code.
func CodeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your Reunion 50 OTP is %s. Valid for %d minutes.", code, int(ttl.Minutes()))
}

// DryRunSender logs deliveries instead of sending them. The code itself is
// never logged.
type DryRunSender struct {
	logger *slog.Logger
}

func NewDryRunSender(logger *slog.Logger) *DryRunSender {
	return &DryRunSender{logger: logger.With("component", "sms_dry_run")}
}

func (d *DryRunSender) Configured() bool { return true }

func (d *DryRunSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	id := "dryrun-" + uuid.NewString()
	d.logger.Info("sms not sent (dry run)", "to", phone.Mask(to), "chars", len(body), "id", id)
	return id, nil
}
