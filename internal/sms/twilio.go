package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/reunion50/reunion/internal/phone"
)

// messageAPI is the slice of the Twilio REST client used here.
type messageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api    messageAPI
	from   string
	logger *slog.Logger
}

type Option func(*TwilioSender)

func withMessageAPI(api messageAPI) Option {
	return func(s *TwilioSender) { s.api = api }
}

// NewTwilioSender returns a sender for the given account. With any credential
// missing the sender reports itself unconfigured and refuses to send.
func NewTwilioSender(accountSID, authToken, from string, logger *slog.Logger, opts ...Option) *TwilioSender {
	s := &TwilioSender{
		from:   from,
		logger: logger.With("component", "sms_twilio"),
	}
	if accountSID != "" && authToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		s.api = client.Api
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured returns true if credentials and a sending number are set.
func (s *TwilioSender) Configured() bool {
	return s.api != nil && s.from != ""
}

// Send posts the message. The Twilio client has no context support, so the
// call runs in a goroutine and Send gives up when ctx is done.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(to)
	params.SetBody(body)

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.api.CreateMessage(params)
		var sid string
		if err == nil && resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
		done <- result{sid: sid, err: err}
	}()

	select {
	case <-ctx.Done():
		s.logger.Error("sms send timed out", "to", phone.Mask(to), "error", ctx.Err())
		return "", fmt.Errorf("%w: %w", ErrDelivery, ctx.Err())
	case r := <-done:
		if r.err != nil {
			s.logger.Error("sms send failed", "to", phone.Mask(to), "error", r.err)
			return "", fmt.Errorf("%w: %w", ErrDelivery, r.err)
		}
		s.logger.Info("sms sent", "to", phone.Mask(to), "sid", r.sid)
		return r.sid, nil
	}
}
