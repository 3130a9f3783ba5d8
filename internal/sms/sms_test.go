package sms

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	got   *twilioApi.CreateMessageParams
	err   error
	delay time.Duration
}

func (f *fakeAPI) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSend(t *testing.T) {
	api := &fakeAPI{}
	s := NewTwilioSender("", "", "+15550001111", testLogger(), withMessageAPI(api))

	sid, err := s.Send(context.Background(), "+919876543210", "Your code")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sid != "SM123" {
		t.Errorf("sid = %q, want %q", sid, "SM123")
	}
	if *api.got.To != "+919876543210" {
		t.Errorf("To = %q, want %q", *api.got.To, "+919876543210")
	}
	if *api.got.From != "+15550001111" {
		t.Errorf("From = %q, want %q", *api.got.From, "+15550001111")
	}
	if *api.got.Body != "Your code" {
		t.Errorf("Body = %q, want %q", *api.got.Body, "Your code")
	}
}

func TestTwilioNotConfigured(t *testing.T) {
	s := NewTwilioSender("", "", "", testLogger())
	if s.Configured() {
		t.Error("expected unconfigured sender")
	}
	_, err := s.Send(context.Background(), "+919876543210", "x")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want %v", err, ErrNotConfigured)
	}

	// A sending number alone is not enough.
	s = NewTwilioSender("", "", "+15550001111", testLogger())
	if s.Configured() {
		t.Error("expected unconfigured sender without credentials")
	}
}

func TestTwilioCredentialsConfigure(t *testing.T) {
	s := NewTwilioSender("AC123", "secret", "+15550001111", testLogger())
	if !s.Configured() {
		t.Error("expected configured sender")
	}
}

func TestTwilioProviderError(t *testing.T) {
	api := &fakeAPI{err: errors.New("21211 invalid To")}
	s := NewTwilioSender("", "", "+15550001111", testLogger(), withMessageAPI(api))

	_, err := s.Send(context.Background(), "+919876543210", "x")
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("err = %v, want %v", err, ErrDelivery)
	}
}

func TestTwilioTimeout(t *testing.T) {
	api := &fakeAPI{delay: 200 * time.Millisecond}
	s := NewTwilioSender("", "", "+15550001111", testLogger(), withMessageAPI(api))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Send(ctx, "+919876543210", "x")
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("err = %v, want %v", err, ErrDelivery)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestDryRunSender(t *testing.T) {
	var buf strings.Builder
	d := NewDryRunSender(slog.New(slog.NewTextHandler(&buf, nil)))

	id, err := d.Send(context.Background(), "+919876543210", CodeMessage("123456", 5*time.Minute))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasPrefix(id, "dryrun-") {
		t.Errorf("id = %q, want dryrun- prefix", id)
	}
	out := buf.String()
	if strings.Contains(out, "123456") {
		t.Error("dry run log must not contain the code")
	}
	if strings.Contains(out, "+919876543210") {
		t.Error("dry run log must not contain the clear phone")
	}
}

func TestCodeMessage(t *testing.T) {
	got := CodeMessage("004217", 5*time.Minute)
	want := "Your Reunion 50 OTP is 004217. Valid for 5 minutes."
	if got != want {
		t.Errorf("CodeMessage = %q, want %q", got, want)
	}
}
