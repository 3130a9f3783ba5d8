package model

import "time"

// OTPWindow tracks code issuance for the rolling rate window.
type OTPWindow struct {
	SendCount int
	StartedAt time.Time
}

// OTPState is the per-phone OTP ledger state. It is one of OTPNone,
// OTPPending or OTPExhausted.
type OTPState interface {
	otpState()
}

// OTPNone means no record exists for the phone.
type OTPNone struct{}

// OTPPending holds an outstanding code. Only the salted hash is kept.
type OTPPending struct {
	Window    OTPWindow
	SentAt    time.Time
	ExpiresAt time.Time
	Salt      string
	CodeHash  string
	Attempts  int
	Name      string
}

// OTPExhausted is a record whose attempt ceiling was exceeded. The code hash
// is dropped, so no submission can succeed until a new code is issued.
type OTPExhausted struct {
	Window    OTPWindow
	SentAt    time.Time
	ExpiresAt time.Time
	Attempts  int
	Name      string
}

func (OTPNone) otpState()      {}
func (OTPPending) otpState()   {}
func (OTPExhausted) otpState() {}

// WindowOf returns the rate window carried by s, or the zero window for OTPNone.
func WindowOf(s OTPState) (OTPWindow, bool) {
	switch st := s.(type) {
	case OTPPending:
		return st.Window, true
	case OTPExhausted:
		return st.Window, true
	default:
		return OTPWindow{}, false
	}
}
