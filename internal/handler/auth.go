package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/reunion50/reunion/internal/auth"
	"github.com/reunion50/reunion/internal/otp"
	"github.com/reunion50/reunion/internal/phone"
	"github.com/reunion50/reunion/internal/sms"
	"github.com/reunion50/reunion/internal/store"
)

const (
	minNameLen = 2
	maxNameLen = 80
)

type AuthHandler struct {
	ledger     *otp.Ledger
	users      *store.UserStore
	tokens     *auth.TokenCodec
	sender     sms.Sender
	smsTimeout time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewAuthHandler(
	ledger *otp.Ledger,
	users *store.UserStore,
	tokens *auth.TokenCodec,
	sender sms.Sender,
	smsTimeout time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		ledger:     ledger,
		users:      users,
		tokens:     tokens,
		sender:     sender,
		smsTimeout: smsTimeout,
		now:        time.Now,
		logger:     logger,
	}
}

type sendOTPRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type sendOTPResponse struct {
	OK       bool `json:"ok"`
	FixedOTP bool `json:"fixedOtp,omitempty"`
}

// SendOTP handles POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	switch n := utf8.RuneCountInString(name); {
	case n < minNameLen:
		writeError(w, http.StatusBadRequest, "Name is required.")
		return
	case n > maxNameLen:
		writeError(w, http.StatusBadRequest, "Name is too long.")
		return
	}

	p, ok := phone.Normalize(req.Phone)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidPhone)
		return
	}
	if !h.ledger.Allowed(p) {
		writeError(w, http.StatusForbidden, msgNotAllowed)
		return
	}

	// Refuse before issuing, so an unsendable code does not use up the window.
	if !h.ledger.IsFixed(p) && !h.sender.Configured() {
		h.logger.Error("send otp: sms sender not configured")
		respondErr(w, h.logger, "send otp", sms.ErrNotConfigured)
		return
	}

	issued, err := h.ledger.RequestCode(r.Context(), p, name)
	if err != nil {
		respondErr(w, h.logger, "request code", err)
		return
	}
	if issued.Fixed {
		h.logger.Info("fixed code issued", "phone", phone.Mask(p))
		writeJSON(w, http.StatusOK, sendOTPResponse{OK: true, FixedOTP: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.smsTimeout)
	defer cancel()
	if _, err := h.sender.Send(ctx, p, sms.CodeMessage(issued.Code, otp.CodeTTL)); err != nil {
		h.logger.Error("deliver code", "phone", phone.Mask(p), "error", err)
		respondErr(w, h.logger, "deliver code", err)
		return
	}

	writeJSON(w, http.StatusOK, sendOTPResponse{OK: true})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type verifyOTPResponse struct {
	OK    bool    `json:"ok"`
	Token string  `json:"token"`
	Name  *string `json:"name"`
}

// VerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, ok := phone.Normalize(req.Phone)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidPhone)
		return
	}

	name, err := h.ledger.VerifyCode(r.Context(), p, strings.TrimSpace(req.OTP))
	if err != nil {
		respondErr(w, h.logger, "verify code", err)
		return
	}

	resp := verifyOTPResponse{OK: true}
	if name = strings.TrimSpace(name); name != "" {
		if err := h.users.Upsert(r.Context(), auth.VoterKey(p), name, h.now()); err != nil {
			respondErr(w, h.logger, "save voter name", err)
			return
		}
		resp.Name = &name
	}

	resp.Token, err = h.tokens.Issue(p)
	if err != nil {
		respondErr(w, h.logger, "issue token", err)
		return
	}

	h.logger.Info("phone verified", "phone", phone.Mask(p))
	writeJSON(w, http.StatusOK, resp)
}
