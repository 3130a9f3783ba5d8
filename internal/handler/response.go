package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reunion50/reunion/internal/auth"
	"github.com/reunion50/reunion/internal/otp"
	"github.com/reunion50/reunion/internal/sms"
	"github.com/reunion50/reunion/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

const (
	msgNotAllowed     = "Contact an organiser to add your number to the poll."
	msgInvalidPhone   = "Invalid phone number."
	msgNeedsLogin     = "OTP verification required."
	msgInternal       = "Internal error"
	msgInvalidBody    = "Invalid request body."
	msgBodyTooLarge   = "Request body too large."
	msgInvalidVenue   = "Invalid venue option"
	msgInvalidDate    = "Invalid date option"
	msgTooManyRequest = "Too many requests. Try later."
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// TooManyRequests answers requests rejected by the IP rate limiter.
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, msgTooManyRequest)
}

// statusFor maps domain errors to a status code and client message. ok is
// false for errors nobody mapped.
func statusFor(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, otp.ErrNotAuthorized):
		return http.StatusForbidden, msgNotAllowed, true
	case errors.Is(err, otp.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many OTP requests. Try later.", true
	case errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many attempts. Please resend OTP.", true
	case errors.Is(err, otp.ErrInvalidCode):
		return http.StatusBadRequest, "Invalid OTP.", true
	case errors.Is(err, otp.ErrNotRequested):
		return http.StatusBadRequest, "OTP not requested.", true
	case errors.Is(err, otp.ErrExpired):
		return http.StatusBadRequest, "OTP expired. Please resend.", true
	case errors.Is(err, otp.ErrIncorrectCode):
		return http.StatusBadRequest, "Incorrect OTP.", true
	case errors.Is(err, store.ErrInvalidOption):
		return http.StatusBadRequest, "Invalid option", true
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, msgNeedsLogin, true
	case errors.Is(err, sms.ErrNotConfigured):
		return http.StatusInternalServerError, "SMS delivery is not configured on the server.", true
	case errors.Is(err, sms.ErrDelivery):
		return http.StatusInternalServerError, "Failed to send OTP (SMS error).", true
	}
	return http.StatusInternalServerError, msgInternal, false
}

// respondErr writes err as a client error. Unmapped errors are logged.
func respondErr(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status, msg, ok := statusFor(err)
	if !ok {
		logger.Error(op, "error", err)
	}
	writeError(w, status, msg)
}

// decodeJSON reads a size-capped JSON body into v. On failure it writes the
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}
