package middleware

import (
	"net/http"
	"strings"

	"github.com/reunion50/reunion/internal/auth"
)

// TokenHeader carries the session token on read requests.
const TokenHeader = "X-Phone-Token"

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(token string) (auth.Session, error)
}

// OptionalVoter attaches the voter to the request context when TokenHeader
// holds a valid token. Requests without one pass through anonymously.
func OptionalVoter(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(TokenHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := tokens.Verify(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithVoter(r.Context(), auth.Voter{
				Phone:    sess.Phone,
				VoterKey: auth.VoterKey(sess.Phone),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
