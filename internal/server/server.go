package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/reunion50/reunion/internal/allowlist"
	"github.com/reunion50/reunion/internal/auth"
	"github.com/reunion50/reunion/internal/handler"
	"github.com/reunion50/reunion/internal/middleware"
	"github.com/reunion50/reunion/internal/otp"
	"github.com/reunion50/reunion/internal/sms"
	"github.com/reunion50/reunion/internal/store"
)

type Config struct {
	Gate       *allowlist.Gate
	Bypass     *otp.Bypass
	Tokens     *auth.TokenCodec
	Sender     sms.Sender
	SMSTimeout time.Duration

	// AuthRateLimit requests per AuthRateWindow are allowed per client IP on
	// the auth endpoints.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// PublicDir, if set, is served at / with index.html as the fallback.
	PublicDir string
}

type Server struct {
	db          *sql.DB
	authH       *handler.AuthHandler
	pollH       *handler.PollHandler
	tokens      *auth.TokenCodec
	rateLimiter *middleware.RateLimiter
	publicDir   string
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	users := store.NewUserStore(db)
	votes := store.NewVoteStore(db)
	ledger := otp.NewLedger(store.NewOTPStore(db), cfg.Gate, cfg.Bypass)

	return &Server{
		db:          db,
		authH:       handler.NewAuthHandler(ledger, users, cfg.Tokens, cfg.Sender, cfg.SMSTimeout, logger.With("component", "auth")),
		pollH:       handler.NewPollHandler(votes, users, cfg.Tokens, cfg.Gate, logger.With("component", "poll")),
		tokens:      cfg.Tokens,
		rateLimiter: middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow),
		publicDir:   cfg.PublicDir,
		logger:      logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/send-otp", s.rateLimitedHandler(s.authH.SendOTP))
	mux.HandleFunc("POST /api/auth/verify-otp", s.rateLimitedHandler(s.authH.VerifyOTP))

	mux.Handle("GET /api/results", middleware.OptionalVoter(s.tokens)(http.HandlerFunc(s.pollH.Results)))
	mux.HandleFunc("POST /api/vote", s.pollH.Vote)
	mux.HandleFunc("GET /api/voters", s.pollH.Voters)

	mux.HandleFunc("GET /health", s.healthHandler)

	if s.publicDir != "" {
		mux.Handle("GET /", spaHandler(s.publicDir))
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, http.HandlerFunc(handler.TooManyRequests))
	wrapped := rl(h)
	return wrapped.ServeHTTP
}

// spaHandler serves files from dir, answering unknown paths with index.html.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, index)
	})
}
