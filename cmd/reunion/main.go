package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reunion50/reunion/internal/allowlist"
	"github.com/reunion50/reunion/internal/auth"
	"github.com/reunion50/reunion/internal/config"
	"github.com/reunion50/reunion/internal/database"
	"github.com/reunion50/reunion/internal/logging"
	"github.com/reunion50/reunion/internal/otp"
	"github.com/reunion50/reunion/internal/server"
	"github.com/reunion50/reunion/internal/sms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	secret, err := auth.LoadOrCreateSecret(cfg.SecretPath)
	if err != nil {
		logger.Error("load token secret", "error", err)
		os.Exit(1)
	}
	tokens, err := auth.NewTokenCodec(secret)
	if err != nil {
		logger.Error("token codec", "error", err)
		os.Exit(1)
	}

	gate := allowlist.NewGate(cfg.AllowlistPath, cfg.AllowAll, logger)
	gate.Reload()
	if cfg.AllowAll {
		logger.Warn("allowlist disabled, every phone may log in")
	}

	bypass := otp.NewBypass(cfg.FixedOTPPhonesPath, cfg.FixedOTPCode, logger)
	bypass.Reload()

	var sender sms.Sender
	if cfg.SMSDryRun {
		sender = sms.NewDryRunSender(logger)
		logger.Warn("sms dry run enabled, codes are not delivered")
	} else {
		sender = sms.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, logger)
		if !sender.Configured() {
			logger.Warn("twilio not configured, only fixed-code phones can log in")
		}
	}

	srv := server.New(db, server.Config{
		Gate:           gate,
		Bypass:         bypass,
		Tokens:         tokens,
		Sender:         sender,
		SMSTimeout:     cfg.SMSTimeout,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		PublicDir:      cfg.PublicDir,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.SMSTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("reunion poll listening",
			"addr", httpServer.Addr,
			"allowed_phones", gate.Len(),
			"fixed_otp_phones", bypass.Len(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for s := range sig {
		if s == syscall.SIGHUP {
			gate.Reload()
			bypass.Reload()
			logger.Info("reloaded phone lists", "allowed_phones", gate.Len(), "fixed_otp_phones", bypass.Len())
			continue
		}
		break
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
