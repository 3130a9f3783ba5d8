// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Twilio struct {
	AccountSID string
	AuthToken  string
	From       string
}

type Config struct {
	Port               string
	DataDir            string
	DBPath             string
	AllowlistPath      string
	FixedOTPPhonesPath string
	SecretPath         string
	FixedOTPCode       string
	AllowAll           bool

	LogLevel  string
	LogFormat string

	Twilio     Twilio
	SMSDryRun  bool
	SMSTimeout time.Duration

	PublicDir string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

var sixDigits = regexp.MustCompile(`^\d{6}$`)

// Load reads the env file named by REUNION_ENV_FILE (default .env) if it
// exists, then builds the config. Variables already set in the process
// environment win over the file.
func Load() (Config, error) {
	envFile := getenv("REUNION_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	dataDir := getenv("REUNION_DATA_DIR", "data")
	cfg := Config{
		Port:               getenv("REUNION_PORT", "5173"),
		DataDir:            dataDir,
		DBPath:             getenv("REUNION_DB_PATH", filepath.Join(dataDir, "reunion50.sqlite")),
		AllowlistPath:      getenv("REUNION_ALLOWLIST_PATH", filepath.Join(dataDir, "allowed_phones.json")),
		FixedOTPPhonesPath: getenv("REUNION_FIXED_OTP_PHONES_PATH", filepath.Join(dataDir, "fixed_otp_phones.txt")),
		SecretPath:         getenv("REUNION_SECRET_PATH", filepath.Join(dataDir, "secret.txt")),
		FixedOTPCode:       getenv("REUNION_FIXED_OTP_CODE", "550055"),
		AllowAll:           getenvBool("REUNION_ALLOW_ALL", false),
		LogLevel:           getenv("REUNION_LOG_LEVEL", "info"),
		LogFormat:          getenv("REUNION_LOG_FORMAT", "text"),
		Twilio: Twilio{
			AccountSID: strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
			AuthToken:  strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
			From:       strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER")),
		},
		SMSDryRun:      getenvBool("REUNION_SMS_DRY_RUN", false),
		SMSTimeout:     getenvDuration("REUNION_SMS_TIMEOUT", 10*time.Second),
		PublicDir:      os.Getenv("REUNION_PUBLIC_DIR"),
		AuthRateLimit:  getenvInt("REUNION_AUTH_RATE_LIMIT", 30),
		AuthRateWindow: getenvDuration("REUNION_AUTH_RATE_WINDOW", 15*time.Minute),
	}

	if !sixDigits.MatchString(cfg.FixedOTPCode) {
		return Config{}, fmt.Errorf("REUNION_FIXED_OTP_CODE must be 6 digits")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid REUNION_PORT %q: %w", cfg.Port, err)
	}
	if cfg.AuthRateLimit <= 0 {
		return Config{}, fmt.Errorf("REUNION_AUTH_RATE_LIMIT must be positive")
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
