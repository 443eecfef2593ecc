// Package config loads process-wide configuration from the environment.
//
// Config is read ONCE in main, before the first request, and passed by value
// into the components that need it. Nothing in this codebase reads an
// environment variable after startup — configuration is immutable for the
// lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the optional knobs. The token TTL default matches the
// original deployment: 1440 minutes, i.e. 24 hours.
const (
	DefaultPort          = 8080
	DefaultDBPath        = "data/taskboard.db"
	DefaultTokenTTLMin   = 1440
	DefaultInviteTTLHour = 168 // pending invitations expire after 7 days
)

// Config holds everything the server needs to start.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs access tokens. REQUIRED — Load fails without it.
	JWTSecret string
	TokenTTL  time.Duration

	// InviteTTL bounds how long an invitation stays acceptable. Expiry is
	// evaluated lazily at read time; there is no background sweep.
	InviteTTL time.Duration

	// GitHub OAuth is optional: when ClientID is empty the OAuth routes are
	// simply not registered and email/password login is the only path.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Load reads configuration from the environment, with a best-effort .env
// file for local development (godotenv never overrides variables that are
// already set, and a missing .env file is not an error).
//
// A missing JWT_SECRET is a hard failure. The original system silently fell
// back to a well-known default secret when unset — that turns every deployed
// instance into one that accepts forged tokens, so here absence is fatal.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:      DefaultPort,
		DBPath:    DefaultDBPath,
		TokenTTL:  DefaultTokenTTLMin * time.Minute,
		InviteTTL: DefaultInviteTTLHour * time.Hour,

		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: JWT_SECRET is not set — refusing to start without a signing key")
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("config: invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("config: invalid TOKEN_TTL_MINUTES %q", v)
		}
		cfg.TokenTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("INVITE_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("config: invalid INVITE_TTL_HOURS %q", v)
		}
		cfg.InviteTTL = time.Duration(hours) * time.Hour
	}

	if cfg.GitHubClientID != "" && cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}
