package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformcfg "github.com/example/unisocial/internal/platform/config"
	"github.com/example/unisocial/internal/platform/kvstore"
	"github.com/example/unisocial/internal/platform/natsconn"
	"github.com/example/unisocial/services/client/internal/session"
)

type ClientConfig struct {
	LogLevel        string
	APIBaseURL      string
	APITimeout      time.Duration
	RefreshOnExpiry bool
	Store           kvstore.Options
	// Analytics is off unless ANALYTICS_ENABLED is true.
	AnalyticsEnabled bool
	NATS             natsconn.Options
}

// LoadClient reads the CLI settings from the environment. The session
// store defaults to a SQLite file under the user's home directory.
func LoadClient() (ClientConfig, error) {
	cfg := ClientConfig{
		LogLevel:        platformcfg.String("LOG_LEVEL", ""),
		APIBaseURL:      strings.TrimRight(platformcfg.String("API_BASE_URL", session.DefaultBaseURL), "/"),
		APITimeout:      platformcfg.Duration("API_TIMEOUT", 15*time.Second),
		RefreshOnExpiry: platformcfg.Bool("SESSION_REFRESH_ON_EXPIRY", false),
		Store: kvstore.Options{
			Backend:     platformcfg.String("SESSION_STORE", ""),
			RedisDSN:    platformcfg.String("REDIS_DSN", ""),
			DatabaseURL: platformcfg.String("DATABASE_URL", ""),
			SQLitePath:  platformcfg.String("SESSION_SQLITE_PATH", defaultSQLitePath()),
			Namespace:   platformcfg.String("SESSION_NAMESPACE", kvstore.DefaultNamespace),
		},
		AnalyticsEnabled: platformcfg.Bool("ANALYTICS_ENABLED", false),
		NATS: natsconn.Options{
			URL:  platformcfg.String("NATS_URL", ""),
			Name: "forumctl",
		},
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ClientConfig{}, fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	if b := strings.ToLower(cfg.Store.Backend); b == kvstore.BackendSQLite && cfg.Store.SQLitePath == "" {
		return ClientConfig{}, errors.New("SESSION_SQLITE_PATH is required for the sqlite session store")
	}
	return cfg, nil
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".unisocial", "session.db")
}
