package config

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	platformcfg "github.com/example/unisocial/internal/platform/config"
)

type DevAPIConfig struct {
	JWTSecret      []byte
	AccessTokenTTL time.Duration
	RefreshWindow  time.Duration
	ResetTokenTTL  time.Duration
	BcryptCost     int
	AllowedOrigins []string
}

func LoadDevAPI() (DevAPIConfig, error) {
	secret := platformcfg.String("JWT_SECRET", "")
	if secret == "" {
		return DevAPIConfig{}, errors.New("JWT_SECRET is required")
	}

	cost := platformcfg.Int("BCRYPT_COST", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return DevAPIConfig{
		JWTSecret:      []byte(secret),
		AccessTokenTTL: platformcfg.Duration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshWindow:  platformcfg.Duration("REFRESH_WINDOW", 7*24*time.Hour),
		ResetTokenTTL:  platformcfg.Duration("RESET_TOKEN_TTL", time.Hour),
		BcryptCost:     cost,
		AllowedOrigins: platformcfg.List("CORS_ALLOWED_ORIGINS"),
	}, nil
}
