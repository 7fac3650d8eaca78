package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/config"
	"github.com/example/unisocial/internal/platform/httpserver"
	"github.com/example/unisocial/internal/platform/logging"
	"github.com/example/unisocial/internal/platform/run"
	devconfig "github.com/example/unisocial/services/devapi/internal/config"
	"github.com/example/unisocial/services/devapi/internal/handlers"
	"github.com/example/unisocial/services/devapi/internal/store"
	"github.com/example/unisocial/services/devapi/internal/tokens"
)

func main() {
	cfg, err := config.Load("devapi")
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	devCfg, err := devconfig.LoadDevAPI()
	if err != nil {
		log.Error("config", zap.Error(err))
		run.Exit(1)
	}

	r := handlers.NewRouter(handlers.Deps{
		Users:    store.NewInMemoryUserStore(),
		Comments: store.NewInMemoryCommentStore(),
		Tokens: tokens.Service{
			Secret:         devCfg.JWTSecret,
			AccessTokenTTL: devCfg.AccessTokenTTL,
			RefreshWindow:  devCfg.RefreshWindow,
		},
		BcryptCost:     devCfg.BcryptCost,
		ResetTokenTTL:  devCfg.ResetTokenTTL,
		AllowedOrigins: devCfg.AllowedOrigins,
		Log:            log,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(context.Context) error {
		return srv.Start()
	}, srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
