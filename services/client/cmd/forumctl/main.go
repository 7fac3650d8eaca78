// Command forumctl is a terminal client for the forum API: it keeps a
// login session between runs and reads and writes comment threads.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/unisocial/internal/platform/analytics"
	"github.com/example/unisocial/internal/platform/kvstore"
	"github.com/example/unisocial/internal/platform/logging"
	"github.com/example/unisocial/internal/platform/natsconn"
	clientcfg "github.com/example/unisocial/services/client/internal/config"
	"github.com/example/unisocial/services/client/internal/forumapi"
	"github.com/example/unisocial/services/client/internal/session"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := clientcfg.LoadClient()
	if err != nil {
		fmt.Fprintln(stderr, "forumctl:", err)
		return 2
	}
	log, err := logging.NewCLI(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, "forumctl:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.Open(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintln(stderr, "forumctl: session store:", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close session store", zap.Error(err))
		}
	}()

	pub, closePub := openPublisher(cfg, log)
	defer closePub()

	sess := session.New(session.Options{
		BaseURL:         cfg.APIBaseURL,
		HTTPClient:      &http.Client{Timeout: cfg.APITimeout},
		Store:           store,
		Logger:          log,
		Publisher:       pub,
		RefreshOnExpiry: cfg.RefreshOnExpiry,
	})
	sess.OnSessionExpired(func() {
		fmt.Fprintln(stderr, "forumctl: session expired, run `forumctl login` again")
	})

	a := &app{
		sess: sess,
		api:  forumapi.New(sess),
		pub:  pub,
		log:  log,
		out:  stdout,
	}
	return exitCode(stderr, a.run(ctx, args))
}

// openPublisher connects to NATS when analytics are enabled. Failure to
// connect only disables analytics.
func openPublisher(cfg clientcfg.ClientConfig, log *zap.Logger) (*analytics.Publisher, func()) {
	if !cfg.AnalyticsEnabled {
		return nil, func() {}
	}
	nc, err := natsconn.Connect(cfg.NATS)
	if err != nil {
		log.Warn("analytics disabled", zap.Error(err))
		return nil, func() {}
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("analytics disabled", zap.Error(err))
		nc.Close()
		return nil, func() {}
	}
	return analytics.New(js, log), func() {
		_ = nc.Drain()
	}
}
