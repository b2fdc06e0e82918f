// Package main runs the DocChat interactive client.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/atinyakov/docchat/internal/client/chats"
	"github.com/atinyakov/docchat/internal/client/session"
	"github.com/atinyakov/docchat/internal/client/storage"
	"github.com/atinyakov/docchat/internal/config"
	"github.com/atinyakov/docchat/internal/logger"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// newAuthenticator selects the authenticator named by the auth mode.
func newAuthenticator(opts *config.ClientOptions) (session.Authenticator, error) {
	if opts.AuthMode != "http" {
		return session.NewMockAuthenticator(time.Duration(opts.MockDelay)), nil
	}
	client, err := session.NewHTTPClient(opts.CAFile, time.Duration(opts.RequestTimeout))
	if err != nil {
		return nil, err
	}
	return session.NewHTTPAuthenticator(opts.AuthBaseURL, client), nil
}

func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	kv, closer, err := storage.Open(opts.StorageBackend, opts.StoragePath, opts.StorageSecret)
	if err != nil {
		zapLogger.Fatal("cannot open storage", zap.Error(err))
	}
	defer func() { _ = closer.Close() }()

	auth, err := newAuthenticator(opts)
	if err != nil {
		zapLogger.Fatal("cannot init authenticator", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := session.NewStore(kv, auth, zapLogger)
	store.Bootstrap(ctx)

	repo := chats.New(chats.SeedChats(), chats.WithLogger(zapLogger))
	chats.StartTrashPurger(ctx, repo,
		time.Duration(opts.TrashPurgeInterval),
		time.Duration(opts.TrashRetention),
		zapLogger,
	)

	fmt.Printf("DocChat %s (%s)\n", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A"))
	sh := &shell{in: os.Stdin, out: os.Stdout, store: store, repo: repo}
	sh.run(ctx)
}
