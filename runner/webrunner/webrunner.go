// Package webrunner wires the store, the enrichment gateway and the HTTP
// server together and runs them until shutdown.
package webrunner

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gosom/user-directory/huggingface"
	"github.com/gosom/user-directory/rediscache"
	"github.com/gosom/user-directory/runner"
	"github.com/gosom/user-directory/users"
	"github.com/gosom/user-directory/users/memory"
	"github.com/gosom/user-directory/users/postgres"
	"github.com/gosom/user-directory/users/sqlite"
	"github.com/gosom/user-directory/web"
)

type webrunner struct {
	srv     *web.Server
	lg      *zap.Logger
	closers []io.Closer
}

func New(cfg *runner.Config) (runner.Runner, error) {
	lg, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	ans := webrunner{lg: lg}

	repo, checker, err := ans.newRepository(cfg)
	if err != nil {
		return nil, err
	}

	bioOpts := []huggingface.Option{
		huggingface.WithModel(cfg.ModelID),
		huggingface.WithLogger(lg),
	}

	if cfg.RedisAddr != "" {
		cache := rediscache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, lg)
		ans.closers = append(ans.closers, cache)

		bioOpts = append(bioOpts, huggingface.WithCache(cache))
	}

	bios := huggingface.NewClient(cfg.HuggingFaceAPIKey, bioOpts...)

	svc := users.NewService(repo, bios, lg)

	srvOpts := []web.Option{
		web.WithLogger(log.Default()),
	}

	if checker != nil {
		srvOpts = append(srvOpts, web.WithStatusChecker(checker))
	}

	ans.srv = web.New(svc, cfg.Addr, srvOpts...)

	return &ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return w.srv.Start(ctx)
	})

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	for _, c := range w.closers {
		_ = c.Close()
	}

	return w.lg.Sync()
}

func (w *webrunner) newRepository(cfg *runner.Config) (users.UserRepository, web.StatusChecker, error) {
	switch {
	case cfg.InMemory:
		w.lg.Info("using in-memory store")

		return memory.New(), nil, nil
	case cfg.Dsn != "":
		w.lg.Info("using postgres store")

		store, err := postgres.New(cfg.Dsn)
		if err != nil {
			return nil, nil, err
		}

		w.closers = append(w.closers, store)

		return store, store, nil
	default:
		if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
			return nil, nil, err
		}

		dbpath := filepath.Join(cfg.DataFolder, "users.db")

		w.lg.Info("using sqlite store", zap.String("path", dbpath))

		store, err := sqlite.New(dbpath)
		if err != nil {
			return nil, nil, err
		}

		w.closers = append(w.closers, store)

		return store, store, nil
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
