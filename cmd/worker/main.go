// The worker drains due notification jobs and delivers them through the
// Telegram Bot API. The queue store takes no lease on popped jobs, so
// exactly one worker process must run against a given Redis instance.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osama-agency/telesklad-sub006/internal/config"
	"github.com/osama-agency/telesklad-sub006/internal/queue"
	"github.com/osama-agency/telesklad-sub006/internal/storage"
	"github.com/osama-agency/telesklad-sub006/internal/telegram"
	"github.com/osama-agency/telesklad-sub006/internal/worker"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	rdb := r.NewClient(&r.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	tokens := telegram.NewSettingsTokens(storage.New(db), cfg.TokenCacheTTL)
	tg := telegram.NewClient(tokens, cfg.TelegramAPIURL)

	d := worker.NewDispatcher(queue.NewStore(rdb), tg, log, worker.Config{
		PollInterval: cfg.WorkerPollInterval,
		PageSize:     cfg.WorkerPageSize,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal("worker", zap.Error(err))
	}
	log.Info("worker stopped")
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
