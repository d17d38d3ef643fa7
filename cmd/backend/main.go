package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bkohler93/ranked-backend/internal/app/backend"
	"github.com/bkohler93/ranked-backend/internal/leaderboard"
	"github.com/bkohler93/ranked-backend/internal/notifier"
	"github.com/bkohler93/ranked-backend/internal/shared/config"
	"github.com/bkohler93/ranked-backend/internal/shared/queue"
	"github.com/bkohler93/ranked-backend/internal/shared/session"
	"github.com/bkohler93/ranked-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	config.LoadEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	st, err := store.Open(cfg.DBFileName)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPW,
	})
	defer rdb.Close()
	standings := leaderboard.New(rdb)

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.WebhookURL != "" {
		notify = notifier.NewWebhook(cfg.WebhookURL, log)
	}

	registry := session.NewRegistry()
	hub := backend.NewHub()
	queues := queue.NewManager()
	matchmaker := queue.NewMatchmaker(queues)

	dispatcher := backend.NewDispatcher(log)
	handlers := backend.NewHandlers(registry, hub, queues, st, standings, notify, log, cfg.LobbyServer, cfg.LobbyPort)
	handlers.RegisterAll(dispatcher)

	gateway := backend.NewGateway(registry, hub, dispatcher, notify, log)
	scheduler := backend.NewScheduler(registry, hub, queues, matchmaker, st, notify, log)

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return gateway.Run(runCtx, cfg.Port) })
	g.Go(func() error { return scheduler.Run(runCtx) })

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("backend stopped with error")
	}

	notify.BackendOffline(context.Background())
	log.Info("backend shut down")
}
