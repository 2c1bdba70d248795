package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/ratelimit"
	"shelfmark/internal/server"
	"shelfmark/internal/usertoken"
	"shelfmark/internal/util"
	"shelfmark/internal/webhook"
	"shelfmark/pkg/domain"
	"shelfmark/pkg/queue"
	"shelfmark/pkg/storage"
	"shelfmark/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
		objects = minioStore
	}

	tokens, err := usertoken.NewManager(usertoken.Config{Secret: cfg.JWTSecret})
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	dispatcherOptions := []webhook.Option{}
	if d := cfg.WebhookTimeoutDuration(); d > 0 {
		dispatcherOptions = append(dispatcherOptions, webhook.WithTimeout(d))
	}
	if cfg.WebhookMaxInFlight > 0 {
		dispatcherOptions = append(dispatcherOptions, webhook.WithMaxInFlight(int64(cfg.WebhookMaxInFlight)))
	}
	dispatcher := webhook.NewDispatcher(st, dispatcherOptions...)

	// With redis configured, events go through a stream and the dispatcher
	// consumes them out of band. Without it, dispatch happens in-process.
	var events catalog.EventSink = dispatcher
	if cfg.RedisAddr != "" {
		eventQueue, err := queue.NewRedisEventQueue(queue.RedisEventQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("failed to init event queue: %v", err)
		}
		eventQueue.Start(context.Background(), 1, func(ctx context.Context, evt domain.Event) error {
			dispatcher.Dispatch(ctx, evt)
			return nil
		})
		events = eventQueue
	}

	svc := catalog.NewService(st, objects, events)

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.WriteRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "shelfmark:ratelimit", cfg.WriteRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}
	proxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer := server.New(server.Config{
		Service: svc,
		Tokens:  tokens,
		Limiter: limiter,
		Proxies: proxies,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}
	if cfg.MaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConns)
	}

	slog.Info("catalog server listening", "addr", addr)
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
