package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/cache"
	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/logger"
	"github.com/kiwari-pos/terminal/internal/occupancy"
	"github.com/kiwari-pos/terminal/internal/receipt"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/router"
	"github.com/kiwari-pos/terminal/internal/service"
	"github.com/kiwari-pos/terminal/internal/telemetry"
	"github.com/kiwari-pos/terminal/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("terminal stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Session store
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := auth.NewSession(store, log)
	client := remote.NewClient(
		cfg.RemoteURL,
		&http.Client{Timeout: cfg.RemoteTimeout},
		cache.New(store, cfg.CacheTTL, log),
		sessions,
		log,
	)

	// Printer
	printer, closePrinter, err := openPrinter(cfg, log)
	if err != nil {
		return err
	}
	if closePrinter != nil {
		defer closePrinter.Close()
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	c := cart.New()
	tracker := occupancy.NewTracker(store, log)
	board := service.NewBoard(client, log)
	orders := service.NewOrderService(c, client, client, tracker, board, hub, service.OrderOptions{
		ReissueReceiptOnUpdate: cfg.ReissueReceiptOnUpdate,
	}, log)
	prints := service.NewPrintService(board, client, client, printer, hub, log)

	r := router.New(router.Deps{
		Config:  cfg,
		Log:     log,
		Remote:  client,
		Session: sessions,
		Cart:    c,
		Tracker: tracker,
		Board:   board,
		Orders:  orders,
		Prints:  prints,
		Hub:     hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("terminal listening", zap.String("port", cfg.Port), zap.String("remote", cfg.RemoteURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Store, func(), error) {
	if cfg.CacheBackend != "redis" {
		log.Info("using in-memory session store")
		return cache.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.String("namespace", cfg.RedisNamespace))
	return cache.NewRedisStore(rdb, cfg.RedisNamespace), func() { rdb.Close() }, nil
}

func openPrinter(cfg *config.Config, log *zap.Logger) (receipt.Printer, io.Closer, error) {
	switch cfg.Printer {
	case "file":
		p, closer, err := receipt.OpenDevicePrinter(cfg.PrinterPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("printing to device", zap.String("path", cfg.PrinterPath))
		return p, closer, nil
	case "amqp":
		q, err := receipt.DialPrintQueue(cfg.AMQPURL, cfg.PrintQueue)
		if err != nil {
			return nil, nil, err
		}
		log.Info("printing to queue", zap.String("queue", cfg.PrintQueue))
		return receipt.NewAMQPPrinter(q.Channel(), cfg.PrintQueue), q, nil
	default:
		return receipt.NewWriterPrinter(os.Stdout), nil, nil
	}
}
