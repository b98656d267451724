package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/kiwari-pos/terminal/internal/cache"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/logger"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// CLI flags
	remoteURL := flag.String("remote", "", "Remote POS service base URL")
	redisAddr := flag.String("redis", "", "Redis address shared with the terminals")
	namespace := flag.String("namespace", "", "Terminal cache namespace")
	token := flag.String("token", "", "Bearer token used to read settings and menu")
	ttl := flag.Duration("ttl", 10*time.Minute, "Cache entry TTL")
	flag.Parse()

	// Fall back to environment variables, then defaults
	*remoteURL = firstNonEmpty(*remoteURL, os.Getenv("REMOTE_URL"), "http://localhost:8081")
	*redisAddr = firstNonEmpty(*redisAddr, os.Getenv("REDIS_ADDR"), "localhost:6379")
	*namespace = firstNonEmpty(*namespace, os.Getenv("REDIS_NAMESPACE"), "pos:terminal")
	*token = firstNonEmpty(*token, os.Getenv("POS_TOKEN"))
	if *token == "" {
		log.Fatal("A token is required: pass -token or set POS_TOKEN")
	}

	zlog, err := logger.New("info")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Fatal("unable to ping redis", zap.String("addr", *redisAddr), zap.Error(err))
	}

	kc := cache.New(cache.NewRedisStore(rdb, *namespace), *ttl, zlog)
	client := remote.NewClient(*remoteURL, &http.Client{Timeout: 30 * time.Second}, kc, remote.StaticToken(*token), zlog)

	// Drop what is there so the reads below go to the service.
	for _, key := range []string{enum.CacheKeySettings, enum.CacheKeyMenuItems} {
		if err := kc.Invalidate(ctx, key); err != nil {
			zlog.Fatal("failed to invalidate", zap.String("key", key), zap.Error(err))
		}
	}

	settings, err := client.Settings(ctx)
	if err != nil {
		zlog.Fatal("failed to fetch settings", zap.Error(err))
	}
	items, err := client.MenuItems(ctx)
	if err != nil {
		zlog.Fatal("failed to fetch menu items", zap.Error(err))
	}

	zlog.Info("cache warmed",
		zap.String("namespace", *namespace),
		zap.String("business", settings.BusinessName),
		zap.Int("menu_items", len(items)),
		zap.Duration("ttl", *ttl),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
