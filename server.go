package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agribenchmark/farmsync/backend"
	"github.com/agribenchmark/farmsync/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// Development backend serving the agribenchmark REST contract. Rows live in
// memory unless BACKEND_STORE=mysql.
func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	opts := backend.Options{
		Logger:         logger,
		PutCreates:     config.AtomicUpsert(),
		AllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RequireToken:   strings.EqualFold(strings.TrimSpace(os.Getenv("REQUIRE_API_TOKEN")), "true"),
	}
	if err := opts.CheckAuth(); err != nil {
		logger.WithFields(logrus.Fields{"field": "auth"}).Fatal("REQUIRE_API_TOKEN is set: " + err.Error())
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store, closeStore, err := openStore(sigCtx, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "store"}).Fatal(err.Error())
	}
	defer closeStore()

	opts.Locker = connectLocker(sigCtx, logger)
	r := backend.NewRouter(store, opts)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"port":        port,
		"put_creates": config.AtomicUpsert(),
	}).Info("backend listening")

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
		}
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}
}

func openStore(ctx context.Context, logger *logrus.Logger) (backend.Store, func(), error) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("BACKEND_STORE")), "mysql") {
		logger.WithFields(logrus.Fields{"field": "store"}).Warn("using in-memory store; rows are lost on restart")
		return backend.NewMemoryStore(), func() {}, nil
	}

	if err := config.ConnectDatabaseWithRetry(ctx); err != nil {
		return nil, nil, err
	}
	db := config.GetDB()
	sqlDB, _ := db.DB()
	closeDB := func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}

	store := backend.NewGormStore(db)
	// AutoMigrate can block tables; allow running it as a separate job.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := store.Migrate(); err != nil {
			closeDB()
			return nil, nil, err
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	return store, closeDB, nil
}

// connectLocker returns nil when Redis is not configured or unreachable; the
// backend then writes without locks.
func connectLocker(ctx context.Context, logger *logrus.Logger) *redislock.Client {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if addr == "" {
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := config.ConnectRedisWithRetry(connectCtx, addr); err != nil {
		logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable; serving without write locks: " + err.Error())
		return nil
	}
	return config.GetRedisLock()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
