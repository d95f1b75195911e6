package main

import (
	"context"   // Context for startup checks and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os/signal" // Shutdown signals
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"wallet_ledger/internal/api"          // HTTP handlers
	"wallet_ledger/internal/config"       // Configuration
	"wallet_ledger/internal/db"           // Database connection and migration
	"wallet_ledger/internal/domain"       // Store ports
	"wallet_ledger/internal/idempotency"  // Idempotency guard
	"wallet_ledger/internal/ledger"       // Ledger engine
	"wallet_ledger/internal/store"        // gorm store
	"wallet_ledger/internal/store/memory" // In-process store
	"wallet_ledger/internal/utils"        // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage selected by DB_DRIVER
	var st domain.Store
	switch cfg.DBDriver {
	case config.DriverMemory:
		st = memory.New(cfg.Currency)
		log.Warn("Using in-memory storage, balances are lost on restart")
	default:
		gdb, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
		}
		st = store.New(gdb, cfg.Currency)
	}

	// Redis is optional; without it leases stay in process and reads are not cached
	var leases idempotency.LeaseStore = idempotency.NewMemoryLeases()
	var cache utils.Cache = utils.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		leases = idempotency.NewRedisLeases(redisClient)
		cache = utils.NewRedisCache(redisClient)
	} else {
		log.Warn("REDIS_ADDR not set, idempotency leases are local to this process")
	}

	guard := idempotency.NewGuard(leases, cfg.IdempotencyLease, idempotency.DefaultWait, log)
	engine := ledger.NewEngine(st, guard,
		ledger.WithLogger(log),
		ledger.WithMaxRetries(cfg.MaxRetries),
	)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default() // Gin router instance
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, api.Deps{
		Engine:    engine,        // Ledger engine
		Users:     st.Users(),    // Account lookups
		Cache:     cache,         // Read cache
		JWTSecret: cfg.JWTSecret, // Token secret
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		log.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	// Let in-flight ledger units finish before exiting
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}
