package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/handlers"
	"github.com/lendinghub/lending-service/internal/config"
	"github.com/lendinghub/lending-service/internal/database"
	invservice "github.com/lendinghub/lending-service/internal/inventory/service"
	"github.com/lendinghub/lending-service/internal/lending"
	"github.com/lendinghub/lending-service/internal/rpc"
	"github.com/lendinghub/lending-service/internal/storage"
	"github.com/lendinghub/lending-service/internal/sweep"
	"github.com/lendinghub/lending-service/internal/tokens"
	"github.com/lendinghub/lending-service/internal/users"
	"github.com/lendinghub/lending-service/pkg/logger"
	"github.com/lendinghub/lending-service/pkg/metrics"
	"github.com/lendinghub/lending-service/pkg/middleware"
	"github.com/lendinghub/lending-service/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

var startTime = time.Now()

func main() {
	// initialize logging (LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v sweep=%v", cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.MinIO.Endpoint != "", cfg.Sweep.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatalf("tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warnf("tracing shutdown: %v", err)
		}
	}()

	stores, err := database.OpenStores(ctx, cfg.MongoDB)
	if err != nil {
		logger.Fatalf("failed to open stores: %v", err)
	}
	defer func() { _ = stores.Close(context.Background()) }()

	tokenSvc, err := tokens.NewService(cfg.JWT)
	if err != nil {
		if cfg.Server.Environment != "development" {
			logger.Fatalf("token service: %v", err)
		}
		logger.Warnf("JWT_SECRET not set; using an ephemeral development secret")
		cfg.JWT.Secret = fmt.Sprintf("dev-%d", time.Now().UnixNano())
		if tokenSvc, err = tokens.NewService(cfg.JWT); err != nil {
			logger.Fatalf("token service: %v", err)
		}
	}

	policy, err := lending.NewPolicy(cfg.Lending)
	if err != nil {
		logger.Fatalf("lending policy: %v", err)
	}
	userSvc := users.NewService(stores.Users)
	engine := lending.NewEngine(stores.Items, stores.Loans, policy,
		lending.WithHolders(userSvc),
		lending.WithTracerProvider(tp),
	)
	catalog := invservice.New(stores.Items, stores.Loans)

	redisClient := connectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	if cfg.Sweep.Enabled {
		sweeper := newSweeper(ctx, cfg, stores, engine, redisClient, sweep.WithTracerProvider(tp))
		go sweeper.Run(ctx)
	} else {
		logger.Infof("reconciliation sweep disabled (SWEEP_ENABLED=false)")
	}

	r := gin.New()
	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(middleware.IdentityMiddleware(tokenSvc))

	// Optional global rate limiter (per holder when authenticated, otherwise per IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	checker := &readiness{stores: stores, redis: redisClient, redisRequired: cfg.Redis.Addr() != ""}

	// readiness endpoint: 200 only when critical dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps, ready := checker.status(pingCtx)
		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "backend": stores.Backend, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterRoutes(r, handlers.Services{
		Config:  cfg,
		Users:   userSvc,
		Tokens:  tokenSvc,
		Catalog: catalog,
		Engine:  engine,
	})

	// Expose Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting lending service on %s (store=%s)", addr, stores.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort != "" {
		grpcAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.GRPCPort)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logger.Fatalf("grpc listen %s: %v", grpcAddr, err)
		}
		grpcSrv = rpc.NewServer(checker.Check)
		go func() {
			logger.Infof("gRPC health service on %s", grpcAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Errorf("grpc server failed: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Infof("shutting down")
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// readiness pings the storage backend, and Redis when it is configured.
type readiness struct {
	stores        *database.Stores
	redis         *redis.Client
	redisRequired bool
}

func (r *readiness) status(ctx context.Context) (map[string]bool, bool) {
	deps := map[string]bool{"storage": r.stores.Ping(ctx) == nil}
	ready := deps["storage"]
	if r.redisRequired {
		deps["redis"] = r.redis != nil && r.redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}
	return deps, ready
}

// Check adapts status to the gRPC health service.
func (r *readiness) Check(ctx context.Context) error {
	deps, ready := r.status(ctx)
	if ready {
		return nil
	}
	var down []string
	for name, ok := range deps {
		if !ok {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	return fmt.Errorf("unavailable: %s", strings.Join(down, ", "))
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// features depending on it then run without it.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr() == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s): %v", cfg.Addr(), err)
		_ = client.Close()
		return nil
	}
	logger.Infof("Connected to Redis: %s", cfg.Addr())
	return client
}

func newSweeper(ctx context.Context, cfg *config.Config, stores *database.Stores, engine *lending.Engine, rdb *redis.Client, opts ...sweep.Option) *sweep.Sweeper {
	if rdb != nil {
		host, _ := os.Hostname()
		token := fmt.Sprintf("%s-%d", host, os.Getpid())
		opts = append(opts, sweep.WithLease(sweep.NewRedisLease(rdb, "lending:sweep:lease", token, cfg.Sweep.LeaseTTL)))
	}
	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewObjectArchive(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("sweep report archive disabled: %v", err)
		} else {
			opts = append(opts, sweep.WithReportSink(sweep.ArchiveSink{Store: archive}))
		}
	}
	return sweep.New(stores.Loans, engine, cfg.Sweep.Interval, opts...)
}
