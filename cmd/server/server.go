package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vdavid/vcode/internal/api"
	"github.com/vdavid/vcode/internal/app"
	"github.com/vdavid/vcode/internal/auth"
	"github.com/vdavid/vcode/internal/cache"
	"github.com/vdavid/vcode/internal/config"
	"github.com/vdavid/vcode/internal/crypto"
	"github.com/vdavid/vcode/internal/db"
	"github.com/vdavid/vcode/internal/monitoring"
	"go.uber.org/zap"
)

// Server is the wired process: the HTTP handler plus the background loops it needs.
type Server struct {
	Handler http.Handler
	Runtime *app.Runtime
	Sweeper *cache.Sweeper
	Limiter *api.UserLimiter
	Metrics *monitoring.Metrics

	redis *goredis.Client
}

// NewServer wires every component against pool.
func NewServer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, zlog *zap.Logger) (*Server, error) {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	srv := &Server{Metrics: monitoring.NewMetrics()}
	health := map[string]monitoring.Pinger{"database": pool}

	var results cache.Store
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		srv.redis = rdb
		health["redis"] = redisPinger{rdb}
		results = cache.NewRedis(rdb, nil)
	case config.CacheBackendMemory:
		results = cache.NewMemory(nil)
	default:
		results = cache.NewPostgres(pool, nil)
	}

	store := db.NewStore(pool)
	srv.Runtime, err = app.NewRuntime(ctx, app.Services{
		Storage:   store,
		Secrets:   encryptor,
		Cache:     results,
		Metrics:   srv.Metrics,
		Log:       zlog,
		Plaintext: cfg.TestMode,
	})
	if err != nil {
		srv.Close()
		return nil, err
	}

	srv.Sweeper = cache.NewSweeper(results, cfg.CacheSweepInterval, zlog)
	srv.Limiter = api.NewUserLimiter(cfg.SearchRatePerMinute, cfg.SearchBurst)

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TestMode, zlog)
	routes := api.Routes{
		Search:     api.NewSearchHandler(srv.Runtime, srv.Limiter, srv.Metrics, zlog),
		LastResult: api.NewLastResultHandler(results, srv.Metrics, zlog),
		Platforms:  api.NewPlatformsHandler(store, srv.Runtime, zlog),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	routes.Register(mux, authenticator.RequireAuth, srv.Metrics)

	checks := monitoring.NewHealthHandler(health)
	mux.HandleFunc("GET /healthz", checks.LiveEndpoint)
	mux.HandleFunc("GET /readyz", checks.ReadyEndpoint)
	mux.Handle("GET /metrics", srv.Metrics.Handler())

	srv.Handler = mux
	return srv, nil
}

// Close releases connections the server opened itself.
func (s *Server) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

type redisPinger struct{ rdb *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "vcode API is running")
}
