package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tsukiblade/SimpleTaskManager/internal/cache"
	"github.com/tsukiblade/SimpleTaskManager/internal/config"
	"github.com/tsukiblade/SimpleTaskManager/internal/events"
	"github.com/tsukiblade/SimpleTaskManager/internal/middleware"
	"github.com/tsukiblade/SimpleTaskManager/internal/repo"
	"github.com/tsukiblade/SimpleTaskManager/internal/service"
	"github.com/tsukiblade/SimpleTaskManager/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	db     *pgxpool.Pool
	redis  *redis.Client
	hub    *events.Hub
	router *gin.Engine
}

func New(cfg config.Config, lg *zap.SugaredLogger) (*App, error) {
	a := &App{cfg: cfg, log: lg}

	taskRepo, err := a.newTaskRepo()
	if err != nil {
		return nil, err
	}

	var taskCache service.TaskCache
	if cfg.Redis.Enabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			a.closeBackends()
			return nil, err
		}
		a.redis = rdb
		tc := cache.NewTaskCache(rdb, cfg.Redis.DefaultTTL.Duration())
		if err := tc.InvalidateAll(context.Background()); err != nil {
			a.closeBackends()
			return nil, fmt.Errorf("redis flush task cache: %w", err)
		}
		taskCache = tc
	}

	if cfg.Store.Seed {
		n, err := repo.Seed(context.Background(), taskRepo, time.Now())
		if err != nil {
			a.closeBackends()
			return nil, fmt.Errorf("seed tasks: %w", err)
		}
		lg.Infow("seeded tasks", "count", n, "driver", cfg.Store.Driver)
	}

	a.hub = events.NewHub(lg)
	svc := service.NewTaskService(taskRepo, taskCache, a.hub, lg)
	a.router = newRouter(cfg, lg, svc, a.hub)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	if a.hub != nil {
		a.hub.Close(ctx)
	}
	a.closeBackends()
	return nil
}

func (a *App) closeBackends() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) newTaskRepo() (repo.TaskRepo, error) {
	if a.cfg.Store.Driver != config.DriverPostgres {
		return repo.NewMemoryTaskRepo(), nil
	}
	db, err := newPostgres(a.cfg.PG.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := migrations.Up(a.cfg.PG.DSN); err != nil {
		a.closeBackends()
		return nil, err
	}
	return repo.NewPGTaskRepo(db), nil
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	// URL keeps TLS settings for rediss://.
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opt = parsed
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, lg *zap.SugaredLogger, svc *service.TaskService, hub *events.Hub) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(lg))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Location", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, svc, hub)
	return r
}
