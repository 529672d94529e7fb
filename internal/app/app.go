package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Ledger/internal/config"
	"Ledger/internal/middleware"
	"Ledger/internal/repo"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const limiterCleanupInterval = time.Minute

type App struct {
	cfg    config.Config
	log    *logrus.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	store  repo.AccountRepo
	router *gin.Engine
	stop   chan struct{}
	once   sync.Once
}

// New connects the configured account store and builds the router.
func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, stop: make(chan struct{})}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := runMigrations(cfg.PG.DSN, cfg.PG.MigrationsDir); err != nil {
			return nil, err
		}
		db, err := newPostgres(cfg.PG)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = repo.NewPGAccountRepo(db, cfg.Ledger.DefaultBalance)
	case config.DriverRedis:
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		a.store = repo.NewRedisAccountRepo(rdb, cfg.Ledger.DefaultBalance)
	case config.DriverMemory:
		a.store = repo.NewMemoryAccountRepo(cfg.Ledger.DefaultBalance)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	log.WithField("driver", cfg.Store.Driver).Info("account store ready")

	a.router = a.newRouter()
	return a, nil
}

// NewWithStore builds an App around an existing store. Used by tests.
func NewWithStore(cfg config.Config, log *logrus.Logger, store repo.AccountRepo) *App {
	a := &App{cfg: cfg, log: log, store: store, stop: make(chan struct{})}
	a.router = a.newRouter()
	return a
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	a.once.Do(func() {
		close(a.stop)
		if a.redis != nil {
			_ = a.redis.Close()
		}
		if a.db != nil {
			a.db.Close()
		}
	})
	return nil
}

func newPostgres(cfg config.PGConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = 2
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), pcfg)
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
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string, migrationsDir string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (a *App) newRouter() *gin.Engine {
	if a.cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(a.log),
		middleware.Recovery(a.log),
	)
	if a.cfg.Limit.RPS > 0 {
		rl := middleware.NewRateLimiter(a.cfg.Limit.RPS, a.cfg.Limit.Burst, a.log)
		rl.StartCleanup(limiterCleanupInterval, a.stop)
		r.Use(rl.Handler())
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, a.cfg, a.log, a.store)
	return r
}
