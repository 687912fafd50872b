package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/cachestore"
	"github.com/chatward/chatward/commands"
	"github.com/chatward/chatward/config"
	"github.com/chatward/chatward/countstore"
	"github.com/chatward/chatward/dispatch"
	"github.com/chatward/chatward/engine"
	"github.com/chatward/chatward/nuke"
	"github.com/chatward/chatward/permit"
	"github.com/chatward/chatward/setstore"
	"github.com/chatward/chatward/strikes"
	"github.com/chatward/chatward/trust"
)

type Server struct {
	gatewayHost string
	logger      *slog.Logger
	engine      *engine.Engine
	registry    *commands.Registry
	lanes       *engine.Lanes
	modService  dispatch.ModService
}

type Config struct {
	GatewayHost     string
	APIHost         string
	APIToken        string
	RedisURL        string
	ChannelsJSON    string
	SetsJSON        string
	LaneConcurrency int
	Logger          *slog.Logger
}

func NewServer(db *gorm.DB, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if !strings.HasPrefix(cfg.GatewayHost, "ws") {
		return nil, fmt.Errorf("specified gateway host must include 'ws://' or 'wss://'")
	}

	channels := config.NewMemStore()
	if cfg.ChannelsJSON != "" {
		if err := channels.LoadFromFileJSON(cfg.ChannelsJSON); err != nil {
			return nil, fmt.Errorf("loading channel configs: %w", err)
		}
		logger.Info("loaded channel config from JSON", "path", cfg.ChannelsJSON)
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var sets setstore.SetStore
	var permits permit.Store
	if cfg.RedisURL != "" {
		cnt, err := countstore.NewRedisCountStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %w", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(cfg.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %w", err)
		}
		cache = csh

		st, err := setstore.NewRedisSetStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis setstore: %w", err)
		}
		sets = st

		pst, err := permit.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis permit store: %w", err)
		}
		permits = pst
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		sets = setstore.NewMemSetStore()
		permits = permit.NewMemStore()
	}

	ctx := context.Background()
	if err := engine.SeedDefaultSets(ctx, sets); err != nil {
		return nil, fmt.Errorf("seeding default domain sets: %w", err)
	}
	if cfg.SetsJSON != "" {
		if err := setstore.LoadFromFileJSON(ctx, sets, cfg.SetsJSON); err != nil {
			return nil, fmt.Errorf("loading domain sets: %w", err)
		}
		logger.Info("loaded set config from JSON", "path", cfg.SetsJSON)
	}

	trustStore, err := trust.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing trust store: %w", err)
	}
	strikeStore, err := strikes.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing strike store: %w", err)
	}
	actionLog, err := audit.NewGormLog(db)
	if err != nil {
		return nil, fmt.Errorf("initializing audit log: %w", err)
	}

	modService := dispatch.NewHTTPModService(cfg.APIHost, cfg.APIToken)
	dispatcher := dispatch.NewDispatcher(modService, actionLog, counters, logger)

	eng := &engine.Engine{
		Logger:     logger,
		Config:     channels,
		Counters:   counters,
		Sets:       sets,
		Cache:      cache,
		Trust:      trustStore,
		Permits:    permits,
		Ledger:     strikes.NewLedger(strikeStore),
		Dispatcher: dispatcher,
	}

	sweeper := nuke.NewSweeper(dispatcher, actionLog, logger)
	registry := commands.NewRegistry(&commands.Deps{
		Engine:  eng,
		Sweeper: sweeper,
		Logger:  logger,
	})

	concurrency := cfg.LaneConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	s := &Server{
		gatewayHost: cfg.GatewayHost,
		logger:      logger,
		engine:      eng,
		registry:    registry,
		modService:  modService,
	}
	s.lanes = engine.NewLanes(concurrency, s.handleMessage)

	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
