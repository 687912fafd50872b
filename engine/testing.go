package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatward/chatward/audit"
	"github.com/chatward/chatward/cachestore"
	"github.com/chatward/chatward/config"
	"github.com/chatward/chatward/countstore"
	"github.com/chatward/chatward/dispatch"
	"github.com/chatward/chatward/permit"
	"github.com/chatward/chatward/setstore"
	"github.com/chatward/chatward/strikes"
	"github.com/chatward/chatward/trust"
)

// EngineTestFixture wires a complete in-memory engine with a mock
// moderation API, for tests across packages.
type EngineTestFixture struct {
	Engine  *Engine
	Service *dispatch.MockModService
	Log     *audit.MemLog
}

func NewEngineTestFixture() *EngineTestFixture {
	sets := setstore.NewMemSetStore()
	ctx := context.Background()
	_ = SeedDefaultSets(ctx, sets)
	_ = sets.Add(ctx, SetEmoteVocabulary, []string{"Kappa", "PogChamp", "LUL"})

	svc := dispatch.NewMockModService()
	log := audit.NewMemLog()
	counters := countstore.NewMemCountStore()

	eng := &Engine{
		Logger:     slog.Default(),
		Config:     config.NewMemStore(),
		Counters:   counters,
		Sets:       sets,
		Cache:      cachestore.NewMemCacheStore(64, time.Hour),
		Trust:      trust.NewMemStore(),
		Permits:    permit.NewMemStore(),
		Ledger:     strikes.NewLedger(strikes.NewMemStore()),
		Dispatcher: dispatch.NewDispatcher(svc, log, counters, nil),
	}
	return &EngineTestFixture{Engine: eng, Service: svc, Log: log}
}
