package app

import (
	"context"
	"sync"

	"github.com/microarena/duelcore/internal/duel"
	"github.com/microarena/duelcore/internal/events"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/internal/store"
	"github.com/microarena/duelcore/internal/stream"
	"github.com/microarena/duelcore/pkg/cache"
	"github.com/microarena/duelcore/pkg/config"
	"github.com/microarena/duelcore/pkg/healthprobe"
	"github.com/microarena/duelcore/pkg/httpserver"
	"go.uber.org/zap"
)

// App wires the engine components together and drives their lifecycle.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engineStore   store.Store
	ledger        *ledger.Ledger
	registry      *duel.Registry
	book          *duel.Book
	publisher     events.Publisher
	hub           *stream.Hub
	duelCache     cache.Cache
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
