// Package session hands out per-session storefront state. Each browser
// session gets its own cart engine and interaction tracker, persisted
// under a session-scoped key namespace.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/freshharvest/market-backend/internal/cart"
	"github.com/freshharvest/market-backend/internal/catalog"
	"github.com/freshharvest/market-backend/internal/recommend"
	"github.com/freshharvest/market-backend/internal/tracker"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
	"github.com/freshharvest/market-backend/pkg/metrics"
)

// Handle bundles the stateful services belonging to one session.
type Handle struct {
	Cart      *cart.Engine
	Tracker   *tracker.Tracker
	Recommend *recommend.Engine
}

type Manager struct {
	mu      sync.Mutex
	handles map[string]*Handle

	store       kv.Store
	catalog     *catalog.Catalog
	logg        *logger.Logger
	metrics     *metrics.StorefrontMetrics
	maxQuantity int
}

type ManagerParams struct {
	Store           kv.Store
	Catalog         *catalog.Catalog
	Logger          *logger.Logger
	Metrics         *metrics.StorefrontMetrics
	CartMaxQuantity int
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	return &Manager{
		handles:     map[string]*Handle{},
		store:       params.Store,
		catalog:     params.Catalog,
		logg:        params.Logger,
		metrics:     params.Metrics,
		maxQuantity: params.CartMaxQuantity,
	}, nil
}

// Handle returns the session's services, building and rehydrating them
// on first use. Subsequent calls for the same id return the same handle.
func (m *Manager) Handle(ctx context.Context, sessionID string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if handle, ok := m.handles[sessionID]; ok {
		return handle, nil
	}

	scoped := kv.Namespaced(m.store, "session:"+sessionID)

	cartEngine, err := cart.NewEngine(ctx, cart.EngineParams{
		Catalog:     m.catalog,
		Store:       scoped,
		Logger:      m.logg,
		Metrics:     m.metrics,
		MaxQuantity: m.maxQuantity,
	})
	if err != nil {
		return nil, fmt.Errorf("building cart for session: %w", err)
	}

	interactions, err := tracker.New(ctx, tracker.Params{
		Store:   scoped,
		Logger:  m.logg,
		Metrics: m.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("building tracker for session: %w", err)
	}

	recommender, err := recommend.New(m.catalog, interactions, m.metrics)
	if err != nil {
		return nil, fmt.Errorf("building recommender for session: %w", err)
	}

	handle := &Handle{Cart: cartEngine, Tracker: interactions, Recommend: recommender}
	m.handles[sessionID] = handle
	return handle, nil
}
