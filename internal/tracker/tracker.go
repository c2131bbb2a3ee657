// Package tracker keeps the append-only interaction history that feeds the
// recommendation engine: product views, searches, and cart actions, plus
// the derived per-category affinity counters.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/freshharvest/market-backend/internal/catalog"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
	"github.com/freshharvest/market-backend/pkg/metrics"
)

const (
	storageKey = "user_profile"

	maxViewHistory   = 50
	maxSearchHistory = 20
	maxCartHistory   = 50
)

// Cart action kinds recorded in the history.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionUpdate = "update"
	ActionClear  = "clear"
)

// ViewRecord is one product view, most recent first in the history.
type ViewRecord struct {
	ProductID int     `json:"productId"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

// SearchRecord is one search submission.
type SearchRecord struct {
	Query        string `json:"query"`
	ResultsCount int    `json:"resultsCount"`
	Timestamp    string `json:"timestamp"`
}

// CartActionRecord is one cart mutation.
type CartActionRecord struct {
	ProductID int    `json:"productId"`
	Action    string `json:"action"`
	Quantity  int    `json:"quantity"`
	Timestamp string `json:"timestamp"`
}

// Profile is the persisted behavioural state. CategoryAffinity only ever
// grows; history slices are bounded and most-recent-first.
type Profile struct {
	ViewHistory      []ViewRecord       `json:"viewHistory"`
	SearchHistory    []SearchRecord     `json:"searchHistory"`
	CartHistory      []CartActionRecord `json:"cartHistory"`
	CategoryAffinity map[string]int     `json:"categoryAffinity"`
	LastVisit        string             `json:"lastVisit"`
}

// Tracker records interactions and persists the profile after every
// mutation. Mutations are serialized behind a mutex.
type Tracker struct {
	mu      sync.Mutex
	profile Profile
	store   kv.Store
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
}

// Params collects the tracker's injected dependencies.
type Params struct {
	Store   kv.Store
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
}

// New loads the persisted profile (or starts fresh), stamps the visit
// time, and persists.
func New(ctx context.Context, params Params) (*Tracker, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	t := &Tracker{
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
		profile: emptyProfile(),
	}

	var loaded Profile
	found, err := params.Store.Get(ctx, storageKey, &loaded)
	if err != nil && params.Logger != nil {
		params.Logger.Error(ctx, "failed to load user profile", err)
	}
	if found {
		if loaded.CategoryAffinity == nil {
			loaded.CategoryAffinity = map[string]int{}
		}
		t.profile = loaded
	}
	t.profile.LastVisit = now()
	t.persist(ctx)
	return t, nil
}

// TrackView prepends a view record, trims the history, and bumps the
// category affinity counter.
func (t *Tracker) TrackView(ctx context.Context, product catalog.Product) {
	t.mu.Lock()
	t.profile.ViewHistory = append([]ViewRecord{{
		ProductID: product.ID,
		Category:  product.Category,
		Price:     product.Price,
		Timestamp: now(),
	}}, t.profile.ViewHistory...)
	if len(t.profile.ViewHistory) > maxViewHistory {
		t.profile.ViewHistory = t.profile.ViewHistory[:maxViewHistory]
	}
	t.profile.CategoryAffinity[product.Category]++
	t.persist(ctx)
	t.mu.Unlock()

	t.metrics.IncTrackedEvent("view")
}

// TrackSearch records a search. Blank queries are ignored.
func (t *Tracker) TrackSearch(ctx context.Context, query string, resultsCount int) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return
	}

	t.mu.Lock()
	t.profile.SearchHistory = append([]SearchRecord{{
		Query:        trimmed,
		ResultsCount: resultsCount,
		Timestamp:    now(),
	}}, t.profile.SearchHistory...)
	if len(t.profile.SearchHistory) > maxSearchHistory {
		t.profile.SearchHistory = t.profile.SearchHistory[:maxSearchHistory]
	}
	t.persist(ctx)
	t.mu.Unlock()

	t.metrics.IncTrackedEvent("search")
}

// TrackCartAction records a cart mutation. Affinity is untouched; only
// views feed it.
func (t *Tracker) TrackCartAction(ctx context.Context, productID int, action string, quantity int) {
	t.mu.Lock()
	t.profile.CartHistory = append([]CartActionRecord{{
		ProductID: productID,
		Action:    action,
		Quantity:  quantity,
		Timestamp: now(),
	}}, t.profile.CartHistory...)
	if len(t.profile.CartHistory) > maxCartHistory {
		t.profile.CartHistory = t.profile.CartHistory[:maxCartHistory]
	}
	t.persist(ctx)
	t.mu.Unlock()

	t.metrics.IncTrackedEvent("cart")
}

// Profile returns a deep copy; callers can mutate it freely.
func (t *Tracker) Profile() Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Profile{
		ViewHistory:      append([]ViewRecord(nil), t.profile.ViewHistory...),
		SearchHistory:    append([]SearchRecord(nil), t.profile.SearchHistory...),
		CartHistory:      append([]CartActionRecord(nil), t.profile.CartHistory...),
		CategoryAffinity: make(map[string]int, len(t.profile.CategoryAffinity)),
		LastVisit:        t.profile.LastVisit,
	}
	for k, v := range t.profile.CategoryAffinity {
		out.CategoryAffinity[k] = v
	}
	return out
}

// RecentlyViewed returns up to n distinct product ids, most recent first.
func (t *Tracker) RecentlyViewed(n int) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := map[int]struct{}{}
	var out []int
	for _, record := range t.profile.ViewHistory {
		if _, dup := seen[record.ProductID]; dup {
			continue
		}
		seen[record.ProductID] = struct{}{}
		out = append(out, record.ProductID)
		if len(out) == n {
			break
		}
	}
	return out
}

// TopCategories returns up to n categories by affinity, highest first.
// Equal counts order by category name for a stable result.
func (t *Tracker) TopCategories(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	type entry struct {
		category string
		count    int
	}
	entries := make([]entry, 0, len(t.profile.CategoryAffinity))
	for category, count := range t.profile.CategoryAffinity {
		entries = append(entries, entry{category, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].category < entries[j].category
	})

	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.category
	}
	return out
}

// InteractionCount is the total number of recorded events across all
// three histories. It drives recommendation tier selection.
func (t *Tracker) InteractionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.profile.ViewHistory) + len(t.profile.SearchHistory) + len(t.profile.CartHistory)
}

// Clear resets the profile to its empty default and persists it.
func (t *Tracker) Clear(ctx context.Context) {
	t.mu.Lock()
	t.profile = emptyProfile()
	t.persist(ctx)
	t.mu.Unlock()
}

func (t *Tracker) persist(ctx context.Context) {
	if err := t.store.Set(ctx, storageKey, t.profile); err != nil {
		t.metrics.IncPersistFailure("tracker")
		if t.logg != nil {
			t.logg.Error(ctx, "failed to persist user profile", err)
		}
	}
}

func emptyProfile() Profile {
	return Profile{CategoryAffinity: map[string]int{}}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
