// Package cart owns cart line items, applied discount codes, and every
// derived total. Nothing else in the system computes prices.
package cart

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/freshharvest/market-backend/internal/catalog"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
	"github.com/freshharvest/market-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	storageKey         = "cart"
	defaultMaxQuantity = 99
)

type productCatalog interface {
	GetByID(id int) (catalog.Product, bool)
	VolumeRules() []catalog.VolumeRule
	CodeRule(code string) (catalog.CodeRule, bool)
}

// Line is a single cart entry: one product id plus a quantity in [1, max].
type Line struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// Engine is the cart pricing engine. All mutations are serialized behind a
// mutex so a multi-goroutine caller sees the same single-writer behaviour
// the storefront relies on.
type Engine struct {
	mu      sync.Mutex
	catalog productCatalog
	store   kv.Store
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
	maxQty  int

	lines   map[int]*Line
	order   []int
	codes   []string
	subs    map[int]func(Snapshot)
	nextSub int
}

// EngineParams collects the engine's injected dependencies.
type EngineParams struct {
	Catalog     productCatalog
	Store       kv.Store
	Logger      *logger.Logger
	Metrics     *metrics.StorefrontMetrics
	MaxQuantity int
}

// NewEngine builds a cart engine and rehydrates any persisted state.
// Persisted lines whose product no longer exists in the catalog are
// silently dropped.
func NewEngine(ctx context.Context, params EngineParams) (*Engine, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	maxQty := params.MaxQuantity
	if maxQty <= 0 {
		maxQty = defaultMaxQuantity
	}
	e := &Engine{
		catalog: params.Catalog,
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
		maxQty:  maxQty,
		lines:   map[int]*Line{},
		subs:    map[int]func(Snapshot){},
	}
	e.load(ctx)
	return e, nil
}

// AddItem adds quantity of the product to the cart, creating the line if
// needed. Quantities accumulate and clamp at the maximum; the overflow is
// discarded, not an error.
func (e *Engine) AddItem(ctx context.Context, productID, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	if _, ok := e.catalog.GetByID(productID); !ok {
		e.metrics.IncCartOp("add_item", "not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	e.mu.Lock()
	if line, ok := e.lines[productID]; ok {
		line.Quantity = clamp(line.Quantity+quantity, 1, e.maxQty)
	} else {
		e.lines[productID] = &Line{ProductID: productID, Quantity: clamp(quantity, 1, e.maxQty)}
		e.order = append(e.order, productID)
	}
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("add_item", "success")
	e.notify(ctx, snap)
	return nil
}

// RemoveItem deletes the line for the product. Removing an absent line is
// reported as not-found and emits no change.
func (e *Engine) RemoveItem(ctx context.Context, productID int) error {
	e.mu.Lock()
	if _, ok := e.lines[productID]; !ok {
		e.mu.Unlock()
		e.metrics.IncCartOp("remove_item", "not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	delete(e.lines, productID)
	e.order = removeID(e.order, productID)
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("remove_item", "success")
	e.notify(ctx, snap)
	return nil
}

// UpdateQuantity sets the line's quantity, clamped to [1, max]. A quantity
// of zero or less behaves as RemoveItem.
func (e *Engine) UpdateQuantity(ctx context.Context, productID, quantity int) error {
	if quantity <= 0 {
		return e.RemoveItem(ctx, productID)
	}

	e.mu.Lock()
	line, ok := e.lines[productID]
	if !ok {
		e.mu.Unlock()
		e.metrics.IncCartOp("update_quantity", "not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	line.Quantity = clamp(quantity, 1, e.maxQty)
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("update_quantity", "success")
	e.notify(ctx, snap)
	return nil
}

// ClearCart drops every line and applied code.
func (e *Engine) ClearCart(ctx context.Context) {
	e.mu.Lock()
	e.lines = map[int]*Line{}
	e.order = nil
	e.codes = nil
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("clear", "success")
	e.notify(ctx, snap)
}

// Items returns the cart lines in insertion order.
func (e *Engine) Items() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.itemsLocked()
}

// Item returns the line for the product, if present.
func (e *Engine) Item(productID int) (Line, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if line, ok := e.lines[productID]; ok {
		return *line, true
	}
	return Line{}, false
}

// HasItem reports whether the product has a line in the cart.
func (e *Engine) HasItem(productID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.lines[productID]
	return ok
}

// ItemCount returns the sum of all line quantities.
func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, line := range e.lines {
		count += line.Quantity
	}
	return count
}

// AppliedCodes returns the applied discount codes in application order.
func (e *Engine) AppliedCodes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.codes...)
}

// ApplyDiscount validates and applies a coupon code. On success it returns
// the rule's description for display.
func (e *Engine) ApplyDiscount(ctx context.Context, code string) (string, error) {
	normalized := NormalizeCode(code)

	rule, ok := e.catalog.CodeRule(normalized)
	if !ok {
		e.metrics.IncCartOp("apply_discount", "invalid")
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "invalid discount code")
	}

	e.mu.Lock()
	if e.hasCodeLocked(normalized) {
		e.mu.Unlock()
		e.metrics.IncCartOp("apply_discount", "duplicate")
		return "", pkgerrors.New(pkgerrors.CodeConflict, "code already applied")
	}
	if rule.MinOrder != nil {
		subtotal := e.totalsLocked().Subtotal
		if subtotal.LessThan(dollars(*rule.MinOrder)) {
			e.mu.Unlock()
			e.metrics.IncCartOp("apply_discount", "min_order")
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("minimum order of $%.0f required", *rule.MinOrder))
		}
	}
	e.codes = append(e.codes, normalized)
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("apply_discount", "success")
	e.notify(ctx, snap)
	return rule.Description, nil
}

// RemoveDiscount removes a previously applied code.
func (e *Engine) RemoveDiscount(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)

	e.mu.Lock()
	if !e.hasCodeLocked(normalized) {
		e.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "code not applied")
	}
	kept := e.codes[:0]
	for _, c := range e.codes {
		if c != normalized {
			kept = append(kept, c)
		}
	}
	e.codes = kept
	snap := e.commitLocked(ctx)
	e.mu.Unlock()

	e.metrics.IncCartOp("remove_discount", "success")
	e.notify(ctx, snap)
	return nil
}

// Snapshot returns the current cart state with all derived totals.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// OnChange registers a subscriber called synchronously after every
// mutation, in registration order. The returned func unsubscribes.
func (e *Engine) OnChange(fn func(Snapshot)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (e *Engine) hasCodeLocked(code string) bool {
	for _, c := range e.codes {
		if c == code {
			return true
		}
	}
	return false
}

func (e *Engine) itemsLocked() []Line {
	out := make([]Line, 0, len(e.order))
	for _, id := range e.order {
		if line, ok := e.lines[id]; ok {
			out = append(out, *line)
		}
	}
	return out
}

// commitLocked recomputes the snapshot and persists the cart. Persistence
// failures are logged and counted; in-memory state stays authoritative.
func (e *Engine) commitLocked(ctx context.Context) Snapshot {
	snap := e.snapshotLocked()

	state := persistedCart{
		Items:       make([]persistedItem, 0, len(e.order)),
		Codes:       append([]string{}, e.codes...),
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	for _, line := range e.itemsLocked() {
		state.Items = append(state.Items, persistedItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if err := e.store.Set(ctx, storageKey, state); err != nil {
		e.metrics.IncPersistFailure("cart")
		if e.logg != nil {
			e.logg.Error(ctx, "failed to persist cart", err)
		}
	}
	return snap
}

func (e *Engine) notify(ctx context.Context, snap Snapshot) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.subs[id])
	}
	e.mu.Unlock()

	var errs error
	for _, fn := range fns {
		if err := callSubscriber(fn, snap); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil && e.logg != nil {
		e.logg.Error(ctx, "cart subscriber failure", errs)
	}
}

// callSubscriber isolates a panicking subscriber so the rest still run.
func callSubscriber(fn func(Snapshot), snap Snapshot) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subscriber panic: %v", rec)
		}
	}()
	fn(snap)
	return nil
}

type persistedCart struct {
	Items       []persistedItem `json:"items"`
	Codes       []string        `json:"codes"`
	LastUpdated string          `json:"lastUpdated"`
}

type persistedItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

func (e *Engine) load(ctx context.Context) {
	var state persistedCart
	found, err := e.store.Get(ctx, storageKey, &state)
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "failed to load persisted cart", err)
		}
		return
	}
	if !found {
		return
	}

	e.mu.Lock()
	for _, item := range state.Items {
		if _, ok := e.catalog.GetByID(item.ProductID); !ok {
			continue
		}
		if _, exists := e.lines[item.ProductID]; exists {
			continue
		}
		e.lines[item.ProductID] = &Line{ProductID: item.ProductID, Quantity: clamp(item.Quantity, 1, e.maxQty)}
		e.order = append(e.order, item.ProductID)
	}
	for _, code := range state.Codes {
		normalized := NormalizeCode(code)
		if normalized != "" && !e.hasCodeLocked(normalized) {
			e.codes = append(e.codes, normalized)
		}
	}
	e.mu.Unlock()
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func removeID(ids []int, id int) []int {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}
