// Package recommend selects product recommendations with a progressive
// strategy: the more interaction history a session has accumulated, the
// more personal the strategy gets.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/freshharvest/market-backend/internal/catalog"
	"github.com/freshharvest/market-backend/internal/tracker"
	"github.com/freshharvest/market-backend/pkg/metrics"
)

// Tier identifies the active recommendation strategy.
type Tier string

const (
	TierColdStart  Tier = "cold-start"
	TierFrequency  Tier = "frequency"
	TierCategory   Tier = "category"
	TierBehavioral Tier = "behavioral"
)

// Interaction thresholds for tier selection.
const (
	behavioralThreshold = 25
	categoryThreshold   = 10
	frequencyThreshold  = 3
)

// Default average viewed price when the history has no usable prices.
const defaultAvgPrice = 3.0

// Label returns the display name shown alongside the recommendations.
func (t Tier) Label() string {
	switch t {
	case TierBehavioral:
		return "Personalized for You"
	case TierCategory:
		return "Based on Your Preferences"
	case TierFrequency:
		return "Recently Popular"
	default:
		return "Top Picks"
	}
}

// TierFor maps an interaction count to its strategy tier.
func TierFor(interactions int) Tier {
	switch {
	case interactions >= behavioralThreshold:
		return TierBehavioral
	case interactions >= categoryThreshold:
		return TierCategory
	case interactions >= frequencyThreshold:
		return TierFrequency
	default:
		return TierColdStart
	}
}

type productSource interface {
	GetAll() []catalog.Product
	GetByID(id int) (catalog.Product, bool)
	GetByCategory(category string) []catalog.Product
	GetFeatured(n int) []catalog.Product
}

type interactionSource interface {
	Profile() tracker.Profile
	RecentlyViewed(n int) []int
	InteractionCount() int
	TopCategories(n int) []string
}

// Engine is a stateless view over the catalog and tracker. It never
// mutates either.
type Engine struct {
	catalog productSource
	tracker interactionSource
	metrics *metrics.StorefrontMetrics
}

// New constructs the recommendation engine.
func New(catalogSource productSource, interactions interactionSource, m *metrics.StorefrontMetrics) (*Engine, error) {
	if catalogSource == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if interactions == nil {
		return nil, fmt.Errorf("interaction tracker required")
	}
	return &Engine{catalog: catalogSource, tracker: interactions, metrics: m}, nil
}

// Tier returns the strategy tier for the current interaction count.
func (e *Engine) Tier() Tier {
	return TierFor(e.tracker.InteractionCount())
}

// Level returns the display label for the current tier.
func (e *Engine) Level() string {
	return e.Tier().Label()
}

// Recommendations returns up to count products chosen by the active tier.
func (e *Engine) Recommendations(count int) []catalog.Product {
	tier := e.Tier()
	e.metrics.IncRecommendation(string(tier))

	switch tier {
	case TierBehavioral:
		return e.behavioral(count)
	case TierCategory:
		return e.byCategory(count)
	case TierFrequency:
		return e.byFrequency(count)
	default:
		return e.catalog.GetFeatured(count)
	}
}

// RecentlyViewed resolves the most recent distinct views to products.
func (e *Engine) RecentlyViewed(count int) []catalog.Product {
	var out []catalog.Product
	for _, id := range e.tracker.RecentlyViewed(count) {
		if product, ok := e.catalog.GetByID(id); ok {
			out = append(out, product)
		}
	}
	return out
}

// byFrequency recommends the most recently viewed products, padded with
// top-rated picks when the history is thin.
func (e *Engine) byFrequency(count int) []catalog.Product {
	recentIDs := e.tracker.RecentlyViewed(count * 2)
	inRecent := map[int]struct{}{}
	var out []catalog.Product
	for _, id := range recentIDs {
		inRecent[id] = struct{}{}
		if product, ok := e.catalog.GetByID(id); ok {
			out = append(out, product)
		}
	}

	if len(out) < count {
		for _, product := range e.catalog.GetFeatured(count) {
			if _, seen := inRecent[product.ID]; seen {
				continue
			}
			out = append(out, product)
		}
	}

	return truncate(out, count)
}

// byCategory recommends highly rated products from the session's top two
// affinity categories, skipping what was just viewed. Category order
// dominates; results are not globally re-sorted.
func (e *Engine) byCategory(count int) []catalog.Product {
	topCategories := e.tracker.TopCategories(2)
	recent := recentSet(e.tracker.RecentlyViewed(10))

	var out []catalog.Product
	picked := map[int]struct{}{}
	for _, category := range topCategories {
		candidates := e.catalog.GetByCategory(category)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Rating > candidates[j].Rating
		})
		for _, product := range candidates {
			if _, viewed := recent[product.ID]; viewed {
				continue
			}
			if _, dup := picked[product.ID]; dup {
				continue
			}
			picked[product.ID] = struct{}{}
			out = append(out, product)
		}
	}

	if len(out) < count {
		rest := e.catalog.GetAll()
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].Rating > rest[j].Rating
		})
		for _, product := range rest {
			if _, viewed := recent[product.ID]; viewed {
				continue
			}
			if _, dup := picked[product.ID]; dup {
				continue
			}
			picked[product.ID] = struct{}{}
			out = append(out, product)
		}
	}

	return truncate(out, count)
}

// behavioral scores every not-recently-viewed product on category
// affinity, price proximity, rating, markdown, and organic preference.
// Equal scores keep catalog order.
func (e *Engine) behavioral(count int) []catalog.Product {
	profile := e.tracker.Profile()
	recent := recentSet(e.tracker.RecentlyViewed(10))

	avgPrice := defaultAvgPrice
	var sum float64
	var priced int
	for _, view := range profile.ViewHistory {
		if view.Price > 0 {
			sum += view.Price
			priced++
		}
	}
	if priced > 0 {
		avgPrice = sum / float64(priced)
	}

	organicViews := 0
	for _, view := range profile.ViewHistory {
		if product, ok := e.catalog.GetByID(view.ProductID); ok && product.Organic {
			organicViews++
		}
	}

	type scored struct {
		product catalog.Product
		score   float64
	}
	var candidates []scored
	for _, product := range e.catalog.GetAll() {
		if _, viewed := recent[product.ID]; viewed {
			continue
		}

		score := float64(profile.CategoryAffinity[product.Category]) * 2
		score += math.Max(0, 5-math.Abs(product.Price-avgPrice))
		score += product.Rating
		if product.OnSale() {
			score += 3
		}
		if product.Organic && organicViews > 3 {
			score += 2
		}
		candidates = append(candidates, scored{product: product, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]catalog.Product, 0, count)
	for _, c := range candidates {
		out = append(out, c.product)
	}
	return truncate(out, count)
}

func recentSet(ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func truncate(products []catalog.Product, count int) []catalog.Product {
	if count >= 0 && count < len(products) {
		return products[:count]
	}
	return products
}
