package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshharvest/market-backend/internal/catalog"
	"github.com/freshharvest/market-backend/internal/tracker"
)

func strawberryPrice() *float64 {
	v := 5.99
	return &v
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	products := []catalog.Product{
		{ID: 1, Slug: "tomatoes", Name: "Tomatoes", Category: "vegetables", Price: 2.99, Rating: 4.5},
		{ID: 2, Slug: "apples", Name: "Apples", Category: "fruits", Price: 4.49, Rating: 4.8, Organic: true},
		{ID: 3, Slug: "milk", Name: "Milk", Category: "dairy", Price: 3.49, Rating: 4.2},
		{ID: 4, Slug: "strawberries", Name: "Strawberries", Category: "fruits", Price: 4.99, OriginalPrice: strawberryPrice(), Rating: 4.9},
		{ID: 5, Slug: "carrots", Name: "Carrots", Category: "vegetables", Price: 1.99, Rating: 4.0, Organic: true},
		{ID: 6, Slug: "honey", Name: "Honey", Category: "pantry", Price: 8.99, Rating: 4.7},
	}
	c, err := catalog.New(products, catalog.Rules{})
	require.NoError(t, err)
	return c
}

// stubInteractions satisfies the tracker surface the engine reads.
type stubInteractions struct {
	profile       tracker.Profile
	recent        []int
	topCategories []string
	interactions  int
}

func (s *stubInteractions) Profile() tracker.Profile { return s.profile }

func (s *stubInteractions) RecentlyViewed(n int) []int {
	if n < len(s.recent) {
		return s.recent[:n]
	}
	return s.recent
}

func (s *stubInteractions) InteractionCount() int { return s.interactions }

func (s *stubInteractions) TopCategories(n int) []string {
	if n < len(s.topCategories) {
		return s.topCategories[:n]
	}
	return s.topCategories
}

func newEngine(t *testing.T, interactions *stubInteractions) *Engine {
	t.Helper()
	engine, err := New(testCatalog(t), interactions, nil)
	require.NoError(t, err)
	return engine
}

func TestTierForBoundaries(t *testing.T) {
	cases := []struct {
		interactions int
		want         Tier
	}{
		{0, TierColdStart},
		{2, TierColdStart},
		{3, TierFrequency},
		{9, TierFrequency},
		{10, TierCategory},
		{24, TierCategory},
		{25, TierBehavioral},
		{200, TierBehavioral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.interactions), "interactions=%d", tc.interactions)
	}
}

func TestTierLabels(t *testing.T) {
	assert.Equal(t, "Top Picks", TierColdStart.Label())
	assert.Equal(t, "Recently Popular", TierFrequency.Label())
	assert.Equal(t, "Based on Your Preferences", TierCategory.Label())
	assert.Equal(t, "Personalized for You", TierBehavioral.Label())
}

func TestColdStartReturnsFeatured(t *testing.T) {
	engine := newEngine(t, &stubInteractions{interactions: 1})

	got := engine.Recommendations(3)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].ID)
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, 6, got[2].ID)
	assert.Equal(t, "Top Picks", engine.Level())
}

func TestFrequencyResolvesRecentThenPads(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 5,
		recent:       []int{3, 1},
	})

	got := engine.Recommendations(4)
	require.Len(t, got, 4)
	// Recent views first, then top-rated products not already listed.
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, 1, got[1].ID)
	assert.Equal(t, 4, got[2].ID)
	assert.Equal(t, 2, got[3].ID)
}

func TestFrequencySkipsUnknownProducts(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 5,
		recent:       []int{99, 1},
	})

	got := engine.Recommendations(2)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 4, got[1].ID)
}

func TestCategoryPrefersAffinityCategories(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions:  12,
		topCategories: []string{"fruits", "vegetables"},
		recent:        []int{2},
	})

	got := engine.Recommendations(3)
	require.Len(t, got, 3)
	// Fruits by rating with the just-viewed apple excluded, then vegetables.
	assert.Equal(t, 4, got[0].ID)
	assert.Equal(t, 1, got[1].ID)
	assert.Equal(t, 5, got[2].ID)
}

func TestCategoryPadsWithRemainingByRating(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions:  12,
		topCategories: []string{"dairy"},
	})

	got := engine.Recommendations(3)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].ID)
	// Fill from the rest of the catalog, best rated first.
	assert.Equal(t, 4, got[1].ID)
	assert.Equal(t, 2, got[2].ID)
}

func TestBehavioralScoresAffinityAndMarkdown(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 30,
		profile: tracker.Profile{
			ViewHistory: []tracker.ViewRecord{
				{ProductID: 4, Category: "fruits", Price: 4.99},
				{ProductID: 2, Category: "fruits", Price: 4.49},
			},
			CategoryAffinity: map[string]int{"fruits": 6, "vegetables": 1},
		},
		recent: []int{2},
	})

	got := engine.Recommendations(2)
	require.Len(t, got, 2)
	// Strawberries carry fruit affinity plus the markdown bonus.
	assert.Equal(t, 4, got[0].ID)
}

func TestBehavioralOrganicBonusRequiresOrganicHabit(t *testing.T) {
	organicViews := []tracker.ViewRecord{
		{ProductID: 2, Category: "fruits", Price: 4.49},
		{ProductID: 2, Category: "fruits", Price: 4.49},
		{ProductID: 5, Category: "vegetables", Price: 1.99},
		{ProductID: 5, Category: "vegetables", Price: 1.99},
	}

	few := newEngine(t, &stubInteractions{
		interactions: 30,
		profile: tracker.Profile{
			ViewHistory:      organicViews[:2],
			CategoryAffinity: map[string]int{},
		},
	})
	many := newEngine(t, &stubInteractions{
		interactions: 30,
		profile: tracker.Profile{
			ViewHistory:      organicViews,
			CategoryAffinity: map[string]int{},
		},
	})

	// With the organic habit established, the organic carrot overtakes
	// the non-organic milk it otherwise trails.
	fewGot := few.Recommendations(6)
	manyGot := many.Recommendations(6)
	assert.True(t, indexOf(fewGot, 5) > indexOf(fewGot, 3))
	assert.True(t, indexOf(manyGot, 5) < indexOf(manyGot, 3))
}

func TestBehavioralDefaultsAveragePrice(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 30,
		profile: tracker.Profile{
			CategoryAffinity: map[string]int{},
		},
	})

	got := engine.Recommendations(6)
	require.Len(t, got, 6)
	// Honey sits far from the 3.00 default average, so proximity alone
	// cannot lift it above the markdown strawberries.
	assert.Equal(t, 4, got[0].ID)
}

func TestBehavioralExcludesRecentViews(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 30,
		profile:      tracker.Profile{CategoryAffinity: map[string]int{}},
		recent:       []int{4, 2},
	})

	for _, product := range engine.Recommendations(6) {
		assert.NotContains(t, []int{4, 2}, product.ID)
	}
}

func TestRecentlyViewedResolvesProducts(t *testing.T) {
	engine := newEngine(t, &stubInteractions{
		interactions: 5,
		recent:       []int{3, 99, 1},
	})

	got := engine.RecentlyViewed(3)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, 1, got[1].ID)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, &stubInteractions{}, nil)
	assert.Error(t, err)

	_, err = New(testCatalog(t), nil, nil)
	assert.Error(t, err)
}

func indexOf(products []catalog.Product, id int) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return len(products)
}
