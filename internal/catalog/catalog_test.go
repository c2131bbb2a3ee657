package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixtureProducts() []Product {
	origTomato := 3.99
	origCarrot := 1.49
	return []Product{
		{ID: 1, Slug: "tomatoes", Name: "Fresh Tomatoes", Category: "vegetables", Price: 2.99, OriginalPrice: &origTomato, Rating: 4.5, Seasonal: true, Tags: []string{"salad"}, Description: "vine-ripened"},
		{ID: 2, Slug: "apples", Name: "Organic Apples", Category: "fruits", Price: 3.49, Rating: 4.8, Organic: true, Tags: []string{"snack"}, Description: "crisp"},
		{ID: 3, Slug: "broccoli", Name: "Green Broccoli", Category: "vegetables", Price: 1.99, Rating: 4.2, Tags: []string{"steaming"}, Description: "crowns"},
		{ID: 4, Slug: "carrots", Name: "Carrots", Category: "vegetables", Price: 0.99, OriginalPrice: &origCarrot, Rating: 4.8, Tags: []string{"roasting"}, Description: "crunchy"},
	}
}

func fixtureRules() Rules {
	minOrder := 30.0
	return Rules{
		VolumeDiscounts: []VolumeRule{{MinQty: 5, Discount: 0.1}, {MinQty: 10, Discount: 0.15}},
		Discounts: []CodeRule{
			{Code: "WELCOME10", Type: DiscountTypePercentage, Value: 0.1, Active: true, Description: "10% off"},
			{Code: "HARVEST20", Type: DiscountTypePercentage, Value: 0.2, Active: true, MinOrder: &minOrder, Description: "20% off over $30"},
			{Code: "OLDCODE", Type: DiscountTypeFixed, Value: 5, Active: false, Description: "expired"},
		},
	}
}

func newFixtureCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := New(fixtureProducts(), fixtureRules())
	require.NoError(t, err)
	return cat
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	products := fixtureProducts()
	products[1].ID = products[0].ID

	_, err := New(products, Rules{})
	require.Error(t, err)
}

func TestNewRejectsUnknownDiscountType(t *testing.T) {
	rules := fixtureRules()
	rules.Discounts[0].Type = "bogo"

	_, err := New(fixtureProducts(), rules)
	require.Error(t, err)
}

func TestGetByIDAndSlug(t *testing.T) {
	cat := newFixtureCatalog(t)

	p, ok := cat.GetByID(2)
	require.True(t, ok)
	require.Equal(t, "Organic Apples", p.Name)

	p, ok = cat.GetBySlug("carrots")
	require.True(t, ok)
	require.Equal(t, 4, p.ID)

	if _, ok := cat.GetByID(99); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestGetFeaturedSortsByRatingWithStableTies(t *testing.T) {
	cat := newFixtureCatalog(t)

	featured := cat.GetFeatured(3)
	require.Len(t, featured, 3)
	// Apples and Carrots tie at 4.8; apples come first in catalog order.
	require.Equal(t, []int{2, 4, 1}, []int{featured[0].ID, featured[1].ID, featured[2].ID})
}

func TestSearchMatchesTagsAndDescription(t *testing.T) {
	cat := newFixtureCatalog(t)

	require.Len(t, cat.Search("snack"), 1)
	require.Len(t, cat.Search("vine"), 1)
	require.Len(t, cat.Search(""), 4)
	require.Empty(t, cat.Search("zucchini"))
}

func TestFilterCombinesCriteria(t *testing.T) {
	cat := newFixtureCatalog(t)

	got := cat.Filter(Criteria{Category: "vegetables", Sort: SortPriceLow})
	require.Len(t, got, 3)
	require.Equal(t, "Carrots", got[0].Name)

	got = cat.Filter(Criteria{PriceMin: 0, PriceMax: 2.00})
	require.Len(t, got, 2)

	got = cat.Filter(Criteria{Organic: true})
	require.Len(t, got, 1)
	require.Equal(t, "Organic Apples", got[0].Name)

	got = cat.Filter(Criteria{Search: "salad"})
	require.Len(t, got, 1)
}

func TestDiscountPercentage(t *testing.T) {
	orig := 4.00
	p := Product{Price: 3.00, OriginalPrice: &orig}
	if got := p.DiscountPercentage(); got != 25 {
		t.Fatalf("expected 25%%, got %d", got)
	}

	if got := (Product{Price: 3.00}).DiscountPercentage(); got != 0 {
		t.Fatalf("expected 0%% without markdown, got %d", got)
	}
}

func TestCodeRuleSkipsInactive(t *testing.T) {
	cat := newFixtureCatalog(t)

	_, ok := cat.CodeRule("OLDCODE")
	require.False(t, ok)

	rule, ok := cat.CodeRule("WELCOME10")
	require.True(t, ok)
	require.Equal(t, 0.1, rule.Value)
}

func TestLoadEmbeddedDataset(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, cat.GetAll())
	require.NotEmpty(t, cat.VolumeRules())
	require.NotEmpty(t, cat.Categories())

	for _, p := range cat.GetAll() {
		require.Positive(t, p.Price, "product %d", p.ID)
		require.GreaterOrEqual(t, p.Rating, 0.0)
		require.LessOrEqual(t, p.Rating, 5.0)
	}
}
