package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Sort orders accepted by Filter.
const (
	SortDefault   = "default"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNameAZ    = "name-az"
	SortNameZA    = "name-za"
	SortRating    = "rating"
)

// Catalog is the read-only in-memory product dataset. It is built once by
// the composition root and shared by reference; none of its methods mutate
// state, and every query returns fresh slices.
type Catalog struct {
	products []Product
	byID     map[int]int
	bySlug   map[string]int
	rules    Rules
}

// New validates the dataset and builds the lookup indexes. Product order in
// the input is preserved and used as the tie-break for rating sorts.
func New(products []Product, rules Rules) (*Catalog, error) {
	byID := make(map[int]int, len(products))
	bySlug := make(map[string]int, len(products))
	for i, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("product %q has invalid id %d", p.Name, p.ID)
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		byID[p.ID] = i
		if p.Slug != "" {
			bySlug[p.Slug] = i
		}
	}
	for _, rule := range rules.Discounts {
		if rule.Type != DiscountTypePercentage && rule.Type != DiscountTypeFixed {
			return nil, fmt.Errorf("discount code %q has unknown type %q", rule.Code, rule.Type)
		}
	}
	return &Catalog{
		products: products,
		byID:     byID,
		bySlug:   bySlug,
		rules:    rules,
	}, nil
}

// GetAll returns every product in catalog order.
func (c *Catalog) GetAll() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// GetByID looks a product up by its numeric id.
func (c *Catalog) GetByID(id int) (Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// GetBySlug looks a product up by its URL slug.
func (c *Catalog) GetBySlug(slug string) (Product, bool) {
	idx, ok := c.bySlug[slug]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// GetByCategory returns products in the category; "all" or empty returns
// the full catalog.
func (c *Catalog) GetByCategory(category string) []Product {
	if category == "" || category == "all" {
		return c.GetAll()
	}
	var out []Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// GetFeatured returns the top n products by rating, ties broken by catalog
// order.
func (c *Catalog) GetFeatured(n int) []Product {
	out := c.GetAll()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// GetOnSale returns products with a markdown.
func (c *Catalog) GetOnSale() []Product {
	var out []Product
	for _, p := range c.products {
		if p.OnSale() {
			out = append(out, p)
		}
	}
	return out
}

// GetSeasonal returns products flagged seasonal.
func (c *Catalog) GetSeasonal() []Product {
	var out []Product
	for _, p := range c.products {
		if p.Seasonal {
			out = append(out, p)
		}
	}
	return out
}

// GetOrganic returns products flagged organic.
func (c *Catalog) GetOrganic() []Product {
	var out []Product
	for _, p := range c.products {
		if p.Organic {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct category names in catalog order.
func (c *Catalog) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// Search matches the query against name, category, tags, and description,
// case-insensitively. A blank query returns the full catalog.
func (c *Catalog) Search(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.GetAll()
	}
	var out []Product
	for _, p := range c.products {
		if productMatches(p, q, true) {
			out = append(out, p)
		}
	}
	return out
}

// Criteria drives Filter. A zero PriceMax disables the price range check.
type Criteria struct {
	Category string
	Search   string
	PriceMin float64
	PriceMax float64
	Organic  bool
	Seasonal bool
	Sort     string
}

// Filter applies category, search, price range, and flag filters, then the
// requested sort order. Search inside Filter only matches name and tags,
// matching the storefront's filter bar behaviour.
func (c *Catalog) Filter(criteria Criteria) []Product {
	out := make([]Product, 0, len(c.products))
	q := strings.ToLower(strings.TrimSpace(criteria.Search))

	for _, p := range c.products {
		if criteria.Category != "" && criteria.Category != "all" && p.Category != criteria.Category {
			continue
		}
		if q != "" && !productMatches(p, q, false) {
			continue
		}
		if criteria.PriceMax > 0 && (p.Price < criteria.PriceMin || p.Price > criteria.PriceMax) {
			continue
		}
		if criteria.Organic && !p.Organic {
			continue
		}
		if criteria.Seasonal && !p.Seasonal {
			continue
		}
		out = append(out, p)
	}

	switch criteria.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortNameAZ:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortNameZA:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}

	return out
}

// VolumeRules returns the static quantity-threshold discount rules.
func (c *Catalog) VolumeRules() []VolumeRule {
	out := make([]VolumeRule, len(c.rules.VolumeDiscounts))
	copy(out, c.rules.VolumeDiscounts)
	return out
}

// CodeRule returns the active rule matching the already-normalized code.
func (c *Catalog) CodeRule(code string) (CodeRule, bool) {
	for _, rule := range c.rules.Discounts {
		if rule.Code == code && rule.Active {
			return rule, true
		}
	}
	return CodeRule{}, false
}

func productMatches(p Product, q string, deep bool) bool {
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	if !deep {
		return false
	}
	if strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	return strings.Contains(strings.ToLower(p.Description), q)
}
