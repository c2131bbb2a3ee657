package catalog

import "math"

// Product is an immutable catalog entry. Prices are in dollars; Rating is
// 0-5 and may be fractional.
type Product struct {
	ID            int               `json:"id"`
	Slug          string            `json:"slug"`
	Name          string            `json:"name"`
	Category      string            `json:"category"`
	Price         float64           `json:"price"`
	OriginalPrice *float64          `json:"originalPrice,omitempty"`
	Unit          string            `json:"unit"`
	Rating        float64           `json:"rating"`
	Reviews       int               `json:"reviews"`
	Organic       bool              `json:"organic"`
	Seasonal      bool              `json:"seasonal"`
	Stock         int               `json:"stock"`
	Tags          []string          `json:"tags"`
	Description   string            `json:"description"`
	Nutrition     map[string]string `json:"nutrition,omitempty"`
}

// OnSale reports whether the product carries a markdown.
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// DiscountPercentage returns the markdown as a whole percentage of the
// original price, 0 when the product is not on sale.
func (p Product) DiscountPercentage() int {
	if !p.OnSale() {
		return 0
	}
	return int(math.Round((*p.OriginalPrice - p.Price) / *p.OriginalPrice * 100))
}

// Discount rule types accepted in the discounts dataset.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// VolumeRule grants a per-line discount fraction once a line's quantity
// reaches MinQty.
type VolumeRule struct {
	MinQty   int     `json:"minQty"`
	Discount float64 `json:"discount"`
}

// CodeRule is a coupon code definition. Percentage values are fractions of
// the subtotal; fixed values are flat dollar amounts.
type CodeRule struct {
	Code        string   `json:"code"`
	Type        string   `json:"type"`
	Value       float64  `json:"value"`
	Active      bool     `json:"active"`
	MinOrder    *float64 `json:"minOrder,omitempty"`
	Description string   `json:"description"`
}

// Rules bundles the static discount reference data shipped with the catalog.
type Rules struct {
	VolumeDiscounts []VolumeRule `json:"volumeDiscounts"`
	Discounts       []CodeRule   `json:"discounts"`
}
