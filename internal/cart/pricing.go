package cart

import (
	"time"

	"github.com/freshharvest/market-backend/internal/catalog"
	"github.com/shopspring/decimal"
)

// SnapshotItem is a cart line resolved against the live catalog.
type SnapshotItem struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Snapshot is the full derived cart state handed to subscribers and the
// presentation layer. All money figures are rounded to cents, half away
// from zero, after summation.
type Snapshot struct {
	Items          []SnapshotItem  `json:"items"`
	ItemCount      int             `json:"itemCount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ProductSavings decimal.Decimal `json:"productSavings"`
	VolumeDiscount decimal.Decimal `json:"volumeDiscount"`
	CodeDiscount   decimal.Decimal `json:"codeDiscount"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	Total          decimal.Decimal `json:"total"`
	Codes          []string        `json:"codes"`
}

// Totals carries the derived money figures without the item detail.
type Totals struct {
	Subtotal       decimal.Decimal
	ProductSavings decimal.Decimal
	VolumeDiscount decimal.Decimal
	CodeDiscount   decimal.Decimal
	TotalDiscount  decimal.Decimal
	Total          decimal.Decimal
}

func dollars(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// totalsLocked recomputes every derived figure from the current lines and
// codes. Line prices are read live from the catalog, never from persisted
// snapshots.
func (e *Engine) totalsLocked() Totals {
	start := time.Now()
	defer func() {
		e.metrics.ObserveRecompute(time.Since(start))
	}()

	volumeRules := e.catalog.VolumeRules()

	subtotal := decimal.Zero
	savings := decimal.Zero
	volume := decimal.Zero

	for _, line := range e.itemsLocked() {
		product, ok := e.catalog.GetByID(line.ProductID)
		if !ok {
			continue
		}
		price := dollars(product.Price)
		qty := decimal.NewFromInt(int64(line.Quantity))

		subtotal = subtotal.Add(price.Mul(qty))

		if product.OnSale() {
			savings = savings.Add(dollars(*product.OriginalPrice).Sub(price).Mul(qty))
		}

		if rule, ok := bestVolumeRule(volumeRules, line.Quantity); ok {
			volume = volume.Add(price.Mul(qty).Mul(dollars(rule.Discount)))
		}
	}

	subtotal = subtotal.Round(2)
	savings = savings.Round(2)
	volume = volume.Round(2)

	code := decimal.Zero
	for _, applied := range e.codes {
		rule, ok := e.catalog.CodeRule(applied)
		if !ok {
			continue
		}
		if rule.MinOrder != nil && subtotal.LessThan(dollars(*rule.MinOrder)) {
			continue
		}
		switch rule.Type {
		case catalog.DiscountTypePercentage:
			code = code.Add(subtotal.Mul(dollars(rule.Value)))
		case catalog.DiscountTypeFixed:
			code = code.Add(dollars(rule.Value))
		}
	}
	// Stacked codes never discount more than the subtotal.
	if code.GreaterThan(subtotal) {
		code = subtotal
	}
	code = code.Round(2)

	totalDiscount := volume.Add(code).Round(2)
	total := subtotal.Sub(totalDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		ProductSavings: savings,
		VolumeDiscount: volume,
		CodeDiscount:   code,
		TotalDiscount:  totalDiscount,
		Total:          total.Round(2),
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	totals := e.totalsLocked()

	items := make([]SnapshotItem, 0, len(e.order))
	count := 0
	for _, line := range e.itemsLocked() {
		product, ok := e.catalog.GetByID(line.ProductID)
		if !ok {
			continue
		}
		count += line.Quantity
		items = append(items, SnapshotItem{
			Product:   product,
			Quantity:  line.Quantity,
			LineTotal: dollars(product.Price).Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		})
	}

	return Snapshot{
		Items:          items,
		ItemCount:      count,
		Subtotal:       totals.Subtotal,
		ProductSavings: totals.ProductSavings,
		VolumeDiscount: totals.VolumeDiscount,
		CodeDiscount:   totals.CodeDiscount,
		TotalDiscount:  totals.TotalDiscount,
		Total:          totals.Total,
		Codes:          append([]string{}, e.codes...),
	}
}

// bestVolumeRule picks the matching rule with the highest MinQty; an equal
// MinQty keeps the earlier rule in dataset order.
func bestVolumeRule(rules []catalog.VolumeRule, qty int) (catalog.VolumeRule, bool) {
	var selected catalog.VolumeRule
	found := false
	for _, rule := range rules {
		if rule.MinQty > qty {
			continue
		}
		if !found || rule.MinQty > selected.MinQty {
			selected = rule
			found = true
		}
	}
	return selected, found
}
