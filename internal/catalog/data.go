package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/products.json
var productsJSON []byte

//go:embed data/discounts.json
var discountsJSON []byte

type productsFile struct {
	Products []Product `json:"products"`
}

// Load builds the catalog from the embedded datasets.
func Load() (*Catalog, error) {
	var pf productsFile
	if err := json.Unmarshal(productsJSON, &pf); err != nil {
		return nil, fmt.Errorf("parsing products dataset: %w", err)
	}

	var rules Rules
	if err := json.Unmarshal(discountsJSON, &rules); err != nil {
		return nil, fmt.Errorf("parsing discounts dataset: %w", err)
	}

	return New(pf.Products, rules)
}
