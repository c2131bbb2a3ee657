package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/api/validators"
	"github.com/freshharvest/market-backend/internal/catalog"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/logger"
)

// ListProducts serves the browsable catalog with the filter bar's query
// parameters: category, search, price_min, price_max, organic, seasonal,
// sort.
func ListProducts(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		priceMin, err := validators.ParseQueryFloat(r, "price_min", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		priceMax, err := validators.ParseQueryFloat(r, "price_max", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		criteria := catalog.Criteria{
			Category: strings.TrimSpace(query.Get("category")),
			Search:   query.Get("search"),
			PriceMin: priceMin,
			PriceMax: priceMax,
			Organic:  query.Get("organic") == "true",
			Seasonal: query.Get("seasonal") == "true",
			Sort:     strings.TrimSpace(query.Get("sort")),
		}

		products := c.Filter(criteria)
		responses.WriteSuccess(w, map[string]any{
			"products": products,
			"total":    len(products),
		})
	}
}

// GetProduct resolves {id} as a numeric id first, then as a slug.
func GetProduct(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")

		var (
			product catalog.Product
			ok      bool
		)
		if id, err := strconv.Atoi(raw); err == nil {
			product, ok = c.GetByID(id)
		} else {
			product, ok = c.GetBySlug(raw)
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func FeaturedProducts(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := validators.ParseQueryInt(r, "count", 4, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c.GetFeatured(count))
	}
}

func ListCategories(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, c.Categories())
	}
}
