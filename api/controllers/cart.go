package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/api/validators"
	"github.com/freshharvest/market-backend/internal/cart"
	"github.com/freshharvest/market-backend/internal/catalog"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	"github.com/freshharvest/market-backend/internal/tracker"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/logger"
)

type cartItemResponse struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal string          `json:"lineTotal"`
}

type cartResponse struct {
	Items          []cartItemResponse `json:"items"`
	ItemCount      int                `json:"itemCount"`
	Subtotal       string             `json:"subtotal"`
	ProductSavings string             `json:"productSavings"`
	VolumeDiscount string             `json:"volumeDiscount"`
	CodeDiscount   string             `json:"codeDiscount"`
	TotalDiscount  string             `json:"totalDiscount"`
	Total          string             `json:"total"`
	Codes          []string           `json:"codes"`
}

func toCartResponse(snap cart.Snapshot) cartResponse {
	items := make([]cartItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, cartItemResponse{
			Product:   item.Product,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	return cartResponse{
		Items:          items,
		ItemCount:      snap.ItemCount,
		Subtotal:       snap.Subtotal.StringFixed(2),
		ProductSavings: snap.ProductSavings.StringFixed(2),
		VolumeDiscount: snap.VolumeDiscount.StringFixed(2),
		CodeDiscount:   snap.CodeDiscount.StringFixed(2),
		TotalDiscount:  snap.TotalDiscount.StringFixed(2),
		Total:          snap.Total.StringFixed(2),
		Codes:          snap.Codes,
	}
}

func GetCart(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(handle.Cart.Snapshot()))
	}
}

type addItemRequest struct {
	ProductID int `json:"productId" validate:"required,min=1"`
	Quantity  int `json:"quantity" validate:"omitempty,min=1,max=99"`
}

func AddCartItem(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := handle.Cart.AddItem(r.Context(), payload.ProductID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handle.Tracker.TrackCartAction(r.Context(), payload.ProductID, tracker.ActionAdd, payload.Quantity)

		responses.WriteSuccessStatus(w, http.StatusCreated, toCartResponse(handle.Cart.Snapshot()))
	}
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

func UpdateCartItem(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := cartProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := handle.Cart.UpdateQuantity(r.Context(), productID, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handle.Tracker.TrackCartAction(r.Context(), productID, tracker.ActionUpdate, *payload.Quantity)

		responses.WriteSuccess(w, toCartResponse(handle.Cart.Snapshot()))
	}
}

func RemoveCartItem(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := cartProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := handle.Cart.RemoveItem(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handle.Tracker.TrackCartAction(r.Context(), productID, tracker.ActionRemove, 0)

		responses.WriteSuccess(w, toCartResponse(handle.Cart.Snapshot()))
	}
}

func ClearCart(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle.Cart.ClearCart(r.Context())
		handle.Tracker.TrackCartAction(r.Context(), 0, tracker.ActionClear, 0)

		responses.WriteSuccess(w, toCartResponse(handle.Cart.Snapshot()))
	}
}

type applyDiscountRequest struct {
	Code string `json:"code" validate:"required,discount_code"`
}

func ApplyCartDiscount(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		description, err := handle.Cart.ApplyDiscount(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"description": description,
			"cart":        toCartResponse(handle.Cart.Snapshot()),
		})
	}
}

func RemoveCartDiscount(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := chi.URLParam(r, "code")
		if err := handle.Cart.RemoveDiscount(r.Context(), code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCartResponse(handle.Cart.Snapshot()))
	}
}

func cartProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productId")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive integer")
	}
	return id, nil
}
