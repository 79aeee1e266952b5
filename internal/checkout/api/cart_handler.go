package api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-checkout/internal/models"

	"github.com/go-chi/chi/v5"
)

// CartService exposes the commerce platform's cart operations. These are
// pass-throughs with no local state; the saga never depends on them.
type CartService interface {
	GetCheckout(ctx context.Context, cartID string) (*models.Checkout, error)
	AddCartItems(ctx context.Context, cartID string, items []models.LineItem) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, cartID, itemID string) error
	UpdateCartItem(ctx context.Context, cartID, itemID string, item models.LineItem) (*models.Cart, error)
}

type CartHandler struct {
	Carts CartService
}

func (h *CartHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	checkout, err := h.Carts.GetCheckout(r.Context(), cartID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Code: "CHECKOUT_UNAVAILABLE", Message: "could not get checkout"})
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")

	var req struct {
		Products []models.LineItem `json:"products"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: "invalid request body"})
		return
	}

	cart, err := h.Carts.AddCartItems(r.Context(), cartID, req.Products)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Code: "CHECKOUT_UNAVAILABLE", Message: "could not add items"})
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")

	if err := h.Carts.RemoveCartItem(r.Context(), cartID, itemID); err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Code: "CHECKOUT_UNAVAILABLE", Message: "could not remove item"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")
	itemID := chi.URLParam(r, "itemId")

	var item models.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: "invalid request body"})
		return
	}

	cart, err := h.Carts.UpdateCartItem(r.Context(), cartID, itemID, item)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Code: "CHECKOUT_UNAVAILABLE", Message: "could not update item"})
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
