package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ms-checkout/internal/auth"
	"ms-checkout/internal/checkout"
	"ms-checkout/internal/models"
	"ms-checkout/internal/utils"

	"github.com/go-chi/chi/v5"
)

// OrderService is the slice of the checkout service the handlers need.
type OrderService interface {
	CreateOrder(ctx context.Context, userID, cartID, paymentToken string) (*models.CreateOrderResponse, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
}

type Handler struct {
	Service OrderService
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps the checkout error taxonomy to HTTP statuses. Internal
// causes never leak; the client sees the stable code and message only.
func statusFor(code checkout.Code) int {
	switch code {
	case checkout.CodeSpotUnavailable:
		return http.StatusConflict
	case checkout.CodePaymentAuthFailed, checkout.CodeInsufficientFunds, checkout.CodePaymentSettleFailed:
		return http.StatusPaymentRequired
	case checkout.CodeCheckoutUnavailable, checkout.CodeOrderCreateFailed, checkout.CodeOrderUpdateFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: "invalid request body"})
		return
	}
	if req.CartID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: "cart_id is required"})
		return
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHENTICATED", Message: "must be logged in"})
		return
	}

	resp, err := h.Service.CreateOrder(r.Context(), userID, req.CartID, req.PaymentToken)
	if err != nil {
		var checkoutErr *checkout.Error
		if errors.As(err, &checkoutErr) {
			writeJSON(w, statusFor(checkoutErr.Code), errorBody{
				Code:    string(checkoutErr.Code),
				Message: checkoutErr.Message,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "checkout failed"})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	order, err := h.Service.GetOrder(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "ORDER_NOT_FOUND", Message: "order not found"})
		return
	}

	if order.UserID != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorBody{Code: "FORBIDDEN", Message: "not your order"})
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	orders, err := h.Service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "could not list orders"})
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}
