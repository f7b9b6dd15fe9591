package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/validation"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.CartView, error)
	AddItem(ctx context.Context, userID string, in validation.CartItemInput) (*domain.CartView, domain.CartOutcome, error)
	UpdateItem(ctx context.Context, userID string, in validation.CartItemInput) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error)
	ReplaceAllItems(ctx context.Context, caller domain.Principal, targetUserID string, in []validation.CartItemInput) (*domain.CartView, domain.CartOutcome, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

// ReplaceItemsRequestDTO requires the items key; only an explicit empty list
// clears the cart.
type ReplaceItemsRequestDTO struct {
	Items *[]validation.CartItemInput `json:"items"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.GetCart(ctx, caller.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// a user without a cart gets null
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req validation.CartItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, outcome, err := h.carts.AddItem(ctx, caller.UserID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, outcomeStatus(outcome), cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req validation.CartItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateItem(ctx, caller.UserID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, caller.UserID, chi.URLParam(r, "productId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ReplaceAllItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ReplaceItemsRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Items == nil {
		handleServiceError(w, r, &validation.Errors{Fields: []validation.FieldError{
			{Field: "items", Message: "items is required"},
		}})
		return
	}

	cart, outcome, err := h.carts.ReplaceAllItems(ctx, caller, chi.URLParam(r, "userId"), *req.Items)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, outcomeStatus(outcome), cart)
}

func outcomeStatus(outcome domain.CartOutcome) int {
	if outcome == domain.CartCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}
