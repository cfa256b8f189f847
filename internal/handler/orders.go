package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type orderLineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	Items []orderLineRequest `json:"items"`
}

type orderItemResponse struct {
	ProductID   int64       `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unitPrice"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	Items     []orderItemResponse `json:"items"`
	Total     json.Number         `json:"total"`
	CreatedAt string              `json:"createdAt"`
}

func newOrderResponse(o model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
		})
	}
	return orderResponse{
		ID:        o.ID,
		Items:     items,
		Total:     money(o.Total),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}

// PlaceOrder оформляет заказ текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	lines := make([]model.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, model.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.service.PlaceOrder(r.Context(), p.Username, lines)
	if err != nil {
		var (
			nf  *service.ProductNotFoundError
			ise *service.InsufficientStockError
		)
		switch {
		case errors.Is(err, service.ErrInvalidOrder):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &nf):
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":     "product not found",
				"productId": nf.ProductID,
			})
		case errors.As(err, &ise):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":     "insufficient stock",
				"productId": ise.ProductID,
				"requested": ise.Requested,
				"available": ise.Available,
			})
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "user not found")
		default:
			h.logger.Error("place order error",
				zap.Error(err),
				zap.String("username", p.Username),
				zap.String("requestID", middleware.RequestIDFromContext(r.Context())),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

// ListOrders возвращает историю заказов текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), p.Username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		h.internalError(w, r, "list orders error", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}
