package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

func (p productRequest) toModel(id int64) model.Product {
	return model.Product{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Image:       p.Image,
	}
}

type productResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Stock       int         `json:"stock"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Category:    p.Category,
		Image:       p.Image,
	}
}

func newProductList(products []model.Product) []productResponse {
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	return resp
}

func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListProducts возвращает весь каталог.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, r, "list products error", err)
		return
	}
	writeJSON(w, http.StatusOK, newProductList(products))
}

// SearchProducts ищет товары по подстроке названия из параметра q.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.internalError(w, r, "search products error", err)
		return
	}
	writeJSON(w, http.StatusOK, newProductList(products))
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.productError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(*p))
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toModel(0))
	if err != nil {
		h.productError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductResponse(*p))
}

// UpdateProduct заменяет атрибуты товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), req.toModel(id))
	if err != nil {
		h.productError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(*p))
}

// DeleteProduct удаляет товар из каталога.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.productError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) productError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *service.ProductNotFoundError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":     "product not found",
			"productId": nf.ProductID,
		})
	case errors.Is(err, service.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, r, "product error", err)
	}
}
