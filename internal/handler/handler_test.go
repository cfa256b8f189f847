package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

type stubService struct {
	pingErr error

	registerResp *service.AuthResult
	registerErr  error

	authResp *service.AuthResult
	authErr  error

	productsResp []model.Product
	productResp  *model.Product
	productErr   error

	orderResp  *model.Order
	orderErr   error
	gotLines   []model.OrderLine
	gotUser    string
	ordersResp []model.Order
	ordersErr  error
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) RegisterUser(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	return s.registerResp, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, username, password string) (*service.AuthResult, error) {
	return s.authResp, s.authErr
}

func (s *stubService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.productsResp, s.productErr
}

func (s *stubService) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	return s.productsResp, s.productErr
}

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) DeleteProduct(ctx context.Context, id int64) error {
	return s.productErr
}

func (s *stubService) PlaceOrder(ctx context.Context, username string, lines []model.OrderLine) (*model.Order, error) {
	s.gotUser = username
	s.gotLines = lines
	return s.orderResp, s.orderErr
}

func (s *stubService) ListOrders(ctx context.Context, username string) ([]model.Order, error) {
	return s.ordersResp, s.ordersErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	return NewHandler(svc, logger, middleware.NewAuthenticator(nil, nil, logger))
}

func withPrincipal(r *http.Request, username string, roles ...model.Role) *http.Request {
	p := model.Principal{ID: 1, Username: username, Roles: roles}
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerResp: &service.AuthResult{Token: "tok", Username: "alice", ExpiresIn: 24 * time.Hour},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerRequest{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "tok", resp["token"])
	assert.Equal(t, "alice", resp["username"])
	assert.EqualValues(t, 86400, resp["expiresIn"])
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "username taken", err: repository.ErrUserExists, status: http.StatusConflict, message: "username already taken"},
		{name: "email taken", err: repository.ErrEmailExists, status: http.StatusConflict, message: "email already registered"},
		{name: "invalid input", err: service.ErrInvalidInput, status: http.StatusBadRequest, message: "invalid input"},
		{name: "storage failure", err: errors.New("db down"), status: http.StatusInternalServerError, message: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{registerErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
				bytes.NewReader([]byte(`{"username":"alice","email":"a@example.com","password":"secret123"}`)))
			rec := httptest.NewRecorder()
			h.Register(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(`{`)))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_UnauthorizedOnInvalidCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{authErr: service.ErrInvalidCredentials})

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeBody(t, rec)["error"])
}

func TestLogin_MissingFields(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"username":"alice"}`)))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_Success(t *testing.T) {
	svc := &stubService{
		orderResp: &model.Order{
			ID: 5,
			Items: []model.OrderItem{
				{ProductID: 1, ProductName: "Apple", Quantity: 2, UnitPrice: decimal.RequireFromString("3")},
			},
			Total:     decimal.RequireFromString("6"),
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders",
		bytes.NewReader([]byte(`{"items":[{"productId":1,"quantity":2}]}`)))
	req = withPrincipal(req, "alice", model.RoleUser)
	rec := httptest.NewRecorder()

	h.PlaceOrder(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", svc.gotUser)
	assert.Equal(t, []model.OrderLine{{ProductID: 1, Quantity: 2}}, svc.gotLines)
	assert.JSONEq(t,
		`{"id":5,"items":[{"productId":1,"productName":"Apple","quantity":2,"unitPrice":3.00}],"total":6.00,"createdAt":"2026-01-02T03:04:05Z"}`,
		rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":6.00`)
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   map[string]any
	}{
		{
			name:   "insufficient stock",
			err:    &service.InsufficientStockError{ProductID: 2, Requested: 100, Available: 1},
			status: http.StatusConflict,
			want:   map[string]any{"error": "insufficient stock", "productId": 2.0, "requested": 100.0, "available": 1.0},
		},
		{
			name:   "product not found",
			err:    &service.ProductNotFoundError{ProductID: 404},
			status: http.StatusNotFound,
			want:   map[string]any{"error": "product not found", "productId": 404.0},
		},
		{
			name:   "user not found",
			err:    service.ErrUserNotFound,
			status: http.StatusUnauthorized,
			want:   map[string]any{"error": "user not found"},
		},
		{
			name:   "storage failure",
			err:    errors.New("deadlock"),
			status: http.StatusInternalServerError,
			want:   map[string]any{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{orderErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/user/orders",
				bytes.NewReader([]byte(`{"items":[{"productId":2,"quantity":100}]}`)))
			req = withPrincipal(req, "alice", model.RoleUser)
			rec := httptest.NewRecorder()

			h.PlaceOrder(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec))
		})
	}
}

func TestPlaceOrder_InvalidOrder(t *testing.T) {
	h := newTestHandler(t, &stubService{orderErr: service.ErrInvalidOrder})

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders", bytes.NewReader([]byte(`{"items":[]}`)))
	req = withPrincipal(req, "alice", model.RoleUser)
	rec := httptest.NewRecorder()

	h.PlaceOrder(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_Empty(t *testing.T) {
	h := newTestHandler(t, &stubService{ordersResp: nil})

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/user/orders", nil), "alice", model.RoleUser)
	rec := httptest.NewRecorder()

	h.ListOrders(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProduct_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{productErr: &service.ProductNotFoundError{ProductID: 9}})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/products/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "product not found", "productId": 9.0}, decodeBody(t, rec))
}

func TestProduct_InvalidID(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProduct_MoneyFormatting(t *testing.T) {
	h := newTestHandler(t, &stubService{
		productsResp: []model.Product{{ID: 1, Name: "Apple", Price: decimal.RequireFromString("1.5"), Stock: 3}},
	})

	rec := httptest.NewRecorder()
	h.ListProducts(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":1.50`)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newTestHandler(t, &stubService{pingErr: errors.New("down")})
	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
