// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	RegisterUser(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	AuthenticateUser(ctx context.Context, username, password string) (*service.AuthResult, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, query string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	PlaceOrder(ctx context.Context, username string, lines []model.OrderLine) (*model.Order, error)
	ListOrders(ctx context.Context, username string) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.Authenticator
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.Authenticator) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expiresIn"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token,
		Username:  res.Username,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	}
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.RegisterUser(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserExists):
			writeError(w, http.StatusConflict, repository.ErrUserExists.Error())
		case errors.Is(err, repository.ErrEmailExists):
			writeError(w, http.StatusConflict, repository.ErrEmailExists.Error())
		default:
			h.internalError(w, r, "register user error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.internalError(w, r, "login user error", err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

type meResponse struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Roles    []model.Role `json:"roles"`
}

// Me возвращает сведения о текущем пользователе.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	roles := p.Roles
	if roles == nil {
		roles = []model.Role{}
	}
	writeJSON(w, http.StatusOK, meResponse{ID: p.ID, Username: p.Username, Roles: roles})
}

// Health сообщает о доступности сервиса и хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
