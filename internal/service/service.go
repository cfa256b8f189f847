// Package service реализует бизнес-логику витрины.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, bool, error)
	AddUserRole(ctx context.Context, userID int64, role model.Role) error
	ListProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, query string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, bool, error)
	CreateProduct(ctx context.Context, p model.Product) (int64, error)
	UpdateProduct(ctx context.Context, p model.Product) (bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	WithinOrderTx(ctx context.Context, fn func(tx repository.OrderTx) error) error
}

// TokenIssuer выпускает токены доступа для аутентифицированных пользователей.
type TokenIssuer interface {
	Issue(subject string) (string, error)
	ExpiresIn() time.Duration
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo       Repository
	tokens     TokenIssuer
	logger     *zap.Logger
	bcryptCost int
}

// NewService создаёт новый сервис с указанным репозиторием и выпускающим токены.
func NewService(repo Repository, tokens TokenIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// RegisterInput содержит данные для регистрации пользователя.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=50,excludesall= "`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6,max=72"`
}

// AuthResult возвращается после успешной регистрации или входа.
type AuthResult struct {
	Token     string
	Username  string
	ExpiresIn time.Duration
}

// RegisterUser регистрирует нового пользователя с ролью RoleUser и выпускает ему токен.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hashed, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.CreateUser(ctx, model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		Roles:        []model.Role{model.RoleUser},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", in.Username))
	return s.issue(in.Username)
}

// AuthenticateUser проверяет логин и пароль пользователя и выпускает токен.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*AuthResult, error) {
	u, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(u.Username)
}

func (s *Service) issue(username string) (*AuthResult, error) {
	tok, err := s.tokens.Issue(username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{
		Token:     tok,
		Username:  username,
		ExpiresIn: s.tokens.ExpiresIn(),
	}, nil
}

func (s *Service) hashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

// FindByUsername разрешает логин в принципала для контекста безопасности.
func (s *Service) FindByUsername(ctx context.Context, username string) (model.Principal, bool, error) {
	u, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil || !found {
		return model.Principal{}, false, err
	}
	return u.Principal(), true, nil
}

// EnsureAdmin создаёт администратора по умолчанию или выдаёт роль администратора существующему пользователю.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	u, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup admin: %w", err)
	}

	if found {
		if u.Principal().HasRole(model.RoleAdmin) {
			return nil
		}
		if err := s.repo.AddUserRole(ctx, u.ID, model.RoleAdmin); err != nil {
			return err
		}
		s.logger.Info("promoted existing user to admin", zap.String("username", username))
		return nil
	}

	hashed, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.repo.CreateUser(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Roles:        []model.Role{model.RoleUser, model.RoleAdmin},
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("created default admin user", zap.String("username", username))
	return nil
}

// ListProducts возвращает все товары каталога.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// SearchProducts ищет товары по подстроке названия. Пустой запрос возвращает весь каталог.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.SearchProducts(ctx, query)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, found, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validation.Product(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	s.logger.Info("product created", zap.Int64("productID", id), zap.String("name", p.Name))
	return &p, nil
}

// UpdateProduct заменяет атрибуты существующего товара.
func (s *Service) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validation.Product(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	found, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ProductNotFoundError{ProductID: p.ID}
	}
	return &p, nil
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	found, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return &ProductNotFoundError{ProductID: id}
	}

	s.logger.Info("product deleted", zap.Int64("productID", id))
	return nil
}
