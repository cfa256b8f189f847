// Package middleware содержит HTTP middleware витрины.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

const bearerPrefix = "Bearer "

// TokenValidator извлекает субъект из подписанного токена доступа.
type TokenValidator interface {
	ExtractSubject(token string) (string, error)
}

// UserDirectory разрешает логин в принципала.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (model.Principal, bool, error)
}

// Authenticator выполняет проверку bearer-токена и публикует принципала в контекст запроса.
type Authenticator struct {
	tokens TokenValidator
	users  UserDirectory
	logger *zap.Logger
}

// NewAuthenticator создаёт новый экземпляр Authenticator.
func NewAuthenticator(tokens TokenValidator, users UserDirectory, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// Middleware проверяет заголовок Authorization. Запрос без bearer-токена проходит анонимно,
// запрос с недействительным токеном завершается ответом 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := a.tokens.ExtractSubject(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		principal, found, err := a.users.FindByUsername(r.Context(), subject)
		if err != nil {
			a.logger.Error("resolve principal",
				zap.String("username", subject),
				zap.String("requestID", RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !found {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}

// RequireAuth пропускает только аутентифицированные запросы.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole пропускает только запросы принципала с указанной ролью.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !p.HasRole(role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal возвращает контекст с опубликованным принципалом.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext извлекает принципала из контекста запроса.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
