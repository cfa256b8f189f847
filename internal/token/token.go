// Package token выпускает и проверяет подписанные токены доступа с ограниченным сроком действия.
//
// Токен представляет собой JWT (header.payload.signature), подписанный HMAC-SHA256
// общим секретом процесса. Состояние на сервере не хранится, отзыв токенов не поддерживается.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength минимальная длина секрета подписи в байтах (256 бит).
const MinSecretLength = 32

// DefaultTTL срок действия токена по умолчанию.
const DefaultTTL = 24 * time.Hour

var (
	// ErrTokenInvalid возвращается для повреждённого, просроченного или неверно подписанного токена.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrWeakSecret возвращается, если секрет короче MinSecretLength.
	ErrWeakSecret = errors.New("token secret must be at least 32 bytes")
)

// Service выпускает и проверяет токены. Безопасен для конкурентного использования.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New создаёт сервис токенов. Секрет копируется и далее не изменяется.
func New(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	s := &Service{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ExpiresIn возвращает срок действия выпускаемых токенов.
func (s *Service) ExpiresIn() time.Duration {
	return s.ttl
}

// Issue выпускает токен для указанного субъекта.
func (s *Service) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate сообщает, действителен ли токен. Любая ошибка разбора сводится к false.
func (s *Service) Validate(tokenString string) bool {
	_, err := s.parse(tokenString)
	return err == nil
}

// ExtractSubject возвращает субъект действительного токена либо ErrTokenInvalid.
func (s *Service) ExtractSubject(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (s *Service) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
