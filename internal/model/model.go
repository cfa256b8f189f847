// Package model содержит доменные сущности сервиса витрины.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя витрины.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Roles        []Role
	CreatedAt    time.Time
}

// Principal описывает аутентифицированную личность, привязанную к запросу.
type Principal struct {
	ID       int64
	Username string
	Roles    []Role
}

// HasRole сообщает, обладает ли принципал указанной ролью.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal возвращает представление пользователя для контекста безопасности.
func (u User) Principal() Principal {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		Roles:    roles,
	}
}

// Product описывает товар каталога.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

// OrderLine описывает запрос покупателя на одну позицию заказа.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

// OrderItem описывает позицию оформленного заказа.
// Название и цена фиксируются в момент заказа и не пересчитываются.
type OrderItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal возвращает стоимость позиции.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order описывает оформленный заказ пользователя.
type Order struct {
	ID        int64
	UserID    int64
	Items     []OrderItem
	Total     decimal.Decimal
	CreatedAt time.Time
}
