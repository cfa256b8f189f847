// Package repository содержит реализации хранилища данных витрины: PostgreSQL и in-memory.
package repository

import (
	"context"
	"errors"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("username already taken")
	// ErrEmailExists возвращается при попытке зарегистрировать уже занятый email.
	ErrEmailExists = errors.New("email already registered")
)

// OrderTx описывает операции, доступные внутри единицы работы оформления заказа.
// Все изменения применяются атомарно при успешном завершении WithinOrderTx.
type OrderTx interface {
	// LockProduct возвращает товар и блокирует его до конца единицы работы.
	LockProduct(ctx context.Context, id int64) (*model.Product, bool, error)
	// SetStock устанавливает остаток заблокированного товара.
	SetStock(ctx context.Context, id int64, stock int) error
	// SaveOrder сохраняет заказ, заполняя ID и CreatedAt.
	SaveOrder(ctx context.Context, order *model.Order) error
}

func cloneOrder(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func cloneUser(u model.User) model.User {
	roles := make([]model.Role, len(u.Roles))
	copy(roles, u.Roles)
	u.Roles = roles
	hash := make([]byte, len(u.PasswordHash))
	copy(hash, u.PasswordHash)
	u.PasswordHash = hash
	return u
}
