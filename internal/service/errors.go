package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound возвращается, если у логина нет учётной записи.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrder возвращается для некорректного состава заказа.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidProduct возвращается для некорректных атрибутов товара.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidInput возвращается для некорректных регистрационных данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductNotFound сопоставляется с любой ProductNotFoundError.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock сопоставляется с любой InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductNotFoundError сообщает, что товар с указанным идентификатором не существует.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %d", e.ProductID)
}

// Is позволяет сравнивать ошибку с ErrProductNotFound.
func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError сообщает, что запрошено больше товара, чем есть на складе.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is позволяет сравнивать ошибку с ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
