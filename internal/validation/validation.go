// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// MaxOrderLines ограничивает число позиций в одном заказе.
const MaxOrderLines = 100

// ErrInvalid возвращается для любых некорректных входных данных.
var ErrInvalid = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct проверяет структуру по тегам validate.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed on %q", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

// Price проверяет, что цена неотрицательна и содержит не более двух знаков после запятой.
func Price(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price must have at most two decimal places", ErrInvalid)
	}
	return nil
}

// Product проверяет атрибуты товара перед сохранением.
func Product(p model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalid)
	}
	return Price(p.Price)
}

// OrderLines проверяет позиции заказа: список не пуст, идентификаторы и количества положительны.
func OrderLines(lines []model.OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalid)
	}
	if len(lines) > MaxOrderLines {
		return fmt.Errorf("%w: order has more than %d items", ErrInvalid, MaxOrderLines)
	}

	for i, l := range lines {
		if l.ProductID <= 0 {
			return fmt.Errorf("%w: item %d: productId must be positive", ErrInvalid, i)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalid, i)
		}
	}
	return nil
}
