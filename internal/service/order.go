package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// PlaceOrder оформляет заказ: проверяет и списывает остатки по всем позициям в одной единице работы
// и сохраняет заказ. Позиции обрабатываются в порядке, заданном покупателем.
// При любой ошибке ни списания, ни заказ не сохраняются.
func (s *Service) PlaceOrder(ctx context.Context, username string, lines []model.OrderLine) (*model.Order, error) {
	if err := validation.OrderLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	user, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}

	var placed model.Order
	err = s.repo.WithinOrderTx(ctx, func(tx repository.OrderTx) error {
		// Замыкание может выполняться повторно, поэтому заказ собирается с нуля.
		order := model.Order{
			UserID: user.ID,
			Items:  make([]model.OrderItem, 0, len(lines)),
			Total:  decimal.Zero,
		}

		for _, line := range lines {
			p, ok, err := tx.LockProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !ok {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if line.Quantity > p.Stock {
				return &InsufficientStockError{
					ProductID: p.ID,
					Requested: line.Quantity,
					Available: p.Stock,
				}
			}

			if err := tx.SetStock(ctx, p.ID, p.Stock-line.Quantity); err != nil {
				return err
			}

			item := model.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   p.Price,
			}
			order.Items = append(order.Items, item)
			order.Total = order.Total.Add(item.Subtotal())
		}

		if err := tx.SaveOrder(ctx, &order); err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("orderID", placed.ID),
		zap.String("username", username),
		zap.Int("items", len(placed.Items)),
		zap.String("total", placed.Total.StringFixed(2)),
	)
	return &placed, nil
}

// ListOrders возвращает историю заказов пользователя, начиная с последних.
func (s *Service) ListOrders(ctx context.Context, username string) ([]model.Order, error) {
	user, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return s.repo.GetOrdersByUser(ctx, user.ID)
}
