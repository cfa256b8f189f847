package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

func TestMemoryRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	id, err := repo.CreateUser(ctx, model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: []byte("hash"),
		Roles:        []model.Role{model.RoleUser},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = repo.CreateUser(ctx, model.User{Username: "alice", Email: "other@example.com"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = repo.CreateUser(ctx, model.User{Username: "bob", Email: "ALICE@example.com"})
	require.ErrorIs(t, err, ErrEmailExists)

	u, found, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []model.Role{model.RoleUser}, u.Roles)

	require.NoError(t, repo.AddUserRole(ctx, id, model.RoleAdmin))
	require.NoError(t, repo.AddUserRole(ctx, id, model.RoleAdmin))

	u, _, err = repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAdmin}, u.Roles)

	_, found, err = repo.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryRepository_Products(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	carrotID, err := repo.CreateProduct(ctx, model.Product{Name: "Carrot", Price: decimal.RequireFromString("1.20"), Stock: 10})
	require.NoError(t, err)
	_, err = repo.CreateProduct(ctx, model.Product{Name: "Red Cabbage", Price: decimal.RequireFromString("2.50"), Stock: 4})
	require.NoError(t, err)

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Carrot", all[0].Name)

	found, err := repo.SearchProducts(ctx, "CABB")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Red Cabbage", found[0].Name)

	ok, err := repo.UpdateProduct(ctx, model.Product{ID: carrotID, Name: "Carrot", Price: decimal.RequireFromString("1.30"), Stock: 9})
	require.NoError(t, err)
	assert.True(t, ok)

	p, exists, err := repo.GetProduct(ctx, carrotID)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 9, p.Stock)

	ok, err = repo.UpdateProduct(ctx, model.Product{ID: 99})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteProduct(ctx, carrotID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, exists, err = repo.GetProduct(ctx, carrotID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryRepository_WithinOrderTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	id, err := repo.CreateProduct(ctx, model.Product{Name: "Tomato", Price: decimal.RequireFromString("3.00"), Stock: 5})
	require.NoError(t, err)

	errAbort := errors.New("abort")
	err = repo.WithinOrderTx(ctx, func(tx OrderTx) error {
		require.NoError(t, tx.SetStock(ctx, id, 1))

		p, ok, err := tx.LockProduct(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, p.Stock, "staged stock must be visible inside the unit of work")

		require.NoError(t, tx.SaveOrder(ctx, &model.Order{UserID: 1}))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	p, _, err := repo.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	orders, err := repo.GetOrdersByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)

	var saved model.Order
	err = repo.WithinOrderTx(ctx, func(tx OrderTx) error {
		if err := tx.SetStock(ctx, id, 2); err != nil {
			return err
		}
		saved = model.Order{
			UserID: 1,
			Items:  []model.OrderItem{{ProductID: id, ProductName: "Tomato", Quantity: 3, UnitPrice: decimal.RequireFromString("3.00")}},
			Total:  decimal.RequireFromString("9.00"),
		}
		return tx.SaveOrder(ctx, &saved)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	p, _, err = repo.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	orders, err = repo.GetOrdersByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, saved.ID, orders[0].ID)
	assert.Len(t, orders[0].Items, 1)
}

func TestMemoryRepository_SetStockRejectsNegative(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	id, err := repo.CreateProduct(ctx, model.Product{Name: "Leek", Stock: 1})
	require.NoError(t, err)

	err = repo.WithinOrderTx(ctx, func(tx OrderTx) error {
		return tx.SetStock(ctx, id, -1)
	})
	require.ErrorIs(t, err, errNegativeStock)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryRepository()
	called := false
	err := repo.WithinOrderTx(ctx, func(OrderTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
