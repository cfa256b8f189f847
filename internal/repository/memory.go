package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/storefront/internal/model"
)

var errNegativeStock = errors.New("stock must not be negative")

// MemoryRepository хранит данные в памяти процесса.
// Единицы работы сериализуются одной блокировкой, поэтому проверка остатка и списание атомарны.
type MemoryRepository struct {
	mu sync.Mutex

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64

	users     map[int64]model.User
	usernames map[string]int64
	emails    map[string]int64
	products  map[int64]model.Product
	orders    []model.Order

	now func() time.Time
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[int64]model.User),
		usernames: make(map[string]int64),
		emails:    make(map[string]int64),
		products:  make(map[int64]model.Product),
		now:       time.Now,
	}
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (r *MemoryRepository) Ping(_ context.Context) error { return nil }

// CreateUser создаёт пользователя вместе с его ролями.
func (r *MemoryRepository) CreateUser(ctx context.Context, u model.User) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usernames[u.Username]; ok {
		return 0, ErrUserExists
	}
	if _, ok := r.emails[strings.ToLower(u.Email)]; ok {
		return 0, ErrEmailExists
	}

	r.nextUserID++
	u = cloneUser(u)
	u.ID = r.nextUserID
	u.CreatedAt = r.now()

	r.users[u.ID] = u
	r.usernames[u.Username] = u.ID
	r.emails[strings.ToLower(u.Email)] = u.ID
	return u.ID, nil
}

// GetUserByUsername возвращает пользователя по логину.
func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.usernames[username]
	if !ok {
		return nil, false, nil
	}
	u := cloneUser(r.users[id])
	return &u, true, nil
}

// AddUserRole выдаёт пользователю роль, если её ещё нет.
func (r *MemoryRepository) AddUserRole(ctx context.Context, userID int64, role model.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	for _, existing := range u.Roles {
		if existing == role {
			return nil
		}
	}
	u.Roles = append(append([]model.Role(nil), u.Roles...), role)
	r.users[userID] = u
	return nil
}

func (r *MemoryRepository) sortedProducts(match func(model.Product) bool) []model.Product {
	res := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if match(p) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ListProducts возвращает все товары каталога.
func (r *MemoryRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sortedProducts(func(model.Product) bool { return true }), nil
}

// SearchProducts возвращает товары, название которых содержит подстроку без учёта регистра.
func (r *MemoryRepository) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	return r.sortedProducts(func(p model.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q)
	}), nil
}

// GetProduct возвращает товар по идентификатору.
func (r *MemoryRepository) GetProduct(ctx context.Context, id int64) (*model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

// CreateProduct сохраняет новый товар и возвращает его идентификатор.
func (r *MemoryRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextProductID++
	p.ID = r.nextProductID
	r.products[p.ID] = p
	return p.ID, nil
}

// UpdateProduct обновляет товар. Возвращает false, если товар не найден.
func (r *MemoryRepository) UpdateProduct(ctx context.Context, p model.Product) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return false, nil
	}
	r.products[p.ID] = p
	return true, nil
}

// DeleteProduct удаляет товар. Возвращает false, если товар не найден.
func (r *MemoryRepository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с последних.
func (r *MemoryRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.Order, 0)
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			res = append(res, cloneOrder(r.orders[i]))
		}
	}
	return res, nil
}

// WithinOrderTx выполняет fn как единицу работы: изменения накапливаются отдельно
// и применяются, только если fn вернула nil.
func (r *MemoryRepository) WithinOrderTx(ctx context.Context, fn func(tx OrderTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memOrderTx{
		repo:   r,
		stocks: make(map[int64]int),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, stock := range tx.stocks {
		p := r.products[id]
		p.Stock = stock
		r.products[id] = p
	}
	r.nextOrderID += int64(len(tx.orders))
	r.orders = append(r.orders, tx.orders...)
	return nil
}

type memOrderTx struct {
	repo   *MemoryRepository
	stocks map[int64]int
	orders []model.Order
}

func (t *memOrderTx) LockProduct(ctx context.Context, id int64) (*model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	p, ok := t.repo.products[id]
	if !ok {
		return nil, false, nil
	}
	if stock, staged := t.stocks[id]; staged {
		p.Stock = stock
	}
	return &p, true, nil
}

func (t *memOrderTx) SetStock(ctx context.Context, id int64, stock int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if stock < 0 {
		return errNegativeStock
	}
	t.stocks[id] = stock
	return nil
}

func (t *memOrderTx) SaveOrder(ctx context.Context, order *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	order.ID = t.repo.nextOrderID + int64(len(t.orders)) + 1
	order.CreatedAt = t.repo.now()
	t.orders = append(t.orders, cloneOrder(*order))
	return nil
}
