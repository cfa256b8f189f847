package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var errCommitFailed = errors.New("commit failed")

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 400 * time.Millisecond},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, взаимных блокировках и обрывах соединения.
// Ошибка фиксации транзакции не повторяется: её исход неизвестен.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.delays) {
			break
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, errCommitFailed) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateUser создаёт пользователя вместе с его ролями.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.Email, u.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "users_email_key" {
				return 0, fmt.Errorf("%w: %s", ErrEmailExists, u.Email)
			}
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	for _, role := range u.Roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, role.String(),
		); err != nil {
			return 0, fmt.Errorf("insert role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

// GetUserByUsername возвращает пользователя с ролями. Признак found=false означает отсутствие пользователя.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, bool, error) {
	var (
		u         model.User
		roleNames []string
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT u.id, u.username, u.email, u.password_hash, u.created_at,
			        COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
			 FROM users u
			 LEFT JOIN user_roles ur ON ur.user_id = u.id
			 WHERE u.username = $1
			 GROUP BY u.id`,
			username,
		).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &roleNames)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	for _, name := range roleNames {
		// Неизвестные имена ролей игнорируются, а не расширяют права.
		if role, ok := model.ParseRole(name); ok {
			u.Roles = append(u.Roles, role)
		}
	}

	return &u, true, nil
}

// AddUserRole выдаёт пользователю роль, если её ещё нет.
func (r *PostgresRepository) AddUserRole(ctx context.Context, userID int64, role model.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, role.String(),
	)
	if err != nil {
		return fmt.Errorf("add user role: %w", err)
	}
	return nil
}

const productColumns = `id, name, description, price, stock, category, image`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.Image)
	return p, err
}

func (r *PostgresRepository) queryProducts(ctx context.Context, sql string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// ListProducts возвращает все товары каталога.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

// SearchProducts возвращает товары, название которых содержит подстроку без учёта регистра.
func (r *PostgresRepository) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE strpos(lower(name), lower($1)) > 0
		 ORDER BY id`,
		query,
	)
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, bool, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get product: %w", err)
	}
	return &p, true, nil
}

// CreateProduct сохраняет новый товар и возвращает его идентификатор.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock, category, image)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.Image,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// UpdateProduct обновляет товар. Возвращает false, если товар не найден.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, stock = $5, category = $6, image = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.Image,
	)
	if err != nil {
		return false, fmt.Errorf("update product: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// DeleteProduct удаляет товар. Возвращает false, если товар не найден.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с последних.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.total, o.created_at,
		        i.product_id, i.product_name, i.quantity, i.unit_price
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC, o.id DESC, i.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		var (
			orderID   int64
			total     decimal.Decimal
			createdAt time.Time
			item      model.OrderItem
		)
		if err := rows.Scan(&orderID, &total, &createdAt,
			&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		if n := len(orders); n == 0 || orders[n-1].ID != orderID {
			orders = append(orders, model.Order{
				ID:        orderID,
				UserID:    userID,
				Total:     total,
				CreatedAt: createdAt,
			})
		}
		last := &orders[len(orders)-1]
		last.Items = append(last.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// WithinOrderTx выполняет fn в одной транзакции. Транзакция фиксируется, только если fn вернула nil.
// При конфликте сериализации или взаимной блокировке fn выполняется заново.
func (r *PostgresRepository) WithinOrderTx(ctx context.Context, fn func(tx OrderTx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&pgOrderTx{tx: tx}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("%w: %w", errCommitFailed, err)
		}
		return nil
	})
}

type pgOrderTx struct {
	tx pgx.Tx
}

func (t *pgOrderTx) LockProduct(ctx context.Context, id int64) (*model.Product, bool, error) {
	// Блокируем строку товара до конца транзакции, чтобы проверка остатка и списание были атомарны.
	p, err := scanProduct(t.tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lock product for update: %w", err)
	}
	return &p, true, nil
}

func (t *pgOrderTx) SetStock(ctx context.Context, id int64, stock int) error {
	if _, err := t.tx.Exec(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, id, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

func (t *pgOrderTx) SaveOrder(ctx context.Context, order *model.Order) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, total) VALUES ($1, $2) RETURNING id, created_at`,
		order.UserID, order.Total,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range order.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, i, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
		)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}
