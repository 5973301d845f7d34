// FilePath: internal/repository/postgres/postgres.order.go
package postgres

import (
	"context"

	"github.com/airflowiq/hub/internal/database"
	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

const orderColumns = `id, customer_id, COALESCE(created_by::text, '') AS created_by, status, currency,
	subtotal_cents, tax_cents, shipping_cents, total_cents, COALESCE(notes, '') AS notes, created_at,
	COALESCE(ship_to_name, '') AS ship_to_name, COALESCE(ship_to_line1, '') AS ship_to_line1,
	COALESCE(ship_to_line2, '') AS ship_to_line2, COALESCE(ship_to_city, '') AS ship_to_city,
	COALESCE(ship_to_state, '') AS ship_to_state, COALESCE(ship_to_postal, '') AS ship_to_postal,
	COALESCE(ship_to_country, '') AS ship_to_country, COALESCE(ship_to_phone, '') AS ship_to_phone`

type ProductRepo struct {
	PostgresBaseRepo
}

func NewProductRepository(db database.DB) *ProductRepo {
	return &ProductRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
}

func (r *ProductRepo) ListActive(ctx context.Context) ([]*models.Product, error) {
	query := `
		SELECT id, name, COALESCE(description, '') AS description, price_cents, currency, active
		FROM products
		WHERE active = true
		ORDER BY name`

	products := []*models.Product{}
	if err := r.db.GetDB().SelectContext(ctx, &products, query); err != nil {
		return nil, errors.NewDatabaseError("failed to list products", err)
	}
	return products, nil
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Product, error) {
	query := `
		SELECT id, name, COALESCE(description, '') AS description, price_cents, currency, active
		FROM products
		WHERE id = ANY($1)`

	products := []*models.Product{}
	if err := r.db.GetDB().SelectContext(ctx, &products, query, pq.Array(ids)); err != nil {
		return nil, errors.NewDatabaseError("failed to load products", err)
	}
	return products, nil
}

type OrderRepo struct {
	PostgresBaseRepo
}

func NewOrderRepository(db database.DB) *OrderRepo {
	return &OrderRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
}

func (r *OrderRepo) CreateWithItems(ctx context.Context, order *models.Order) error {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (
			id, customer_id, created_by, status, currency,
			subtotal_cents, tax_cents, shipping_cents, total_cents,
			ship_to_name, ship_to_line1, ship_to_line2, ship_to_city, ship_to_state,
			ship_to_postal, ship_to_country, ship_to_phone, notes, created_at
		) VALUES (
			:id, :customer_id, :created_by, :status, :currency,
			:subtotal_cents, :tax_cents, :shipping_cents, :total_cents,
			:ship_to_name, :ship_to_line1, NULLIF(:ship_to_line2, ''), :ship_to_city, :ship_to_state,
			:ship_to_postal, :ship_to_country, :ship_to_phone, NULLIF(:notes, ''), :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, orderQuery, order); err != nil {
		return errors.NewDatabaseError("failed to create order", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, qty, unit_price_cents, line_total_cents, meta)
		VALUES (:id, :order_id, :product_id, :qty, :unit_price_cents, :line_total_cents, :meta)`
	for i := range order.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &order.Items[i]); err != nil {
			return errors.NewDatabaseError("failed to create order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit order", err)
	}
	nuts.L.Infof("[OrderRepo] Stored order %s with %d items", order.ID, len(order.Items))
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	order := &models.Order{}
	if err := r.getOne(ctx, order, "order", `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id); err != nil {
		return nil, err
	}

	itemQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, '') AS product_name,
			oi.qty, oi.unit_price_cents, oi.line_total_cents, oi.meta
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY p.name`
	order.Items = []models.OrderItem{}
	if err := r.db.GetDB().SelectContext(ctx, &order.Items, itemQuery, id); err != nil {
		return nil, errors.NewDatabaseError("failed to get order items", err)
	}
	return order, nil
}

func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	orders := []*models.Order{}
	if err := r.db.GetDB().SelectContext(ctx, &orders, query, customerID); err != nil {
		return nil, errors.NewDatabaseError("failed to list orders", err)
	}
	return orders, nil
}

type ProfileRepo struct {
	PostgresBaseRepo
}

func NewProfileRepository(db database.DB) *ProfileRepo {
	return &ProfileRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile := &models.Profile{}
	query := `SELECT id, COALESCE(full_name, '') AS full_name FROM profiles WHERE id = $1`
	if err := r.getOne(ctx, profile, "profile", query, userID); err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepo) UpdateFullName(ctx context.Context, userID, fullName string) error {
	rows, err := r.execAffecting(ctx, `UPDATE profiles SET full_name = $2 WHERE id = $1`, userID, fullName)
	if err != nil {
		return errors.NewDatabaseError("failed to update profile", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("profile not found", nil)
	}
	return nil
}
