// Package warehouse provides dataset loading and derived-table
// persistence over database/sql.
package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Timestamp layouts accepted in raw date columns, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// SQLWarehouse implements domain.Warehouse using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLWarehouse struct {
	db     *sql.DB
	driver string
}

// New creates a new warehouse based on configuration.
func New(cfg domain.WarehouseConfig) (domain.Warehouse, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	wh := &SQLWarehouse{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := wh.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return wh, nil
}

func (w *SQLWarehouse) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := w.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying handle for seeding tools.
func (w *SQLWarehouse) DB() *sql.DB {
	return w.db
}

// LoadOrders reads the orders table. Unparseable timestamps load as
// nil; the cleaner decides what to drop.
func (w *SQLWarehouse) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	query := `
		SELECT order_id, customer_id, order_status,
		       order_purchase_timestamp, order_approved_at,
		       order_delivered_carrier_date, order_delivered_customer_date,
		       order_estimated_delivery_date
		FROM orders
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var purchased, approved, carrier, customer, estimated sql.NullString

		if err := rows.Scan(
			&o.ID, &o.CustomerID, &o.Status,
			&purchased, &approved, &carrier, &customer, &estimated,
		); err != nil {
			return nil, err
		}

		o.PurchasedAt = parseTime(purchased)
		o.ApprovedAt = parseTime(approved)
		o.DeliveredToCarrierAt = parseTime(carrier)
		o.DeliveredToCustomerAt = parseTime(customer)
		o.EstimatedDeliveryAt = parseTime(estimated)

		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// LoadOrderItems reads the order_items table.
func (w *SQLWarehouse) LoadOrderItems(ctx context.Context) ([]domain.OrderItem, error) {
	query := `
		SELECT order_id, order_item_id, product_id, COALESCE(seller_id, ''),
		       price, freight_value
		FROM order_items
		ORDER BY order_id, order_item_id
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var price, freight float64

		if err := rows.Scan(
			&it.OrderID, &it.Sequence, &it.ProductID, &it.SellerID,
			&price, &freight,
		); err != nil {
			return nil, err
		}

		it.Price = decimal.NewFromFloat(price)
		it.FreightValue = decimal.NewFromFloat(freight)
		items = append(items, it)
	}

	return items, rows.Err()
}

// LoadPayments reads the order_payments table.
func (w *SQLWarehouse) LoadPayments(ctx context.Context) ([]domain.Payment, error) {
	query := `
		SELECT order_id, payment_sequential, COALESCE(payment_type, ''),
		       COALESCE(payment_installments, 0), payment_value
		FROM order_payments
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var value float64

		if err := rows.Scan(&p.OrderID, &p.Sequential, &p.Type, &p.Installments, &value); err != nil {
			return nil, err
		}

		p.Value = decimal.NewFromFloat(value)
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// LoadProducts reads the products table.
func (w *SQLWarehouse) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT product_id, COALESCE(product_category_name, '') FROM products`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// LoadCustomers reads the customers table.
func (w *SQLWarehouse) LoadCustomers(ctx context.Context) ([]domain.Customer, error) {
	query := `
		SELECT customer_id, COALESCE(customer_unique_id, ''),
		       COALESCE(customer_zip_code_prefix, ''),
		       COALESCE(customer_city, ''), COALESCE(customer_state, '')
		FROM customers
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.UniqueID, &c.ZipCode, &c.City, &c.State); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

// LoadCategoryTranslations reads the category translation table.
func (w *SQLWarehouse) LoadCategoryTranslations(ctx context.Context) ([]domain.CategoryTranslation, error) {
	query := `
		SELECT product_category_name, product_category_name_english
		FROM product_category_name_translation
	`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []domain.CategoryTranslation
	for rows.Next() {
		var t domain.CategoryTranslation
		if err := rows.Scan(&t.Name, &t.English); err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}

	return translations, rows.Err()
}

// LoadReviews reads the reviews table.
func (w *SQLWarehouse) LoadReviews(ctx context.Context) ([]domain.Review, error) {
	query := `SELECT review_id, order_id, review_score, review_creation_date FROM reviews`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		var created sql.NullString

		if err := rows.Scan(&r.ID, &r.OrderID, &r.Score, &created); err != nil {
			return nil, err
		}

		r.CreatedAt = parseTime(created)
		reviews = append(reviews, r)
	}

	return reviews, rows.Err()
}

// SaveMonthlyKPIs persists the derived monthly KPI table for a run.
func (w *SQLWarehouse) SaveMonthlyKPIs(ctx context.Context, runID string, kpis []domain.MonthlyKPI) error {
	if runID == "" {
		return fmt.Errorf("%w: runID is required", ErrInvalidInput)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO monthly_kpi (
			run_id, year, month, order_count, revenue, mom_pct, yoy_pct, rolling_3m
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, k := range kpis {
		var rolling *string
		if k.Rolling3M != nil {
			s := k.Rolling3M.String()
			rolling = &s
		}

		if _, err := tx.ExecContext(ctx, w.rebind(query),
			runID, k.Year, k.Month, k.OrderCount, k.Revenue.String(),
			k.MoMPct, k.YoYPct, rolling,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveCustomerRFM persists the derived RFM table for a run.
func (w *SQLWarehouse) SaveCustomerRFM(ctx context.Context, runID string, rfm []domain.CustomerRFM) error {
	if runID == "" {
		return fmt.Errorf("%w: runID is required", ErrInvalidInput)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO customer_rfm (
			run_id, customer_id, recency_days, frequency, monetary,
			r_score, f_score, m_score, segment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, r := range rfm {
		if _, err := tx.ExecContext(ctx, w.rebind(query),
			runID, r.CustomerID, r.RecencyDays, r.Frequency, r.Monetary.String(),
			r.RScore, r.FScore, r.MScore, r.Segment,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveRunSummary persists a run summary row.
func (w *SQLWarehouse) SaveRunSummary(ctx context.Context, summary *domain.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("%w: run summary with ID is required", ErrInvalidInput)
	}

	blob, _ := json.Marshal(summary)

	cacheHit := 0
	if summary.CacheHit {
		cacheHit = 1
	}

	query := `
		INSERT INTO runs (
			id, started_at, finished_at, fingerprint, cache_hit,
			order_lines, customers, dropped_rows, uncategorized, summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		summary.RunID, summary.StartedAt, summary.FinishedAt,
		summary.Fingerprint, cacheHit,
		summary.OrderLines, summary.Customers,
		summary.Dropped.Total(), summary.Uncategorized,
		string(blob),
	)
	return err
}

// GetRunSummary retrieves a persisted run summary by ID.
func (w *SQLWarehouse) GetRunSummary(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `SELECT summary FROM runs WHERE id = ?`

	var blob string
	err := w.db.QueryRowContext(ctx, w.rebind(query), runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary domain.RunSummary
	if err := json.Unmarshal([]byte(blob), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return &summary, nil
}

// Ping checks database connectivity.
func (w *SQLWarehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes the database connection.
func (w *SQLWarehouse) Close() error {
	return w.db.Close()
}

// parseTime coerces a raw timestamp column to a time, nil when the
// value is null or does not match any accepted layout.
func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (w *SQLWarehouse) rebind(query string) string {
	if w.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
