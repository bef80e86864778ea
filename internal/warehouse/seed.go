package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Raw-table inserts, used by the dataset seeder and tests. The
// analytics pipeline itself only reads these tables.

const rawTimeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(rawTimeLayout)
}

// SaveOrder inserts a raw order row.
func (w *SQLWarehouse) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		return fmt.Errorf("%w: order ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO orders (
			order_id, customer_id, order_status,
			order_purchase_timestamp, order_approved_at,
			order_delivered_carrier_date, order_delivered_customer_date,
			order_estimated_delivery_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		o.ID, o.CustomerID, o.Status,
		formatTime(o.PurchasedAt), formatTime(o.ApprovedAt),
		formatTime(o.DeliveredToCarrierAt), formatTime(o.DeliveredToCustomerAt),
		formatTime(o.EstimatedDeliveryAt),
	)
	return err
}

// SaveOrderItem inserts a raw order item row.
func (w *SQLWarehouse) SaveOrderItem(ctx context.Context, it *domain.OrderItem) error {
	if it.OrderID == "" {
		return fmt.Errorf("%w: order ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO order_items (
			order_id, order_item_id, product_id, seller_id, price, freight_value
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		it.OrderID, it.Sequence, it.ProductID, it.SellerID,
		it.Price.InexactFloat64(), it.FreightValue.InexactFloat64(),
	)
	return err
}

// SavePayment inserts a raw payment row.
func (w *SQLWarehouse) SavePayment(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO order_payments (
			order_id, payment_sequential, payment_type, payment_installments, payment_value
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		p.OrderID, p.Sequential, p.Type, p.Installments, p.Value.InexactFloat64(),
	)
	return err
}

// SaveProduct inserts a raw product row.
func (w *SQLWarehouse) SaveProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (product_id, product_category_name) VALUES (?, ?)`

	_, err := w.db.ExecContext(ctx, w.rebind(query), p.ID, p.Category)
	return err
}

// SaveCustomer inserts a raw customer row.
func (w *SQLWarehouse) SaveCustomer(ctx context.Context, c *domain.Customer) error {
	query := `
		INSERT INTO customers (
			customer_id, customer_unique_id, customer_zip_code_prefix,
			customer_city, customer_state
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		c.ID, c.UniqueID, c.ZipCode, c.City, c.State,
	)
	return err
}

// SaveCategoryTranslation inserts a category translation row.
func (w *SQLWarehouse) SaveCategoryTranslation(ctx context.Context, t *domain.CategoryTranslation) error {
	query := `
		INSERT INTO product_category_name_translation (
			product_category_name, product_category_name_english
		) VALUES (?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query), t.Name, t.English)
	return err
}

// SaveReview inserts a raw review row.
func (w *SQLWarehouse) SaveReview(ctx context.Context, r *domain.Review) error {
	query := `
		INSERT INTO reviews (review_id, order_id, review_score, review_creation_date)
		VALUES (?, ?, ?, ?)
	`

	_, err := w.db.ExecContext(ctx, w.rebind(query),
		r.ID, r.OrderID, r.Score, formatTime(r.CreatedAt),
	)
	return err
}
