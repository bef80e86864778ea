package warehouse

// Schema definitions for the Magpie database.
// Compatible with both SQLite and PostgreSQL.
//
// The raw tables mirror the dataset contract: timestamps arrive as
// parseable text, monetary columns as non-negative reals (enforced by
// the cleaner, not the schema). Derived tables are written back per
// pipeline run, keyed by run_id.

const schemaOrders = `
CREATE TABLE IF NOT EXISTS orders (
    order_id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    order_status TEXT NOT NULL,
    order_purchase_timestamp TEXT,
    order_approved_at TEXT,
    order_delivered_carrier_date TEXT,
    order_delivered_customer_date TEXT,
    order_estimated_delivery_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(order_status);
`

const schemaOrderItems = `
CREATE TABLE IF NOT EXISTS order_items (
    order_id TEXT NOT NULL,
    order_item_id INTEGER NOT NULL,
    product_id TEXT NOT NULL,
    seller_id TEXT,
    price REAL NOT NULL,
    freight_value REAL NOT NULL,
    PRIMARY KEY (order_id, order_item_id)
);

CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);
`

const schemaOrderPayments = `
CREATE TABLE IF NOT EXISTS order_payments (
    order_id TEXT NOT NULL,
    payment_sequential INTEGER NOT NULL,
    payment_type TEXT,
    payment_installments INTEGER,
    payment_value REAL NOT NULL,
    PRIMARY KEY (order_id, payment_sequential)
);
`

const schemaProducts = `
CREATE TABLE IF NOT EXISTS products (
    product_id TEXT PRIMARY KEY,
    product_category_name TEXT
);
`

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    customer_id TEXT PRIMARY KEY,
    customer_unique_id TEXT,
    customer_zip_code_prefix TEXT,
    customer_city TEXT,
    customer_state TEXT
);

CREATE INDEX IF NOT EXISTS idx_customers_state ON customers(customer_state);
`

const schemaCategoryTranslation = `
CREATE TABLE IF NOT EXISTS product_category_name_translation (
    product_category_name TEXT PRIMARY KEY,
    product_category_name_english TEXT NOT NULL
);
`

const schemaReviews = `
CREATE TABLE IF NOT EXISTS reviews (
    review_id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    review_score INTEGER NOT NULL,
    review_creation_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_reviews_order ON reviews(order_id);
`

// schemaMonthlyKPI stores the derived monthly KPI table per run.
const schemaMonthlyKPI = `
CREATE TABLE IF NOT EXISTS monthly_kpi (
    run_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    order_count INTEGER NOT NULL,
    revenue TEXT NOT NULL,
    mom_pct REAL,
    yoy_pct REAL,
    rolling_3m TEXT,
    PRIMARY KEY (run_id, year, month)
);
`

// schemaCustomerRFM stores the derived RFM table per run.
const schemaCustomerRFM = `
CREATE TABLE IF NOT EXISTS customer_rfm (
    run_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    recency_days INTEGER NOT NULL,
    frequency INTEGER NOT NULL,
    monetary TEXT NOT NULL,
    r_score INTEGER NOT NULL,
    f_score INTEGER NOT NULL,
    m_score INTEGER NOT NULL,
    segment TEXT NOT NULL,
    PRIMARY KEY (run_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customer_rfm_segment ON customer_rfm(run_id, segment);
`

const schemaRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    fingerprint TEXT NOT NULL,
    cache_hit INTEGER NOT NULL DEFAULT 0,
    order_lines INTEGER NOT NULL,
    customers INTEGER NOT NULL,
    dropped_rows INTEGER NOT NULL,
    uncategorized INTEGER NOT NULL,
    summary TEXT NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaOrders,
		schemaOrderItems,
		schemaOrderPayments,
		schemaProducts,
		schemaCustomers,
		schemaCategoryTranslation,
		schemaReviews,
		schemaMonthlyKPI,
		schemaCustomerRFM,
		schemaRuns,
	}
}
