package domain

import (
	"context"
	"time"
)

// Warehouse defines the interface for loading the raw dataset and
// persisting derived tables. Implementations work over database/sql
// with SQLite or PostgreSQL drivers.
type Warehouse interface {
	// Raw table loading
	LoadOrders(ctx context.Context) ([]Order, error)
	LoadOrderItems(ctx context.Context) ([]OrderItem, error)
	LoadPayments(ctx context.Context) ([]Payment, error)
	LoadProducts(ctx context.Context) ([]Product, error)
	LoadCustomers(ctx context.Context) ([]Customer, error)
	LoadCategoryTranslations(ctx context.Context) ([]CategoryTranslation, error)
	LoadReviews(ctx context.Context) ([]Review, error)

	// Raw table seeding, used by tooling and tests
	SaveOrder(ctx context.Context, o *Order) error
	SaveOrderItem(ctx context.Context, it *OrderItem) error
	SavePayment(ctx context.Context, p *Payment) error
	SaveProduct(ctx context.Context, p *Product) error
	SaveCustomer(ctx context.Context, c *Customer) error
	SaveCategoryTranslation(ctx context.Context, t *CategoryTranslation) error
	SaveReview(ctx context.Context, r *Review) error

	// Derived table persistence (replaced wholesale per run)
	SaveMonthlyKPIs(ctx context.Context, runID string, kpis []MonthlyKPI) error
	SaveCustomerRFM(ctx context.Context, runID string, rows []CustomerRFM) error
	SaveRunSummary(ctx context.Context, summary *RunSummary) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// WarehouseConfig holds configuration for warehouse initialization.
type WarehouseConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" yaml:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" yaml:"postgres_host"`
	PostgresPort     int    `json:"postgresPort" yaml:"postgres_port"`
	PostgresUser     string `json:"postgresUser" yaml:"postgres_user"`
	PostgresPassword string `json:"-" yaml:"postgres_password"`
	PostgresDB       string `json:"postgresDb" yaml:"postgres_db"`
	PostgresSSLMode  string `json:"postgresSslMode" yaml:"postgres_ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"conn_max_lifetime"`
}
