// Package domain defines the core interfaces and types for Magpie.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a raw row from the orders table.
// Date fields are nil when the source column is null or unparseable.
type Order struct {
	ID                    string     `json:"orderId"`
	CustomerID            string     `json:"customerId"`
	Status                string     `json:"status"`
	PurchasedAt           *time.Time `json:"purchasedAt"`
	ApprovedAt            *time.Time `json:"approvedAt"`
	DeliveredToCarrierAt  *time.Time `json:"deliveredToCarrierAt"`
	DeliveredToCustomerAt *time.Time `json:"deliveredToCustomerAt"`
	EstimatedDeliveryAt   *time.Time `json:"estimatedDeliveryAt"`
}

// OrderItem is a raw row from the order_items table.
// Sequence starts at 1 and orders items within a single order.
type OrderItem struct {
	OrderID      string          `json:"orderId"`
	Sequence     int             `json:"sequence"`
	ProductID    string          `json:"productId"`
	SellerID     string          `json:"sellerId"`
	Price        decimal.Decimal `json:"price"`
	FreightValue decimal.Decimal `json:"freightValue"`
}

// Payment is a raw row from the order_payments table.
type Payment struct {
	OrderID      string          `json:"orderId"`
	Sequential   int             `json:"sequential"`
	Type         string          `json:"type"`
	Installments int             `json:"installments"`
	Value        decimal.Decimal `json:"value"`
}

// Product is a raw row from the products table.
type Product struct {
	ID       string `json:"productId"`
	Category string `json:"category"` // untranslated category name
}

// Customer is a raw row from the customers table.
type Customer struct {
	ID       string `json:"customerId"`
	UniqueID string `json:"uniqueId"`
	ZipCode  string `json:"zipCode"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// CategoryTranslation maps a source category name to its English name.
type CategoryTranslation struct {
	Name    string `json:"name"`
	English string `json:"english"`
}

// Review is a raw row from the reviews table.
type Review struct {
	ID        string     `json:"reviewId"`
	OrderID   string     `json:"orderId"`
	Score     int        `json:"score"`
	CreatedAt *time.Time `json:"createdAt"`
}

// Dataset holds the raw tables as loaded from the warehouse,
// before cleaning.
type Dataset struct {
	Orders       []Order
	Items        []OrderItem
	Payments     []Payment
	Products     []Product
	Customers    []Customer
	Translations []CategoryTranslation
	Reviews      []Review
}
