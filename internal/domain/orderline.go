package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is one denormalized row per order after cleaning and
// joining: item prices and freight summed per order, exactly one
// resolved category, customer attributes attached.
type OrderLine struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
	State      string `json:"state"`

	OrderDate time.Time `json:"orderDate"`
	Month     int       `json:"month"` // 1-12, derived from OrderDate
	Year      int       `json:"year"`

	Price        decimal.Decimal `json:"price"`
	FreightValue decimal.Decimal `json:"freightValue"`
	Revenue      decimal.Decimal `json:"revenue"` // price + freight

	// Category is the resolved (and translated) category for the
	// order. Empty when no item category could be resolved; such
	// lines stay in revenue totals but are excluded from category
	// rankings.
	Category string `json:"category"`

	// DeliveryTime is whole days between purchase and customer
	// delivery, nil while undelivered.
	DeliveryTime *int `json:"deliveryTime"`
}

// Delivered reports whether the line has a known delivery time.
func (l *OrderLine) Delivered() bool {
	return l.DeliveryTime != nil
}
