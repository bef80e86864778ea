// Package clean normalizes the raw dataset before joining: duplicate
// primary keys, negative monetary values, and undated orders are
// dropped and counted, never errored on.
package clean

import (
	"log/slog"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Cleaner validates and filters raw tables.
type Cleaner struct {
	qualifying map[string]bool // order statuses allowed in, empty = all
}

// NewCleaner creates a cleaner. statuses restricts which order
// statuses qualify; an empty list admits every status.
func NewCleaner(statuses []string) *Cleaner {
	qualifying := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		qualifying[s] = true
	}
	return &Cleaner{qualifying: qualifying}
}

// Clean returns a filtered copy of the dataset and drop counts.
// The input dataset is never mutated.
func (c *Cleaner) Clean(raw *domain.Dataset) (*domain.Dataset, domain.CleanStats) {
	var stats domain.CleanStats
	out := &domain.Dataset{}

	seenOrders := make(map[string]bool, len(raw.Orders))
	for _, o := range raw.Orders {
		if o.ID == "" || seenOrders[o.ID] || o.PurchasedAt == nil {
			stats.OrdersDropped++
			continue
		}
		if len(c.qualifying) > 0 && !c.qualifying[o.Status] {
			stats.OrdersDropped++
			continue
		}
		seenOrders[o.ID] = true
		out.Orders = append(out.Orders, o)
	}

	type itemKey struct {
		orderID string
		seq     int
	}
	seenItems := make(map[itemKey]bool, len(raw.Items))
	for _, it := range raw.Items {
		key := itemKey{it.OrderID, it.Sequence}
		if it.OrderID == "" || seenItems[key] || it.Price.IsNegative() || it.FreightValue.IsNegative() {
			stats.ItemsDropped++
			continue
		}
		seenItems[key] = true
		out.Items = append(out.Items, it)
	}

	type paymentKey struct {
		orderID string
		seq     int
	}
	seenPayments := make(map[paymentKey]bool, len(raw.Payments))
	for _, p := range raw.Payments {
		key := paymentKey{p.OrderID, p.Sequential}
		if p.OrderID == "" || seenPayments[key] || p.Value.IsNegative() {
			stats.PaymentsDropped++
			continue
		}
		seenPayments[key] = true
		out.Payments = append(out.Payments, p)
	}

	seenProducts := make(map[string]bool, len(raw.Products))
	for _, p := range raw.Products {
		if p.ID == "" || seenProducts[p.ID] {
			stats.ProductsDropped++
			continue
		}
		seenProducts[p.ID] = true
		out.Products = append(out.Products, p)
	}

	seenCustomers := make(map[string]bool, len(raw.Customers))
	for _, cu := range raw.Customers {
		if cu.ID == "" || seenCustomers[cu.ID] {
			stats.CustomersDropped++
			continue
		}
		seenCustomers[cu.ID] = true
		out.Customers = append(out.Customers, cu)
	}

	seenTranslations := make(map[string]bool, len(raw.Translations))
	for _, t := range raw.Translations {
		if t.Name == "" || seenTranslations[t.Name] {
			stats.TranslationsDropped++
			continue
		}
		seenTranslations[t.Name] = true
		out.Translations = append(out.Translations, t)
	}

	seenReviews := make(map[string]bool, len(raw.Reviews))
	for _, r := range raw.Reviews {
		if r.ID == "" || seenReviews[r.ID] || r.Score < 1 || r.Score > 5 {
			stats.ReviewsDropped++
			continue
		}
		seenReviews[r.ID] = true
		out.Reviews = append(out.Reviews, r)
	}

	if stats.Total() > 0 {
		slog.Info("dropped invalid rows during cleaning",
			"orders", stats.OrdersDropped,
			"items", stats.ItemsDropped,
			"payments", stats.PaymentsDropped,
			"products", stats.ProductsDropped,
			"customers", stats.CustomersDropped,
			"translations", stats.TranslationsDropped,
			"reviews", stats.ReviewsDropped,
		)
	}

	return out, stats
}
