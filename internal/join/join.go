// Package join merges the cleaned tables into the denormalized
// OrderLine set: one line per order, item prices and freight summed,
// exactly one resolved category.
package join

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Builder assembles OrderLines from a cleaned dataset.
type Builder struct{}

// NewBuilder creates a joiner.
func NewBuilder() *Builder {
	return &Builder{}
}

type orderAgg struct {
	price   decimal.Decimal
	freight decimal.Decimal

	// category resolution: the item with the lowest sequence number
	// wins; equal sequences break ties by category name ascending.
	catSeq  int
	catName string
}

// Build returns the OrderLine set and the number of orders whose
// category could not be resolved. Orders without any cleaned item are
// skipped: they carry no monetary data.
func (b *Builder) Build(ds *domain.Dataset) ([]domain.OrderLine, int) {
	productCategory := make(map[string]string, len(ds.Products))
	for _, p := range ds.Products {
		productCategory[p.ID] = p.Category
	}

	translations := make(map[string]string, len(ds.Translations))
	for _, t := range ds.Translations {
		translations[t.Name] = t.English
	}

	customers := make(map[string]domain.Customer, len(ds.Customers))
	for _, c := range ds.Customers {
		customers[c.ID] = c
	}

	aggs := make(map[string]*orderAgg, len(ds.Orders))
	for _, it := range ds.Items {
		agg, ok := aggs[it.OrderID]
		if !ok {
			agg = &orderAgg{}
			aggs[it.OrderID] = agg
		}

		agg.price = agg.price.Add(it.Price)
		agg.freight = agg.freight.Add(it.FreightValue)

		category := productCategory[it.ProductID]
		if category == "" {
			continue
		}
		if agg.catName == "" ||
			it.Sequence < agg.catSeq ||
			(it.Sequence == agg.catSeq && category < agg.catName) {
			agg.catSeq = it.Sequence
			agg.catName = category
		}
	}

	var lines []domain.OrderLine
	uncategorized := 0

	for _, o := range ds.Orders {
		agg, ok := aggs[o.ID]
		if !ok {
			continue
		}

		category := agg.catName
		if english, ok := translations[category]; ok && english != "" {
			category = english
		}
		if category == "" {
			uncategorized++
		}

		line := domain.OrderLine{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			OrderDate:    *o.PurchasedAt,
			Month:        int(o.PurchasedAt.Month()),
			Year:         o.PurchasedAt.Year(),
			Price:        agg.price,
			FreightValue: agg.freight,
			Revenue:      agg.price.Add(agg.freight),
			Category:     category,
		}

		if c, ok := customers[o.CustomerID]; ok {
			line.State = c.State
		}

		if o.DeliveredToCustomerAt != nil {
			days := int(o.DeliveredToCustomerAt.Sub(*o.PurchasedAt).Hours() / 24)
			if days >= 0 {
				line.DeliveryTime = &days
			}
		}

		lines = append(lines, line)
	}

	// Deterministic output order
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].OrderDate.Equal(lines[j].OrderDate) {
			return lines[i].OrderDate.Before(lines[j].OrderDate)
		}
		return lines[i].OrderID < lines[j].OrderID
	})

	if uncategorized > 0 {
		slog.Warn("orders without resolvable category",
			"count", uncategorized,
		)
	}

	return lines, uncategorized
}
