package clean

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCleanDropsDuplicateOrders(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Orders: []domain.Order{
			{ID: "o1", Status: "delivered", PurchasedAt: ts("2023-01-05")},
			{ID: "o1", Status: "delivered", PurchasedAt: ts("2023-01-06")},
			{ID: "o2", Status: "delivered", PurchasedAt: ts("2023-01-07")},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Orders) != 2 {
		t.Errorf("expected 2 orders, got %d", len(out.Orders))
	}
	if stats.OrdersDropped != 1 {
		t.Errorf("expected 1 dropped order, got %d", stats.OrdersDropped)
	}
	if out.Orders[0].ID != "o1" || out.Orders[1].ID != "o2" {
		t.Errorf("unexpected surviving orders: %+v", out.Orders)
	}
}

func TestCleanDropsUndatedAndEmptyIDOrders(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Orders: []domain.Order{
			{ID: "o1", Status: "delivered", PurchasedAt: nil},
			{ID: "", Status: "delivered", PurchasedAt: ts("2023-01-05")},
			{ID: "o2", Status: "delivered", PurchasedAt: ts("2023-01-05")},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(out.Orders))
	}
	if stats.OrdersDropped != 2 {
		t.Errorf("expected 2 dropped orders, got %d", stats.OrdersDropped)
	}
}

func TestCleanQualifyingStatuses(t *testing.T) {
	cleaner := NewCleaner([]string{"delivered"})

	ds := &domain.Dataset{
		Orders: []domain.Order{
			{ID: "o1", Status: "delivered", PurchasedAt: ts("2023-01-05")},
			{ID: "o2", Status: "canceled", PurchasedAt: ts("2023-01-06")},
			{ID: "o3", Status: "shipped", PurchasedAt: ts("2023-01-07")},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Orders) != 1 {
		t.Errorf("expected 1 qualifying order, got %d", len(out.Orders))
	}
	if stats.OrdersDropped != 2 {
		t.Errorf("expected 2 dropped orders, got %d", stats.OrdersDropped)
	}
}

func TestCleanDropsNegativeMonetaryValues(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Items: []domain.OrderItem{
			{OrderID: "o1", Sequence: 1, Price: decimal.NewFromInt(10), FreightValue: decimal.NewFromInt(2)},
			{OrderID: "o1", Sequence: 2, Price: decimal.NewFromInt(-5), FreightValue: decimal.NewFromInt(2)},
			{OrderID: "o1", Sequence: 3, Price: decimal.NewFromInt(5), FreightValue: decimal.NewFromInt(-1)},
		},
		Payments: []domain.Payment{
			{OrderID: "o1", Sequential: 1, Value: decimal.NewFromInt(12)},
			{OrderID: "o1", Sequential: 2, Value: decimal.NewFromInt(-3)},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(out.Items))
	}
	if stats.ItemsDropped != 2 {
		t.Errorf("expected 2 dropped items, got %d", stats.ItemsDropped)
	}
	if len(out.Payments) != 1 {
		t.Errorf("expected 1 payment, got %d", len(out.Payments))
	}
	if stats.PaymentsDropped != 1 {
		t.Errorf("expected 1 dropped payment, got %d", stats.PaymentsDropped)
	}
}

func TestCleanDropsDuplicateItemKeys(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Items: []domain.OrderItem{
			{OrderID: "o1", Sequence: 1, Price: decimal.NewFromInt(10)},
			{OrderID: "o1", Sequence: 1, Price: decimal.NewFromInt(10)},
			{OrderID: "o2", Sequence: 1, Price: decimal.NewFromInt(10)},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(out.Items))
	}
	if stats.ItemsDropped != 1 {
		t.Errorf("expected 1 dropped item, got %d", stats.ItemsDropped)
	}
}

func TestCleanDropsOutOfRangeReviewScores(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Reviews: []domain.Review{
			{ID: "r1", OrderID: "o1", Score: 5},
			{ID: "r2", OrderID: "o2", Score: 0},
			{ID: "r3", OrderID: "o3", Score: 6},
			{ID: "r4", OrderID: "o4", Score: 1},
		},
	}

	out, stats := cleaner.Clean(ds)

	if len(out.Reviews) != 2 {
		t.Errorf("expected 2 reviews, got %d", len(out.Reviews))
	}
	if stats.ReviewsDropped != 2 {
		t.Errorf("expected 2 dropped reviews, got %d", stats.ReviewsDropped)
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	cleaner := NewCleaner(nil)

	ds := &domain.Dataset{
		Orders: []domain.Order{
			{ID: "o1", Status: "delivered", PurchasedAt: ts("2023-01-05")},
			{ID: "o1", Status: "delivered", PurchasedAt: ts("2023-01-05")},
		},
	}

	cleaner.Clean(ds)

	if len(ds.Orders) != 2 {
		t.Errorf("input dataset was mutated: %d orders remain", len(ds.Orders))
	}
}

func TestCleanEmptyDataset(t *testing.T) {
	cleaner := NewCleaner([]string{"delivered"})

	out, stats := cleaner.Clean(&domain.Dataset{})

	if stats.Total() != 0 {
		t.Errorf("expected no drops, got %d", stats.Total())
	}
	if len(out.Orders) != 0 || len(out.Items) != 0 {
		t.Error("expected empty output dataset")
	}
}
