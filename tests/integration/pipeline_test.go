//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Magpie
// analytics pipeline.
//
// These tests verify the COMPLETE batch flow:
//
//	Raw tables → Clean → Join → Metrics → RFM → Charts → Exports
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. ORDER LINE: One row per order after joining: summed item prices
//    and freight, the customer's state, exactly one category.
//
// 2. METRICS: Revenue totals, top categories/states, monthly KPI table
//    with month-over-month and year-over-year change, seasonality.
//
// 3. RFM: Per-customer recency/frequency/monetary scores binned into
//    quantile tiers 1-5, mapped to segments (VIP, Loyal, New,
//    Sleeping, Potential) by configurable CEL rules.
//
// 4. ARTIFACTS: SVG charts plus JSON and CSV exports in the output
//    directory, and derived tables persisted back to the warehouse.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/bus"
	"github.com/opensource-retail/magpie/internal/cache"
	"github.com/opensource-retail/magpie/internal/domain"
	"github.com/opensource-retail/magpie/internal/pipeline"
	"github.com/opensource-retail/magpie/internal/warehouse"
)

type testEnv struct {
	cfg      *domain.Config
	wh       domain.Warehouse
	pipeline *pipeline.Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ecommerce.db")
	wh, err := warehouse.New(domain.WarehouseConfig{
		Driver:     "sqlite",
		SQLitePath: dbPath,
	})
	if err != nil {
		t.Fatalf("failed to create warehouse: %v", err)
	}
	t.Cleanup(func() { wh.Close() })

	cfg := domain.DefaultConfig()
	cfg.Warehouse.SQLitePath = dbPath
	cfg.Output.Dir = t.TempDir()
	cfg.Analytics.QualifyingStatuses = []string{"delivered", "shipped", "invoiced"}

	c := cache.NewLRUCache(8)
	t.Cleanup(func() { c.Close() })
	b := bus.NewChannelBus(64)
	t.Cleanup(func() { b.Close() })

	p, err := pipeline.New(cfg, wh, c, b)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	return &testEnv{cfg: cfg, wh: wh, pipeline: p}
}

// seedDataset writes two years of orders across three customers in
// two states and three categories, with one messy slice: a canceled
// order, a negative-price item, and an order delivered before
// purchase.
func (env *testEnv) seedDataset(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	categories := map[string]string{
		"p-beauty": "beleza_saude",
		"p-phone":  "telefonia",
		"p-toys":   "brinquedos",
	}
	for id, cat := range categories {
		if err := env.wh.SaveProduct(ctx, &domain.Product{ID: id, Category: cat}); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	for raw, english := range map[string]string{
		"beleza_saude": "health_beauty",
		"telefonia":    "telephony",
		"brinquedos":   "toys",
	} {
		if err := env.wh.SaveCategoryTranslation(ctx, &domain.CategoryTranslation{Name: raw, English: english}); err != nil {
			t.Fatalf("seed translation: %v", err)
		}
	}

	customers := []domain.Customer{
		{ID: "c-sp", UniqueID: "u1", State: "SP"},
		{ID: "c-rj", UniqueID: "u2", State: "RJ"},
		{ID: "c-mg", UniqueID: "u3", State: "MG"},
	}
	for i := range customers {
		if err := env.wh.SaveCustomer(ctx, &customers[i]); err != nil {
			t.Fatalf("seed customer: %v", err)
		}
	}

	type seedOrder struct {
		id       string
		customer string
		product  string
		date     string
		price    int64
	}
	orders := []seedOrder{
		{"o1", "c-sp", "p-beauty", "2022-01-10", 100},
		{"o2", "c-sp", "p-phone", "2022-06-15", 250},
		{"o3", "c-rj", "p-toys", "2022-12-05", 80},
		{"o4", "c-sp", "p-beauty", "2023-01-10", 120},
		{"o5", "c-rj", "p-phone", "2023-02-20", 300},
		{"o6", "c-mg", "p-toys", "2023-03-01", 60},
		{"o7", "c-sp", "p-beauty", "2023-03-10", 90},
	}

	for _, o := range orders {
		purchased, _ := time.Parse("2006-01-02", o.date)
		delivered := purchased.AddDate(0, 0, 6)
		if err := env.wh.SaveOrder(ctx, &domain.Order{
			ID:                    o.id,
			CustomerID:            o.customer,
			Status:                "delivered",
			PurchasedAt:           &purchased,
			DeliveredToCustomerAt: &delivered,
		}); err != nil {
			t.Fatalf("seed order %s: %v", o.id, err)
		}
		if err := env.wh.SaveOrderItem(ctx, &domain.OrderItem{
			OrderID:      o.id,
			Sequence:     1,
			ProductID:    o.product,
			Price:        decimal.NewFromInt(o.price),
			FreightValue: decimal.NewFromInt(10),
		}); err != nil {
			t.Fatalf("seed item for %s: %v", o.id, err)
		}
	}

	// Messy rows the cleaner must drop
	purchased, _ := time.Parse("2006-01-02", "2023-03-05")
	if err := env.wh.SaveOrder(ctx, &domain.Order{
		ID: "o-canceled", CustomerID: "c-mg", Status: "canceled", PurchasedAt: &purchased,
	}); err != nil {
		t.Fatalf("seed canceled order: %v", err)
	}
	if err := env.wh.SaveOrderItem(ctx, &domain.OrderItem{
		OrderID: "o1", Sequence: 2, ProductID: "p-toys", Price: decimal.NewFromInt(-50),
	}); err != nil {
		t.Fatalf("seed negative item: %v", err)
	}
}

func TestFullPipelineRun(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}

	if summary.OrderLines != 7 {
		t.Errorf("expected 7 order lines, got %d", summary.OrderLines)
	}
	if summary.Customers != 3 {
		t.Errorf("expected 3 customers, got %d", summary.Customers)
	}
	if summary.Dropped.OrdersDropped != 1 || summary.Dropped.ItemsDropped != 1 {
		t.Errorf("unexpected drop counts: %+v", summary.Dropped)
	}
}

func TestDerivedMetricsEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	report, lines, err := env.pipeline.Report(context.Background())
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	// 7 orders, each price + 10 freight
	want := decimal.NewFromInt(100 + 250 + 80 + 120 + 300 + 60 + 90 + 7*10)
	if !report.Metrics.TotalRevenue.Equal(want) {
		t.Errorf("expected total %s, got %s", want, report.Metrics.TotalRevenue)
	}

	// Continuous monthly axis from 2022-01 through 2023-03
	if len(report.Metrics.Monthly) != 15 {
		t.Errorf("expected 15 monthly rows, got %d", len(report.Metrics.Monthly))
	}

	// January 2023 vs January 2022: (130-110)/110
	var jan23 *domain.MonthlyKPI
	for i := range report.Metrics.Monthly {
		kpi := &report.Metrics.Monthly[i]
		if kpi.Year == 2023 && kpi.Month == 1 {
			jan23 = kpi
		}
	}
	if jan23 == nil || jan23.YoYPct == nil {
		t.Fatal("expected YoY on January 2023")
	}
	if got := *jan23.YoYPct; got < 0.18 || got > 0.19 {
		t.Errorf("expected YoY around 0.1818, got %f", got)
	}

	if len(report.Metrics.TopStates) == 0 || report.Metrics.TopStates[0].Key != "SP" {
		t.Errorf("expected SP as top state, got %+v", report.Metrics.TopStates)
	}

	// Every line was delivered in 6 days
	if report.Metrics.AvgDeliveryDays == nil || *report.Metrics.AvgDeliveryDays != 6.0 {
		t.Errorf("expected average delivery 6.0, got %v", report.Metrics.AvgDeliveryDays)
	}

	if len(lines) != 7 {
		t.Errorf("expected 7 lines, got %d", len(lines))
	}
}

func TestRFMEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	report, _, err := env.pipeline.Report(context.Background())
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	byID := make(map[string]domain.CustomerRFM)
	for _, c := range report.RFM.Customers {
		byID[c.CustomerID] = c
	}

	sp := byID["c-sp"]
	if sp.Frequency != 4 {
		t.Errorf("expected frequency 4 for c-sp, got %d", sp.Frequency)
	}
	if !sp.Monetary.Equal(decimal.NewFromInt(100 + 250 + 120 + 90 + 4*10)) {
		t.Errorf("unexpected monetary for c-sp: %s", sp.Monetary)
	}

	mg := byID["c-mg"]
	if mg.Frequency != 1 {
		t.Errorf("expected frequency 1 for c-mg, got %d", mg.Frequency)
	}

	for id, c := range byID {
		if c.Segment == "" {
			t.Errorf("customer %s has no segment", id)
		}
	}
}

func TestArtifactsWrittenAndTablesPersisted(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)
	ctx := context.Background()

	summary, err := env.pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}

	for _, name := range []string{"monthly_revenue.svg", "seasonality.svg", "segment_revenue.svg", "delivery_time.svg", "order_lines.csv", "monthly_kpi.csv", "customer_rfm.csv"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Output.Dir, name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	db := env.wh.(*warehouse.SQLWarehouse).DB()
	var kpiRows, rfmRows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM monthly_kpi WHERE run_id = ?`, summary.RunID).Scan(&kpiRows); err != nil {
		t.Fatalf("failed to count KPI rows: %v", err)
	}
	if kpiRows != 15 {
		t.Errorf("expected 15 persisted KPI rows, got %d", kpiRows)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM customer_rfm WHERE run_id = ?`, summary.RunID).Scan(&rfmRows); err != nil {
		t.Fatalf("failed to count RFM rows: %v", err)
	}
	if rfmRows != 3 {
		t.Errorf("expected 3 persisted RFM rows, got %d", rfmRows)
	}

	persisted, err := env.wh.(*warehouse.SQLWarehouse).GetRunSummary(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("failed to load run summary: %v", err)
	}
	if persisted.Fingerprint != summary.Fingerprint {
		t.Errorf("persisted fingerprint mismatch: %s vs %s", persisted.Fingerprint, summary.Fingerprint)
	}
}

func TestRepeatRunsAreIdempotentOnDerivedData(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)
	ctx := context.Background()

	first, _, err := env.pipeline.Report(ctx)
	if err != nil {
		t.Fatalf("first report failed: %v", err)
	}
	second, _, err := env.pipeline.Report(ctx)
	if err != nil {
		t.Fatalf("second report failed: %v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Error("fingerprint not stable across runs")
	}
	if !first.Metrics.TotalRevenue.Equal(second.Metrics.TotalRevenue) {
		t.Error("total revenue not stable across runs")
	}
	for i := range first.RFM.Customers {
		a, b := first.RFM.Customers[i], second.RFM.Customers[i]
		if a.CustomerID != b.CustomerID || a.Segment != b.Segment {
			t.Fatalf("RFM output not deterministic at %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestCustomSegmentPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	env.cfg.Analytics.SegmentRules = []domain.SegmentRule{
		{Segment: "big-spender", Expression: "monetary >= 500.0"},
	}

	c := cache.NewLRUCache(8)
	defer c.Close()
	b := bus.NewChannelBus(8)
	defer b.Close()

	p, err := pipeline.New(env.cfg, env.wh, c, b)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	report, _, err := p.Report(context.Background())
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	segments := make(map[string]string)
	for _, cust := range report.RFM.Customers {
		segments[cust.CustomerID] = cust.Segment
	}
	if segments["c-sp"] != "big-spender" {
		t.Errorf("expected c-sp as big-spender, got %q", segments["c-sp"])
	}
	if segments["c-mg"] != domain.SegmentPotential {
		t.Errorf("expected c-mg as fallback Potential, got %q", segments["c-mg"])
	}
}
