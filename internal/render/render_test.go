package render

import (
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

func testReport() *domain.AnalyticsReport {
	return &domain.AnalyticsReport{
		Metrics: &domain.Metrics{
			Monthly: []domain.MonthlyKPI{
				{Year: 2023, Month: 1, OrderCount: 5, Revenue: decimal.NewFromInt(500)},
				{Year: 2023, Month: 2, OrderCount: 8, Revenue: decimal.NewFromInt(800)},
			},
			Seasonality: []domain.SeasonalityPoint{
				{Month: 1, AvgRevenue: decimal.NewFromInt(500)},
				{Month: 2, AvgRevenue: decimal.NewFromInt(800)},
			},
		},
		RFM: &domain.RFMReport{
			Segments: []domain.SegmentSummary{
				{Segment: domain.SegmentVIP, Customers: 3, Monetary: decimal.NewFromInt(900)},
				{Segment: domain.SegmentSleeping, Customers: 2, Monetary: decimal.NewFromInt(50)},
			},
		},
	}
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	four := 4
	lines := []domain.OrderLine{
		{OrderID: "o1", DeliveryTime: &four},
	}

	paths, err := r.RenderAll(testReport(), lines)
	if err != nil {
		t.Fatalf("failed to render charts: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 charts, got %d: %v", len(paths), paths)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("chart %s not written: %v", path, err)
		}
		content := string(data)
		if !strings.Contains(content, "<svg") || !strings.Contains(content, "</svg>") {
			t.Errorf("chart %s is not a complete SVG document", path)
		}
		if !strings.Contains(content, "<rect") {
			t.Errorf("chart %s has no bars", path)
		}
	}
}

func TestRenderAllSkipsEmptyTables(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	report := &domain.AnalyticsReport{
		Metrics: &domain.Metrics{},
		RFM:     &domain.RFMReport{},
	}

	paths, err := r.RenderAll(report, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no charts for empty tables, got %v", paths)
	}
}

func TestMonthlyRevenueChartTitle(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	path, err := r.MonthlyRevenue(testReport().Metrics.Monthly)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Monthly Revenue") {
		t.Error("expected chart title in SVG output")
	}
	if !strings.Contains(string(data), "2023-01") {
		t.Error("expected month label in SVG output")
	}
}

func TestDeliveryHistogramEmptyInput(t *testing.T) {
	r := NewRenderer(t.TempDir())

	path, err := r.DeliveryHistogram(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no histogram without delivered lines, got %s", path)
	}
}

func TestDeliveryHistogramSingleValue(t *testing.T) {
	r := NewRenderer(t.TempDir())

	five := 5
	lines := []domain.OrderLine{
		{OrderID: "o1", DeliveryTime: &five},
		{OrderID: "o2", DeliveryTime: &five},
	}

	path, err := r.DeliveryHistogram(lines)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}
	if path == "" {
		t.Fatal("expected a chart path")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("chart file missing: %v", err)
	}
}
