package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

func line(id string, year, month int, revenue int64) domain.OrderLine {
	date := time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
	return domain.OrderLine{
		OrderID:   id,
		OrderDate: date,
		Year:      year,
		Month:     month,
		Revenue:   decimal.NewFromInt(revenue),
		Category:  "toys",
		State:     "SP",
	}
}

func TestDeriveTotals(t *testing.T) {
	deriver := NewDeriver(10)

	m := deriver.Derive([]domain.OrderLine{
		line("o1", 2023, 1, 100),
		line("o2", 2023, 1, 50),
		line("o3", 2023, 2, 25),
	})

	if !m.TotalRevenue.Equal(decimal.NewFromInt(175)) {
		t.Errorf("expected total 175, got %s", m.TotalRevenue)
	}
	if m.OrderCount != 3 {
		t.Errorf("expected 3 orders, got %d", m.OrderCount)
	}
}

func TestDeriveEmptyInput(t *testing.T) {
	m := NewDeriver(10).Derive(nil)

	if !m.TotalRevenue.IsZero() {
		t.Errorf("expected zero revenue, got %s", m.TotalRevenue)
	}
	if m.OrderCount != 0 || len(m.Monthly) != 0 || len(m.TopCategories) != 0 {
		t.Error("expected empty tables for empty input")
	}
	if m.AvgDeliveryDays != nil {
		t.Error("expected nil average delivery time")
	}
}

func TestTopCategoriesBoundedAndSorted(t *testing.T) {
	deriver := NewDeriver(3)

	var lines []domain.OrderLine
	for i := 0; i < 5; i++ {
		l := line(fmt.Sprintf("o%d", i), 2023, 1, int64(100*(i+1)))
		l.Category = fmt.Sprintf("cat-%d", i)
		lines = append(lines, l)
	}

	m := deriver.Derive(lines)

	if len(m.TopCategories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(m.TopCategories))
	}
	for i := 1; i < len(m.TopCategories); i++ {
		if m.TopCategories[i].Revenue.GreaterThan(m.TopCategories[i-1].Revenue) {
			t.Errorf("ranking not descending at %d", i)
		}
	}
	if m.TopCategories[0].Key != "cat-4" {
		t.Errorf("expected cat-4 first, got %s", m.TopCategories[0].Key)
	}
}

func TestTopCategoriesExcludesUnresolved(t *testing.T) {
	l1 := line("o1", 2023, 1, 100)
	l2 := line("o2", 2023, 1, 500)
	l2.Category = ""

	m := NewDeriver(10).Derive([]domain.OrderLine{l1, l2})

	if len(m.TopCategories) != 1 {
		t.Fatalf("expected 1 ranked category, got %d", len(m.TopCategories))
	}
	// The uncategorized order still counts toward total revenue.
	if !m.TotalRevenue.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected total 600, got %s", m.TotalRevenue)
	}
}

func TestMonthlyKPIGapFilling(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2023, 1, 100),
		line("o2", 2023, 4, 200),
	})

	if len(m.Monthly) != 4 {
		t.Fatalf("expected 4 monthly rows (Jan-Apr), got %d", len(m.Monthly))
	}
	for i, want := range []struct {
		month  int
		orders int
	}{{1, 1}, {2, 0}, {3, 0}, {4, 1}} {
		row := m.Monthly[i]
		if row.Month != want.month || row.OrderCount != want.orders {
			t.Errorf("row %d: expected month %d with %d orders, got month %d with %d",
				i, want.month, want.orders, row.Month, row.OrderCount)
		}
	}
	if !m.Monthly[1].Revenue.IsZero() {
		t.Errorf("expected zero revenue for empty month, got %s", m.Monthly[1].Revenue)
	}
}

func TestMonthlyKPIGapFillingAcrossYearBoundary(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2022, 11, 100),
		line("o2", 2023, 2, 100),
	})

	if len(m.Monthly) != 4 {
		t.Fatalf("expected 4 rows (Nov-Feb), got %d", len(m.Monthly))
	}
	if m.Monthly[1].Year != 2022 || m.Monthly[1].Month != 12 {
		t.Errorf("expected 2022-12, got %d-%d", m.Monthly[1].Year, m.Monthly[1].Month)
	}
	if m.Monthly[2].Year != 2023 || m.Monthly[2].Month != 1 {
		t.Errorf("expected 2023-01, got %d-%d", m.Monthly[2].Year, m.Monthly[2].Month)
	}
}

func TestMoMChange(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2023, 1, 100),
		line("o2", 2023, 2, 150),
	})

	if m.Monthly[0].MoMPct != nil {
		t.Error("first month must have nil MoM")
	}
	if m.Monthly[1].MoMPct == nil {
		t.Fatal("second month must have MoM")
	}
	if math.Abs(*m.Monthly[1].MoMPct-0.5) > 1e-9 {
		t.Errorf("expected MoM 0.5, got %f", *m.Monthly[1].MoMPct)
	}
}

func TestMoMNullWhenPriorMonthIsZero(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2023, 1, 100),
		line("o2", 2023, 3, 150),
	})

	// February is a zero-filled month: its MoM compares against
	// January, March's compares against the explicit zero and is null.
	feb, mar := m.Monthly[1], m.Monthly[2]
	if feb.MoMPct == nil || math.Abs(*feb.MoMPct+1.0) > 1e-9 {
		t.Errorf("expected February MoM -1.0, got %v", feb.MoMPct)
	}
	if mar.MoMPct != nil {
		t.Errorf("expected nil March MoM against zero prior, got %f", *mar.MoMPct)
	}
}

func TestYoYRequiresTwelveMonthsOfHistory(t *testing.T) {
	lines := []domain.OrderLine{
		line("o1", 2022, 3, 100),
		line("o2", 2023, 3, 130),
	}

	m := NewDeriver(10).Derive(lines)

	if len(m.Monthly) != 13 {
		t.Fatalf("expected 13 rows, got %d", len(m.Monthly))
	}
	for i := 0; i < 12; i++ {
		if m.Monthly[i].YoYPct != nil {
			t.Errorf("row %d: YoY should be nil without a year of history", i)
		}
	}
	last := m.Monthly[12]
	if last.YoYPct == nil {
		t.Fatal("expected YoY on the thirteenth month")
	}
	if math.Abs(*last.YoYPct-0.3) > 1e-9 {
		t.Errorf("expected YoY 0.3, got %f", *last.YoYPct)
	}
}

func TestRollingThreeMonthAverage(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2023, 1, 30),
		line("o2", 2023, 2, 60),
		line("o3", 2023, 3, 90),
	})

	if m.Monthly[0].Rolling3M != nil || m.Monthly[1].Rolling3M != nil {
		t.Error("rolling average needs three months of history")
	}
	if m.Monthly[2].Rolling3M == nil {
		t.Fatal("expected rolling average on third month")
	}
	if !m.Monthly[2].Rolling3M.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected rolling average 60, got %s", m.Monthly[2].Rolling3M)
	}
}

func TestAvgDeliveryExcludesNulls(t *testing.T) {
	d1, d2 := 4, 8
	l1 := line("o1", 2023, 1, 100)
	l1.DeliveryTime = &d1
	l2 := line("o2", 2023, 1, 100)
	l2.DeliveryTime = &d2
	l3 := line("o3", 2023, 1, 100) // undelivered

	m := NewDeriver(10).Derive([]domain.OrderLine{l1, l2, l3})

	if m.AvgDeliveryDays == nil {
		t.Fatal("expected average delivery time")
	}
	if math.Abs(*m.AvgDeliveryDays-6.0) > 1e-9 {
		t.Errorf("expected average 6.0, got %f", *m.AvgDeliveryDays)
	}
}

func TestYearlyKPIs(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2022, 6, 100),
		line("o2", 2023, 6, 150),
	})

	if len(m.Yearly) != 2 {
		t.Fatalf("expected 2 yearly rows, got %d", len(m.Yearly))
	}
	if m.Yearly[0].YoYPct != nil {
		t.Error("first year must have nil YoY")
	}
	if m.Yearly[1].YoYPct == nil || math.Abs(*m.Yearly[1].YoYPct-0.5) > 1e-9 {
		t.Errorf("expected yearly YoY 0.5, got %v", m.Yearly[1].YoYPct)
	}
}

func TestSeasonalityAveragesAcrossYears(t *testing.T) {
	m := NewDeriver(10).Derive([]domain.OrderLine{
		line("o1", 2022, 6, 100),
		line("o2", 2023, 6, 200),
	})

	var june *domain.SeasonalityPoint
	for i := range m.Seasonality {
		if m.Seasonality[i].Month == 6 {
			june = &m.Seasonality[i]
		}
	}
	if june == nil {
		t.Fatal("expected a June seasonality point")
	}
	if !june.AvgRevenue.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected June average 150, got %s", june.AvgRevenue)
	}
}
