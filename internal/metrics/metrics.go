// Package metrics derives business KPIs from the OrderLine set:
// revenue totals, top-N rankings, delivery time, monthly/yearly KPI
// tables and seasonality.
package metrics

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Deriver computes aggregate metrics over order lines.
type Deriver struct {
	topN int
}

// NewDeriver creates a deriver. topN bounds the category/state
// rankings; values <= 0 fall back to 10.
func NewDeriver(topN int) *Deriver {
	if topN <= 0 {
		topN = 10
	}
	return &Deriver{topN: topN}
}

// Derive computes all metrics in one pass over the lines. Empty input
// yields empty tables, never an error.
func (d *Deriver) Derive(lines []domain.OrderLine) *domain.Metrics {
	m := &domain.Metrics{
		TotalRevenue: decimal.Zero,
		OrderCount:   len(lines),
	}

	if len(lines) == 0 {
		return m
	}

	byCategory := make(map[string]*bucket)
	byState := make(map[string]*bucket)
	byMonth := make(map[int]*bucket) // keyed by year*12 + (month-1)

	var deliveryDays []float64

	minIdx, maxIdx := 0, 0
	for i, line := range lines {
		m.TotalRevenue = m.TotalRevenue.Add(line.Revenue)

		// Lines without a resolved category stay in revenue totals
		// but are excluded from category rankings.
		if line.Category != "" {
			accumulate(byCategory, line.Category, line.Revenue)
		}
		if line.State != "" {
			accumulate(byState, line.State, line.Revenue)
		}

		idx := monthIndex(line.Year, line.Month)
		accumulateIdx(byMonth, idx, line.Revenue)
		if i == 0 || idx < minIdx {
			minIdx = idx
		}
		if i == 0 || idx > maxIdx {
			maxIdx = idx
		}

		if line.DeliveryTime != nil {
			deliveryDays = append(deliveryDays, float64(*line.DeliveryTime))
		}
	}

	m.TopCategories = rank(byCategory, d.topN)
	m.TopStates = rank(byState, d.topN)

	// Lines with null delivery time are excluded from the mean, not
	// treated as zero.
	if len(deliveryDays) > 0 {
		if mean, err := stats.Mean(deliveryDays); err == nil {
			m.AvgDeliveryDays = &mean
		}
	}

	m.Monthly = d.monthlyKPIs(byMonth, minIdx, maxIdx)
	m.Yearly = yearlyKPIs(m.Monthly)
	m.Seasonality = seasonality(m.Monthly)

	return m
}

type bucket struct {
	revenue decimal.Decimal
	orders  int
}

func accumulate(buckets map[string]*bucket, key string, revenue decimal.Decimal) {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{revenue: decimal.Zero}
		buckets[key] = b
	}
	b.revenue = b.revenue.Add(revenue)
	b.orders++
}

func accumulateIdx(buckets map[int]*bucket, key int, revenue decimal.Decimal) {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{revenue: decimal.Zero}
		buckets[key] = b
	}
	b.revenue = b.revenue.Add(revenue)
	b.orders++
}

// rank sorts buckets by revenue descending, ties by key ascending,
// truncated to n entries.
func rank(buckets map[string]*bucket, n int) []domain.RevenueRank {
	ranks := make([]domain.RevenueRank, 0, len(buckets))
	for key, b := range buckets {
		ranks = append(ranks, domain.RevenueRank{Key: key, Revenue: b.revenue, Orders: b.orders})
	}

	sort.Slice(ranks, func(i, j int) bool {
		cmp := ranks[i].Revenue.Cmp(ranks[j].Revenue)
		if cmp != 0 {
			return cmp > 0
		}
		return ranks[i].Key < ranks[j].Key
	})

	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// monthlyKPIs builds one row per calendar month between the first and
// last observed order, inclusive. Months with no orders appear with
// zero counts so adjacent deltas compare against an explicit zero.
func (d *Deriver) monthlyKPIs(byMonth map[int]*bucket, minIdx, maxIdx int) []domain.MonthlyKPI {
	kpis := make([]domain.MonthlyKPI, 0, maxIdx-minIdx+1)

	for idx := minIdx; idx <= maxIdx; idx++ {
		year, month := indexMonth(idx)
		kpi := domain.MonthlyKPI{
			Year:    year,
			Month:   month,
			Revenue: decimal.Zero,
		}
		if b, ok := byMonth[idx]; ok {
			kpi.OrderCount = b.orders
			kpi.Revenue = b.revenue
		}
		kpis = append(kpis, kpi)
	}

	for i := range kpis {
		if i > 0 {
			kpis[i].MoMPct = pctChange(kpis[i].Revenue, kpis[i-1].Revenue)
		}
		if i >= 12 {
			kpis[i].YoYPct = pctChange(kpis[i].Revenue, kpis[i-12].Revenue)
		}
		if i >= 2 {
			sum := kpis[i].Revenue.Add(kpis[i-1].Revenue).Add(kpis[i-2].Revenue)
			rolling := sum.Div(decimal.NewFromInt(3))
			kpis[i].Rolling3M = &rolling
		}
	}

	return kpis
}

func yearlyKPIs(monthly []domain.MonthlyKPI) []domain.YearlyKPI {
	byYear := make(map[int]decimal.Decimal)
	var years []int
	for _, kpi := range monthly {
		if _, ok := byYear[kpi.Year]; !ok {
			years = append(years, kpi.Year)
		}
		byYear[kpi.Year] = byYear[kpi.Year].Add(kpi.Revenue)
	}
	sort.Ints(years)

	kpis := make([]domain.YearlyKPI, 0, len(years))
	for i, year := range years {
		kpi := domain.YearlyKPI{Year: year, Revenue: byYear[year]}
		if i > 0 {
			kpi.YoYPct = pctChange(kpi.Revenue, byYear[years[i-1]])
		}
		kpis = append(kpis, kpi)
	}
	return kpis
}

// seasonality averages monthly revenue per calendar month number
// across all observed years, answering whether December is typically
// higher than June independent of year.
func seasonality(monthly []domain.MonthlyKPI) []domain.SeasonalityPoint {
	sums := make(map[int]decimal.Decimal)
	counts := make(map[int]int)
	for _, kpi := range monthly {
		sums[kpi.Month] = sums[kpi.Month].Add(kpi.Revenue)
		counts[kpi.Month]++
	}

	var points []domain.SeasonalityPoint
	for month := 1; month <= 12; month++ {
		n, ok := counts[month]
		if !ok {
			continue
		}
		points = append(points, domain.SeasonalityPoint{
			Month:      month,
			AvgRevenue: sums[month].Div(decimal.NewFromInt(int64(n))),
		})
	}
	return points
}

// pctChange returns (cur-prev)/prev, nil when prev is zero. Division
// by zero degrades to null, never Inf or an error.
func pctChange(cur, prev decimal.Decimal) *float64 {
	if prev.IsZero() {
		return nil
	}
	pct := cur.Sub(prev).Div(prev).InexactFloat64()
	return &pct
}

func monthIndex(year, month int) int {
	return year*12 + month - 1
}

func indexMonth(idx int) (year, month int) {
	return idx / 12, idx%12 + 1
}
