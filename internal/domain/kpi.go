package domain

import (
	"github.com/shopspring/decimal"
)

// MonthlyKPI is one row per calendar month inside the observed date
// range. Months with no orders are present with zero counts so that
// adjacent MoM/YoY deltas compare against an explicit zero.
type MonthlyKPI struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"` // 1-12
	OrderCount int             `json:"orderCount"`
	Revenue    decimal.Decimal `json:"revenue"`

	// Percentage changes are nil when the comparison period is
	// absent or had zero revenue. Division by zero never surfaces
	// as Inf or an error.
	MoMPct *float64 `json:"momPct"`
	YoYPct *float64 `json:"yoyPct"`

	// Rolling3M is the trailing 3-month mean revenue, nil for the
	// first two months of the range.
	Rolling3M *decimal.Decimal `json:"rolling3m"`
}

// YearlyKPI aggregates revenue per calendar year.
type YearlyKPI struct {
	Year    int             `json:"year"`
	Revenue decimal.Decimal `json:"revenue"`
	YoYPct  *float64        `json:"yoyPct"`
}

// RevenueRank is one entry of a top-N ranking (by category, by state).
type RevenueRank struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// SeasonalityPoint is the mean revenue for a calendar month number
// averaged across all observed years.
type SeasonalityPoint struct {
	Month      int             `json:"month"` // 1-12
	AvgRevenue decimal.Decimal `json:"avgRevenue"`
}

// Metrics is the Metric Deriver output handed to the renderer and
// exporters.
type Metrics struct {
	TotalRevenue    decimal.Decimal    `json:"totalRevenue"`
	OrderCount      int                `json:"orderCount"`
	TopCategories   []RevenueRank      `json:"topCategories"`
	TopStates       []RevenueRank      `json:"topStates"`
	AvgDeliveryDays *float64           `json:"avgDeliveryDays"` // nil when no line was delivered
	Monthly         []MonthlyKPI       `json:"monthly"`         // chronological
	Yearly          []YearlyKPI        `json:"yearly"`
	Seasonality     []SeasonalityPoint `json:"seasonality"`
}
