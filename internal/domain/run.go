package domain

import (
	"time"
)

// StageTiming records how long one pipeline stage took and how many
// rows it produced.
type StageTiming struct {
	Stage      string `json:"stage"`
	DurationMs int64  `json:"durationMs"`
	Rows       int    `json:"rows"`
}

// CleanStats counts what the cleaner dropped, for auditability.
type CleanStats struct {
	OrdersDropped       int `json:"ordersDropped"`       // duplicate IDs, missing purchase date
	ItemsDropped        int `json:"itemsDropped"`        // negative price/freight, duplicate keys
	PaymentsDropped     int `json:"paymentsDropped"`     // negative values, duplicate keys
	CustomersDropped    int `json:"customersDropped"`    // duplicate IDs
	ProductsDropped     int `json:"productsDropped"`     // duplicate IDs
	TranslationsDropped int `json:"translationsDropped"` // duplicate names
	ReviewsDropped      int `json:"reviewsDropped"`      // duplicate IDs, out-of-range scores
}

// Total returns the overall number of dropped rows.
func (s CleanStats) Total() int {
	return s.OrdersDropped + s.ItemsDropped + s.PaymentsDropped +
		s.CustomersDropped + s.ProductsDropped + s.TranslationsDropped + s.ReviewsDropped
}

// RunSummary describes one completed pipeline run.
type RunSummary struct {
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
	Fingerprint   string        `json:"fingerprint"`
	CacheHit      bool          `json:"cacheHit"`
	OrderLines    int           `json:"orderLines"`
	Customers     int           `json:"customers"`
	Dropped       CleanStats    `json:"dropped"`
	Uncategorized int           `json:"uncategorized"` // orders excluded from category rankings
	Stages        []StageTiming `json:"stages"`
	Artifacts     []string      `json:"artifacts"` // chart and export file paths
}
