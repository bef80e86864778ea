package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerRFM is the per-customer recency/frequency/monetary record
// with quantile tier scores and the assigned segment.
type CustomerRFM struct {
	CustomerID  string          `json:"customerId"`
	RecencyDays int             `json:"recencyDays"`
	Frequency   int             `json:"frequency"` // distinct orders
	Monetary    decimal.Decimal `json:"monetary"`  // summed revenue

	RScore int `json:"rScore"` // 1-5, higher = more recent
	FScore int `json:"fScore"`
	MScore int `json:"mScore"`

	Segment string `json:"segment"`
}

// SegmentRule is one configurable segment-assignment rule. Rules are
// evaluated in order against the tier scores; the first expression
// that yields true assigns its segment.
type SegmentRule struct {
	Segment    string `json:"segment" yaml:"segment"`
	Expression string `json:"expression" yaml:"expression"` // CEL over r_score, f_score, m_score, recency_days, frequency, monetary
}

// SegmentSummary aggregates RFM rows per segment.
type SegmentSummary struct {
	Segment     string          `json:"segment"`
	Customers   int             `json:"customers"`
	Monetary    decimal.Decimal `json:"monetary"`
	MeanFreq    float64         `json:"meanFrequency"`
	MeanRecency float64         `json:"meanRecencyDays"`
}

// RFMReport is the RFM Engine output.
type RFMReport struct {
	ReferenceDate time.Time        `json:"referenceDate"`
	Customers     []CustomerRFM    `json:"customers"`
	Segments      []SegmentSummary `json:"segments"`
}

// Default customer segments. The mapping from scores to segments is
// business policy and lives in SegmentRule configuration, not here.
const (
	SegmentVIP       = "VIP"
	SegmentLoyal     = "Loyal"
	SegmentNew       = "New"
	SegmentSleeping  = "Sleeping"
	SegmentPotential = "Potential"
)

// DefaultSegmentRules returns the default segment policy. Order
// matters: the first matching rule wins, and Potential is the
// fallback when nothing matches.
func DefaultSegmentRules() []SegmentRule {
	return []SegmentRule{
		{Segment: SegmentVIP, Expression: "r_score >= 4 && f_score >= 4 && m_score >= 4"},
		{Segment: SegmentLoyal, Expression: "f_score >= 4 && m_score >= 4"},
		{Segment: SegmentNew, Expression: "f_score == 1 && r_score >= 4"},
		{Segment: SegmentSleeping, Expression: "r_score <= 2 && f_score <= 2"},
	}
}
