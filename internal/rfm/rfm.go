// Package rfm scores customers on recency, frequency and monetary
// value and assigns them a configurable segment.
package rfm

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Engine computes per-customer RFM records.
type Engine struct {
	tiers    int
	segments *SegmentEngine
}

// NewEngine creates an RFM engine. tiers is the number of quantile
// tiers per metric (minimum 2, typically 5).
func NewEngine(tiers int, segments *SegmentEngine) *Engine {
	if tiers < 2 {
		tiers = 5
	}
	return &Engine{tiers: tiers, segments: segments}
}

type customerAgg struct {
	id        string
	lastOrder time.Time
	frequency int
	monetary  decimal.Decimal
}

// Compute builds the RFM report. The reference date defaults to the
// maximum order date plus one day; override pins it externally.
// Customers without qualifying orders simply do not appear: every
// line carries an order, so absence is the natural outcome, not an
// error.
func (e *Engine) Compute(lines []domain.OrderLine, override *time.Time) *domain.RFMReport {
	if len(lines) == 0 {
		return &domain.RFMReport{}
	}

	byCustomer := make(map[string]*customerAgg)
	var maxOrderDate time.Time

	for _, line := range lines {
		agg, ok := byCustomer[line.CustomerID]
		if !ok {
			agg = &customerAgg{id: line.CustomerID, monetary: decimal.Zero}
			byCustomer[line.CustomerID] = agg
		}

		// One line per order, so counting lines counts distinct orders.
		agg.frequency++
		agg.monetary = agg.monetary.Add(line.Revenue)
		if line.OrderDate.After(agg.lastOrder) {
			agg.lastOrder = line.OrderDate
		}
		if line.OrderDate.After(maxOrderDate) {
			maxOrderDate = line.OrderDate
		}
	}

	refDate := maxOrderDate.AddDate(0, 0, 1)
	if override != nil {
		refDate = *override
	}

	aggs := make([]*customerAgg, 0, len(byCustomer))
	for _, agg := range byCustomer {
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].id < aggs[j].id })

	customers := make([]domain.CustomerRFM, len(aggs))
	for i, agg := range aggs {
		customers[i] = domain.CustomerRFM{
			CustomerID:  agg.id,
			RecencyDays: int(refDate.Sub(agg.lastOrder).Hours() / 24),
			Frequency:   agg.frequency,
			Monetary:    agg.monetary,
		}
	}

	e.score(customers)

	for i := range customers {
		customers[i].Segment = e.segments.Assign(&customers[i])
	}

	return &domain.RFMReport{
		ReferenceDate: refDate,
		Customers:     customers,
		Segments:      summarize(customers),
	}
}

// score assigns quantile tiers 1..tiers per metric with independent
// boundaries. Binning is equal-frequency over ranks; equal values are
// ordered by customer ID first so that ties at a boundary split
// deterministically rather than failing. Recency is inverted: the
// most recent customers get the highest score.
func (e *Engine) score(customers []domain.CustomerRFM) {
	n := len(customers)
	idx := make([]int, n)

	reset := func() {
		for i := range idx {
			idx[i] = i
		}
	}

	assign := func(set func(i, score int), invert bool) {
		for rank, i := range idx {
			tier := rank*e.tiers/n + 1
			if invert {
				tier = e.tiers + 1 - tier
			}
			set(i, tier)
		}
	}

	reset()
	sort.SliceStable(idx, func(a, b int) bool {
		return customers[idx[a]].RecencyDays < customers[idx[b]].RecencyDays
	})
	assign(func(i, score int) { customers[i].RScore = score }, true)

	reset()
	sort.SliceStable(idx, func(a, b int) bool {
		return customers[idx[a]].Frequency < customers[idx[b]].Frequency
	})
	assign(func(i, score int) { customers[i].FScore = score }, false)

	reset()
	sort.SliceStable(idx, func(a, b int) bool {
		return customers[idx[a]].Monetary.Cmp(customers[idx[b]].Monetary) < 0
	})
	assign(func(i, score int) { customers[i].MScore = score }, false)
}

// summarize aggregates RFM rows per segment, ordered by total
// monetary value descending, ties by segment name.
func summarize(customers []domain.CustomerRFM) []domain.SegmentSummary {
	type agg struct {
		count   int
		money   decimal.Decimal
		freq    int
		recency int
	}
	bySegment := make(map[string]*agg)

	for _, c := range customers {
		a, ok := bySegment[c.Segment]
		if !ok {
			a = &agg{money: decimal.Zero}
			bySegment[c.Segment] = a
		}
		a.count++
		a.money = a.money.Add(c.Monetary)
		a.freq += c.Frequency
		a.recency += c.RecencyDays
	}

	summaries := make([]domain.SegmentSummary, 0, len(bySegment))
	for segment, a := range bySegment {
		summaries = append(summaries, domain.SegmentSummary{
			Segment:     segment,
			Customers:   a.count,
			Monetary:    a.money,
			MeanFreq:    float64(a.freq) / float64(a.count),
			MeanRecency: float64(a.recency) / float64(a.count),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		cmp := summaries[i].Monetary.Cmp(summaries[j].Monetary)
		if cmp != 0 {
			return cmp > 0
		}
		return summaries[i].Segment < summaries[j].Segment
	})

	return summaries
}
