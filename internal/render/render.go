// Package render turns derived tables into static SVG charts.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	svg "github.com/ajstarks/svgo"
	"github.com/montanaflynn/stats"

	"github.com/opensource-retail/magpie/internal/domain"
)

const (
	chartWidth  = 960
	chartHeight = 480

	marginLeft   = 60
	marginRight  = 20
	marginTop    = 50
	marginBottom = 70
)

// Renderer writes chart files into an output directory.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// RenderAll produces the full chart set and returns the written file
// paths. Charts over empty tables are skipped, not errors.
func (r *Renderer) RenderAll(report *domain.AnalyticsReport, lines []domain.OrderLine) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string

	if len(report.Metrics.Monthly) > 0 {
		path, err := r.MonthlyRevenue(report.Metrics.Monthly)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if len(report.Metrics.Seasonality) > 0 {
		path, err := r.Seasonality(report.Metrics.Seasonality)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if len(report.RFM.Segments) > 0 {
		path, err := r.SegmentRevenue(report.RFM.Segments)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if path, err := r.DeliveryHistogram(lines); err != nil {
		return paths, err
	} else if path != "" {
		paths = append(paths, path)
	}

	return paths, nil
}

// MonthlyRevenue renders the monthly revenue bar chart.
func (r *Renderer) MonthlyRevenue(monthly []domain.MonthlyKPI) (string, error) {
	labels := make([]string, len(monthly))
	values := make([]float64, len(monthly))
	for i, kpi := range monthly {
		labels[i] = fmt.Sprintf("%04d-%02d", kpi.Year, kpi.Month)
		values[i] = kpi.Revenue.InexactFloat64()
	}

	path := filepath.Join(r.dir, "monthly_revenue.svg")
	return path, r.barChart(path, "Monthly Revenue", labels, values)
}

// Seasonality renders average revenue per calendar month.
func (r *Renderer) Seasonality(points []domain.SeasonalityPoint) (string, error) {
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = fmt.Sprintf("%02d", p.Month)
		values[i] = p.AvgRevenue.InexactFloat64()
	}

	path := filepath.Join(r.dir, "seasonality.svg")
	return path, r.barChart(path, "Revenue Seasonality by Month", labels, values)
}

// SegmentRevenue renders total revenue per customer segment.
func (r *Renderer) SegmentRevenue(segments []domain.SegmentSummary) (string, error) {
	labels := make([]string, len(segments))
	values := make([]float64, len(segments))
	for i, s := range segments {
		labels[i] = s.Segment
		values[i] = s.Monetary.InexactFloat64()
	}

	path := filepath.Join(r.dir, "segment_revenue.svg")
	return path, r.barChart(path, "Revenue by RFM Segment", labels, values)
}

// DeliveryHistogram renders the delivery-time distribution over
// delivered lines, 30 bins. Returns "" when nothing was delivered.
func (r *Renderer) DeliveryHistogram(lines []domain.OrderLine) (string, error) {
	var days []float64
	for _, line := range lines {
		if line.DeliveryTime != nil {
			days = append(days, float64(*line.DeliveryTime))
		}
	}
	if len(days) == 0 {
		return "", nil
	}

	minDays, _ := stats.Min(days)
	maxDays, _ := stats.Max(days)

	const bins = 30
	width := (maxDays - minDays) / bins
	if width == 0 {
		width = 1
	}

	counts := make([]float64, bins)
	labels := make([]string, bins)
	for _, d := range days {
		idx := int((d - minDays) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", minDays+float64(i)*width)
	}

	path := filepath.Join(r.dir, "delivery_time.svg")
	return path, r.barChart(path, "Delivery Time Distribution (days)", labels, counts)
}

// barChart draws a plain vertical bar chart.
func (r *Renderer) barChart(path, title string, labels []string, values []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer file.Close()

	canvas := svg.New(file)
	canvas.Start(chartWidth, chartHeight)
	canvas.Rect(0, 0, chartWidth, chartHeight, "fill:white")
	canvas.Text(chartWidth/2, 30, title, "text-anchor:middle;font-size:18px;fill:#333")

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	plotWidth := chartWidth - marginLeft - marginRight
	plotHeight := chartHeight - marginTop - marginBottom

	// Axes
	canvas.Line(marginLeft, marginTop, marginLeft, marginTop+plotHeight, "stroke:#333;stroke-width:1")
	canvas.Line(marginLeft, marginTop+plotHeight, marginLeft+plotWidth, marginTop+plotHeight, "stroke:#333;stroke-width:1")
	canvas.Text(marginLeft-8, marginTop+6, fmt.Sprintf("%.0f", maxVal), "text-anchor:end;font-size:10px;fill:#333")
	canvas.Text(marginLeft-8, marginTop+plotHeight, "0", "text-anchor:end;font-size:10px;fill:#333")

	n := len(values)
	if n == 0 {
		canvas.End()
		return nil
	}

	slot := plotWidth / n
	barWidth := slot * 3 / 4
	if barWidth < 1 {
		barWidth = 1
	}

	// Thin out labels when bars get dense
	labelEvery := 1
	if n > 24 {
		labelEvery = n / 24
	}

	for i, v := range values {
		barHeight := int(float64(plotHeight) * v / maxVal)
		x := marginLeft + i*slot + (slot-barWidth)/2
		y := marginTop + plotHeight - barHeight

		canvas.Rect(x, y, barWidth, barHeight, "fill:#4878a8")

		if i%labelEvery == 0 {
			lx := x + barWidth/2
			ly := marginTop + plotHeight + 14
			canvas.Text(lx, ly, labels[i],
				fmt.Sprintf("text-anchor:end;font-size:10px;fill:#333;transform:rotate(-45,%d,%d)", lx, ly))
		}
	}

	canvas.End()
	return nil
}
