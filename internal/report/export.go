// Package report exports derived tables as JSON and CSV artifacts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opensource-retail/magpie/internal/domain"
)

// Exporter writes export files into an output directory.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// ExportJSON writes data as indented JSON.
func ExportJSON(filename string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	return nil
}

// TimestampedFilename builds a unique artifact name under baseDir.
func TimestampedFilename(baseDir, name, ext string) string {
	t := time.Now().Format("20060102_150405")
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.%s", name, t, ext))
}

// Export writes the analytics report JSON plus CSV dumps of the
// derived tables. Returns the written file paths.
func (e *Exporter) Export(analytics *domain.AnalyticsReport, lines []domain.OrderLine, withCSV bool) ([]string, error) {
	var paths []string

	jsonPath := TimestampedFilename(e.dir, "analytics", "json")
	if err := ExportJSON(jsonPath, analytics); err != nil {
		return paths, err
	}
	paths = append(paths, jsonPath)

	if !withCSV {
		return paths, nil
	}

	lineCSV := filepath.Join(e.dir, "order_lines.csv")
	if err := e.exportOrderLines(lineCSV, lines); err != nil {
		return paths, err
	}
	paths = append(paths, lineCSV)

	monthlyCSV := filepath.Join(e.dir, "monthly_kpi.csv")
	if err := e.exportMonthlyKPI(monthlyCSV, analytics.Metrics.Monthly); err != nil {
		return paths, err
	}
	paths = append(paths, monthlyCSV)

	rfmCSV := filepath.Join(e.dir, "customer_rfm.csv")
	if err := e.exportCustomerRFM(rfmCSV, analytics.RFM.Customers); err != nil {
		return paths, err
	}
	paths = append(paths, rfmCSV)

	return paths, nil
}

func (e *Exporter) exportOrderLines(path string, lines []domain.OrderLine) error {
	return e.writeCSV(path,
		[]string{"order_id", "customer_id", "state", "order_date", "price", "freight_value", "revenue", "category", "delivery_time", "month", "year"},
		len(lines),
		func(i int) []string {
			l := lines[i]
			return []string{
				l.OrderID, l.CustomerID, l.State,
				l.OrderDate.Format(time.RFC3339),
				l.Price.String(), l.FreightValue.String(), l.Revenue.String(),
				l.Category,
				formatIntPtr(l.DeliveryTime),
				strconv.Itoa(l.Month), strconv.Itoa(l.Year),
			}
		})
}

func (e *Exporter) exportMonthlyKPI(path string, kpis []domain.MonthlyKPI) error {
	return e.writeCSV(path,
		[]string{"year", "month", "order_count", "revenue", "mom_pct", "yoy_pct", "rolling_3m"},
		len(kpis),
		func(i int) []string {
			k := kpis[i]
			rolling := ""
			if k.Rolling3M != nil {
				rolling = k.Rolling3M.String()
			}
			return []string{
				strconv.Itoa(k.Year), strconv.Itoa(k.Month),
				strconv.Itoa(k.OrderCount), k.Revenue.String(),
				formatFloatPtr(k.MoMPct), formatFloatPtr(k.YoYPct), rolling,
			}
		})
}

func (e *Exporter) exportCustomerRFM(path string, customers []domain.CustomerRFM) error {
	return e.writeCSV(path,
		[]string{"customer_id", "recency_days", "frequency", "monetary", "r_score", "f_score", "m_score", "segment"},
		len(customers),
		func(i int) []string {
			c := customers[i]
			return []string{
				c.CustomerID,
				strconv.Itoa(c.RecencyDays), strconv.Itoa(c.Frequency), c.Monetary.String(),
				strconv.Itoa(c.RScore), strconv.Itoa(c.FScore), strconv.Itoa(c.MScore),
				c.Segment,
			}
		})
}

func (e *Exporter) writeCSV(path string, header []string, rows int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
