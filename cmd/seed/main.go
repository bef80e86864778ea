// Seed tool for loading an order dataset into the Magpie warehouse.
//
// Usage:
//   go run cmd/seed/main.go -db ./ecommerce.db -csv /path/to/dataset
//   go run cmd/seed/main.go -db ./ecommerce.db -orders 5000
//
// This tool either:
//   1. Ingests the Olist-style CSV files found in a directory, or
//   2. Generates a synthetic dataset of the given size
// and writes the raw tables the analytics pipeline reads.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-retail/magpie/internal/domain"
	"github.com/opensource-retail/magpie/internal/warehouse"
)

func main() {
	dbPath := flag.String("db", "./ecommerce.db", "SQLite database path")
	csvDir := flag.String("csv", "", "Directory with Olist-style CSV files")
	orders := flag.Int("orders", 0, "Number of synthetic orders to generate")
	seed := flag.Int64("seed", 42, "Random seed for synthetic data")
	flag.Parse()

	if *csvDir == "" && *orders <= 0 {
		fmt.Println("Usage: seed -db ./ecommerce.db [-csv /path/to/dataset | -orders 5000]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	wh, err := warehouse.New(domain.WarehouseConfig{
		Driver:     "sqlite",
		SQLitePath: *dbPath,
	})
	if err != nil {
		fmt.Printf("ERROR: Failed to open warehouse: %v\n", err)
		os.Exit(1)
	}
	defer wh.Close()

	ctx := context.Background()
	start := time.Now()

	if *csvDir != "" {
		fmt.Printf("Ingesting CSV dataset from %s...\n", *csvDir)
		if err := ingestCSV(ctx, wh, *csvDir); err != nil {
			fmt.Printf("ERROR: Ingest failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Generating %d synthetic orders (seed %d)...\n", *orders, *seed)
		if err := generate(ctx, wh, *orders, *seed); err != nil {
			fmt.Printf("ERROR: Generation failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("✓ Warehouse seeded in %v: %s\n", time.Since(start).Round(time.Millisecond), *dbPath)
}

// --- CSV ingest ---

// csvFiles maps each raw table to its expected file name.
var csvFiles = map[string]string{
	"orders":       "olist_orders_dataset.csv",
	"items":        "olist_order_items_dataset.csv",
	"payments":     "olist_order_payments_dataset.csv",
	"products":     "olist_products_dataset.csv",
	"customers":    "olist_customers_dataset.csv",
	"translations": "product_category_name_translation.csv",
	"reviews":      "olist_order_reviews_dataset.csv",
}

func ingestCSV(ctx context.Context, wh domain.Warehouse, dir string) error {
	steps := []struct {
		table string
		fn    func(ctx context.Context, wh domain.Warehouse, path string) (int, error)
	}{
		{"customers", ingestCustomers},
		{"orders", ingestOrders},
		{"items", ingestItems},
		{"payments", ingestPayments},
		{"products", ingestProducts},
		{"translations", ingestTranslations},
		{"reviews", ingestReviews},
	}

	for _, step := range steps {
		path := filepath.Join(dir, csvFiles[step.table])
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("  - %-12s skipped (%s not found)\n", step.table, csvFiles[step.table])
			continue
		}
		n, err := step.fn(ctx, wh, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", step.table, err)
		}
		fmt.Printf("  - %-12s %d rows\n", step.table, n)
	}
	return nil
}

// forEachRow streams a CSV file row by row, passing a header-indexed
// accessor to fn. Malformed rows are skipped.
func forEachRow(path string, fn func(get func(col string) string) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		get := func(col string) string {
			i, ok := colIndex[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if err := fn(get); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func parseCSVTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return nil
	}
	return &t
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ingestOrders(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		return wh.SaveOrder(ctx, &domain.Order{
			ID:                    get("order_id"),
			CustomerID:            get("customer_id"),
			Status:                get("order_status"),
			PurchasedAt:           parseCSVTime(get("order_purchase_timestamp")),
			ApprovedAt:            parseCSVTime(get("order_approved_at")),
			DeliveredToCarrierAt:  parseCSVTime(get("order_delivered_carrier_date")),
			DeliveredToCustomerAt: parseCSVTime(get("order_delivered_customer_date")),
			EstimatedDeliveryAt:   parseCSVTime(get("order_estimated_delivery_date")),
		})
	})
}

func ingestItems(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		seq, _ := strconv.Atoi(get("order_item_id"))
		return wh.SaveOrderItem(ctx, &domain.OrderItem{
			OrderID:      get("order_id"),
			Sequence:     seq,
			ProductID:    get("product_id"),
			SellerID:     get("seller_id"),
			Price:        parseMoney(get("price")),
			FreightValue: parseMoney(get("freight_value")),
		})
	})
}

func ingestPayments(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		seq, _ := strconv.Atoi(get("payment_sequential"))
		installments, _ := strconv.Atoi(get("payment_installments"))
		return wh.SavePayment(ctx, &domain.Payment{
			OrderID:      get("order_id"),
			Sequential:   seq,
			Type:         get("payment_type"),
			Installments: installments,
			Value:        parseMoney(get("payment_value")),
		})
	})
}

func ingestProducts(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		return wh.SaveProduct(ctx, &domain.Product{
			ID:       get("product_id"),
			Category: get("product_category_name"),
		})
	})
}

func ingestCustomers(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		return wh.SaveCustomer(ctx, &domain.Customer{
			ID:       get("customer_id"),
			UniqueID: get("customer_unique_id"),
			ZipCode:  get("customer_zip_code_prefix"),
			City:     get("customer_city"),
			State:    get("customer_state"),
		})
	})
}

func ingestTranslations(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		return wh.SaveCategoryTranslation(ctx, &domain.CategoryTranslation{
			Name:    get("product_category_name"),
			English: get("product_category_name_english"),
		})
	})
}

func ingestReviews(ctx context.Context, wh domain.Warehouse, path string) (int, error) {
	return forEachRow(path, func(get func(string) string) error {
		score, _ := strconv.Atoi(get("review_score"))
		return wh.SaveReview(ctx, &domain.Review{
			ID:        get("review_id"),
			OrderID:   get("order_id"),
			Score:     score,
			CreatedAt: parseCSVTime(get("review_creation_date")),
		})
	})
}

// --- synthetic generation ---

var (
	categories = []string{
		"beleza_saude", "informatica_acessorios", "cama_mesa_banho",
		"moveis_decoracao", "esporte_lazer", "relogios_presentes",
		"telefonia", "brinquedos", "automotivo", "eletronicos",
		"papelaria", "pet_shop",
	}
	translations = map[string]string{
		"beleza_saude":           "health_beauty",
		"informatica_acessorios": "computers_accessories",
		"cama_mesa_banho":        "bed_bath_table",
		"moveis_decoracao":       "furniture_decor",
		"esporte_lazer":          "sports_leisure",
		"relogios_presentes":     "watches_gifts",
		"telefonia":              "telephony",
		"brinquedos":             "toys",
		"automotivo":             "auto",
		"eletronicos":            "electronics",
		"papelaria":              "stationery",
	}
	states = []string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "ES"}
)

func generate(ctx context.Context, wh domain.Warehouse, n int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	for name, english := range translations {
		t := &domain.CategoryTranslation{Name: name, English: english}
		if err := wh.SaveCategoryTranslation(ctx, t); err != nil {
			return err
		}
	}

	// A product pool shared across orders
	products := make([]domain.Product, 200)
	for i := range products {
		products[i] = domain.Product{
			ID:       uuid.New().String(),
			Category: categories[rng.Intn(len(categories))],
		}
		if err := wh.SaveProduct(ctx, &products[i]); err != nil {
			return err
		}
	}

	// Repeat customers so RFM has frequency spread
	uniqueCustomers := n/3 + 1
	uniqueIDs := make([]string, uniqueCustomers)
	for i := range uniqueIDs {
		uniqueIDs[i] = uuid.New().String()
	}

	base := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		purchased := base.Add(time.Duration(rng.Intn(540*24)) * time.Hour)
		customer := domain.Customer{
			ID:       uuid.New().String(),
			UniqueID: uniqueIDs[rng.Intn(len(uniqueIDs))],
			ZipCode:  fmt.Sprintf("%05d", rng.Intn(99999)),
			City:     "city-" + strconv.Itoa(rng.Intn(50)),
			State:    states[rng.Intn(len(states))],
		}
		if err := wh.SaveCustomer(ctx, &customer); err != nil {
			return err
		}

		status := "delivered"
		var delivered *time.Time
		switch rng.Intn(10) {
		case 0:
			status = "canceled"
		case 1:
			status = "shipped"
		default:
			d := purchased.Add(time.Duration(2+rng.Intn(20)) * 24 * time.Hour)
			delivered = &d
		}

		order := domain.Order{
			ID:                    uuid.New().String(),
			CustomerID:            customer.ID,
			Status:                status,
			PurchasedAt:           &purchased,
			DeliveredToCustomerAt: delivered,
		}
		if err := wh.SaveOrder(ctx, &order); err != nil {
			return err
		}

		for seq := 1; seq <= 1+rng.Intn(3); seq++ {
			item := domain.OrderItem{
				OrderID:      order.ID,
				Sequence:     seq,
				ProductID:    products[rng.Intn(len(products))].ID,
				SellerID:     uuid.New().String(),
				Price:        decimal.NewFromFloat(float64(5+rng.Intn(495)) + 0.9),
				FreightValue: decimal.NewFromFloat(float64(5 + rng.Intn(45))),
			}
			if err := wh.SaveOrderItem(ctx, &item); err != nil {
				return err
			}
		}

		payment := domain.Payment{
			OrderID:      order.ID,
			Sequential:   1,
			Type:         "credit_card",
			Installments: 1 + rng.Intn(10),
			Value:        decimal.NewFromFloat(float64(10 + rng.Intn(500))),
		}
		if err := wh.SavePayment(ctx, &payment); err != nil {
			return err
		}

		if delivered != nil {
			created := delivered.Add(24 * time.Hour)
			review := domain.Review{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				Score:     1 + rng.Intn(5),
				CreatedAt: &created,
			}
			if err := wh.SaveReview(ctx, &review); err != nil {
				return err
			}
		}
	}

	return nil
}
