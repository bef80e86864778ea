// Package pipeline orchestrates one batch analytics run:
// load -> clean -> join -> derive -> rfm -> render -> export -> persist.
// Stages run strictly in order over in-memory tables; each stage
// consumes its predecessor's output read-only.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-retail/magpie/internal/clean"
	"github.com/opensource-retail/magpie/internal/domain"
	"github.com/opensource-retail/magpie/internal/join"
	"github.com/opensource-retail/magpie/internal/metrics"
	"github.com/opensource-retail/magpie/internal/render"
	"github.com/opensource-retail/magpie/internal/report"
	"github.com/opensource-retail/magpie/internal/rfm"
)

var tracer = otel.Tracer("magpie-pipeline")

// Pipeline wires the analytics stages together.
type Pipeline struct {
	cfg       *domain.Config
	warehouse domain.Warehouse
	cache     domain.Cache
	bus       domain.EventBus

	cleaner   *clean.Cleaner
	joiner    *join.Builder
	deriver   *metrics.Deriver
	rfmEngine *rfm.Engine
	renderer  *render.Renderer
	exporter  *report.Exporter

	refDate *time.Time // RFM reference date override
}

// New assembles a pipeline from configuration and infrastructure.
func New(cfg *domain.Config, wh domain.Warehouse, c domain.Cache, b domain.EventBus) (*Pipeline, error) {
	segments, err := rfm.NewSegmentEngine(cfg.Analytics.SegmentRules)
	if err != nil {
		return nil, fmt.Errorf("failed to build segment engine: %w", err)
	}

	p := &Pipeline{
		cfg:       cfg,
		warehouse: wh,
		cache:     c,
		bus:       b,
		cleaner:   clean.NewCleaner(cfg.Analytics.QualifyingStatuses),
		joiner:    join.NewBuilder(),
		deriver:   metrics.NewDeriver(cfg.Analytics.TopN),
		rfmEngine: rfm.NewEngine(cfg.Analytics.RFMTiers, segments),
		renderer:  render.NewRenderer(cfg.Output.Dir),
		exporter:  report.NewExporter(cfg.Output.Dir),
	}

	if cfg.Analytics.ReferenceDate != "" {
		t, err := time.Parse(time.RFC3339, cfg.Analytics.ReferenceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid reference date %q: %w", cfg.Analytics.ReferenceDate, err)
		}
		t = t.UTC()
		p.refDate = &t
	}

	return p, nil
}

// Run executes one full pass and returns the run summary.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", summary.RunID)),
	)
	defer span.End()

	p.publish(ctx, domain.TopicRunStarted, map[string]string{"runId": summary.RunID})
	slog.Info("pipeline run started", "run_id", summary.RunID)

	var (
		dataset *domain.Dataset
		lines   []domain.OrderLine
		result  *domain.AnalyticsReport
	)

	err := p.stage(ctx, summary, "load", func(ctx context.Context) (int, error) {
		var err error
		dataset, err = p.load(ctx)
		if err != nil {
			return 0, err
		}
		return len(dataset.Orders), nil
	})
	if err != nil {
		return p.fail(ctx, summary, err)
	}

	err = p.stage(ctx, summary, "clean", func(ctx context.Context) (int, error) {
		var stats domain.CleanStats
		dataset, stats = p.cleaner.Clean(dataset)
		summary.Dropped = stats
		return len(dataset.Orders), nil
	})
	if err != nil {
		return p.fail(ctx, summary, err)
	}

	err = p.stage(ctx, summary, "join", func(ctx context.Context) (int, error) {
		lines, summary.Uncategorized = p.joiner.Build(dataset)
		summary.OrderLines = len(lines)
		return len(lines), nil
	})
	if err != nil {
		return p.fail(ctx, summary, err)
	}

	summary.Fingerprint = fingerprint(lines)

	// An unchanged dataset re-uses the memoized report.
	if cached, err := p.cache.GetReport(ctx, summary.Fingerprint); err == nil && cached != nil {
		slog.Info("analytics report served from cache",
			"run_id", summary.RunID,
			"fingerprint", summary.Fingerprint,
		)
		result = cached
		summary.CacheHit = true
	} else {
		err = p.stage(ctx, summary, "derive", func(ctx context.Context) (int, error) {
			result = &domain.AnalyticsReport{
				Fingerprint: summary.Fingerprint,
				Metrics:     p.deriver.Derive(lines),
			}
			return len(result.Metrics.Monthly), nil
		})
		if err != nil {
			return p.fail(ctx, summary, err)
		}

		err = p.stage(ctx, summary, "rfm", func(ctx context.Context) (int, error) {
			result.RFM = p.rfmEngine.Compute(lines, p.refDate)
			return len(result.RFM.Customers), nil
		})
		if err != nil {
			return p.fail(ctx, summary, err)
		}

		if err := p.cache.SetReport(ctx, summary.Fingerprint, result, p.cfg.Cache.LocalTTL); err != nil {
			slog.Warn("failed to cache analytics report", "error", err)
		}
	}

	summary.Customers = len(result.RFM.Customers)

	if p.cfg.Output.Charts {
		err = p.stage(ctx, summary, "render", func(ctx context.Context) (int, error) {
			paths, err := p.renderer.RenderAll(result, lines)
			summary.Artifacts = append(summary.Artifacts, paths...)
			return len(paths), err
		})
		if err != nil {
			return p.fail(ctx, summary, err)
		}
	}

	err = p.stage(ctx, summary, "export", func(ctx context.Context) (int, error) {
		paths, err := p.exporter.Export(result, lines, p.cfg.Output.CSV)
		summary.Artifacts = append(summary.Artifacts, paths...)
		return len(paths), err
	})
	if err != nil {
		return p.fail(ctx, summary, err)
	}

	err = p.stage(ctx, summary, "persist", func(ctx context.Context) (int, error) {
		if err := p.warehouse.SaveMonthlyKPIs(ctx, summary.RunID, result.Metrics.Monthly); err != nil {
			return 0, err
		}
		if err := p.warehouse.SaveCustomerRFM(ctx, summary.RunID, result.RFM.Customers); err != nil {
			return 0, err
		}
		return len(result.Metrics.Monthly) + len(result.RFM.Customers), nil
	})
	if err != nil {
		return p.fail(ctx, summary, err)
	}

	summary.FinishedAt = time.Now().UTC()

	if err := p.warehouse.SaveRunSummary(ctx, summary); err != nil {
		slog.Warn("failed to persist run summary", "error", err)
	}

	p.publish(ctx, domain.TopicRunCompleted, summary)
	slog.Info("pipeline run completed",
		"run_id", summary.RunID,
		"order_lines", summary.OrderLines,
		"customers", summary.Customers,
		"dropped_rows", summary.Dropped.Total(),
		"cache_hit", summary.CacheHit,
		"duration_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	)

	return summary, nil
}

// Report recomputes the analytics report without side effects, for
// callers that want the tables rather than the artifacts.
func (p *Pipeline) Report(ctx context.Context) (*domain.AnalyticsReport, []domain.OrderLine, error) {
	dataset, err := p.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	dataset, _ = p.cleaner.Clean(dataset)
	lines, _ := p.joiner.Build(dataset)

	result := &domain.AnalyticsReport{
		Fingerprint: fingerprint(lines),
		Metrics:     p.deriver.Derive(lines),
		RFM:         p.rfmEngine.Compute(lines, p.refDate),
	}
	return result, lines, nil
}

func (p *Pipeline) load(ctx context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	var err error

	if ds.Orders, err = p.warehouse.LoadOrders(ctx); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if ds.Items, err = p.warehouse.LoadOrderItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if ds.Payments, err = p.warehouse.LoadPayments(ctx); err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	if ds.Products, err = p.warehouse.LoadProducts(ctx); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if ds.Customers, err = p.warehouse.LoadCustomers(ctx); err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	if ds.Translations, err = p.warehouse.LoadCategoryTranslations(ctx); err != nil {
		return nil, fmt.Errorf("failed to load category translations: %w", err)
	}
	if ds.Reviews, err = p.warehouse.LoadReviews(ctx); err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	return ds, nil
}

// stage runs one pipeline stage with tracing, timing and a progress
// event.
func (p *Pipeline) stage(ctx context.Context, summary *domain.RunSummary, name string, fn func(ctx context.Context) (int, error)) error {
	stageCtx, span := tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	rows, err := fn(stageCtx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s stage failed: %w", name, err)
	}

	timing := domain.StageTiming{
		Stage:      name,
		DurationMs: time.Since(start).Milliseconds(),
		Rows:       rows,
	}
	summary.Stages = append(summary.Stages, timing)

	span.SetAttributes(
		attribute.Int("stage.rows", rows),
		attribute.Int64("stage.duration_ms", timing.DurationMs),
	)

	p.publish(stageCtx, domain.TopicStageCompleted, domain.StageEvent{
		RunID:      summary.RunID,
		Stage:      name,
		DurationMs: timing.DurationMs,
		Rows:       rows,
	})

	slog.Debug("stage completed",
		"run_id", summary.RunID,
		"stage", name,
		"rows", rows,
		"duration_ms", timing.DurationMs,
	)

	return nil
}

func (p *Pipeline) fail(ctx context.Context, summary *domain.RunSummary, err error) (*domain.RunSummary, error) {
	summary.FinishedAt = time.Now().UTC()
	p.publish(ctx, domain.TopicRunFailed, map[string]string{
		"runId": summary.RunID,
		"error": err.Error(),
	})
	return summary, err
}

func (p *Pipeline) publish(ctx context.Context, topic string, payload any) {
	if p.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, topic, data); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// fingerprint identifies a cleaned dataset by its joined shape: line
// count, latest order timestamp, and the order ID stream.
func fingerprint(lines []domain.OrderLine) string {
	h := sha256.New()
	var latest int64
	for _, line := range lines {
		h.Write([]byte(line.OrderID))
		h.Write([]byte(line.Revenue.String()))
		if ts := line.OrderDate.Unix(); ts > latest {
			latest = ts
		}
	}
	fmt.Fprintf(h, "%d:%d", len(lines), latest)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
