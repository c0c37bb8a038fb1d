package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	salesRecorded       metric.Int64Counter
	salesEdited         metric.Int64Counter
	salesDeleted        metric.Int64Counter
	commissionAmount    metric.Int64Counter
	agentPromotions     metric.Int64Counter
	consistencyFailures metric.Int64Counter
	loginAttempts       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "realtyledger"
	}
	meter := provider.Meter(name)

	salesRecorded, err := meter.Int64Counter("realtyledger_sales_recorded_total")
	if err != nil {
		return nil, err
	}
	salesEdited, err := meter.Int64Counter("realtyledger_sales_edited_total")
	if err != nil {
		return nil, err
	}
	salesDeleted, err := meter.Int64Counter("realtyledger_sales_deleted_total")
	if err != nil {
		return nil, err
	}
	commissionAmount, err := meter.Int64Counter("realtyledger_commission_amount_total")
	if err != nil {
		return nil, err
	}
	agentPromotions, err := meter.Int64Counter("realtyledger_agent_promotions_total")
	if err != nil {
		return nil, err
	}
	consistencyFailures, err := meter.Int64Counter("realtyledger_ledger_consistency_failures_total")
	if err != nil {
		return nil, err
	}
	loginAttempts, err := meter.Int64Counter("realtyledger_login_attempts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		salesRecorded:       salesRecorded,
		salesEdited:         salesEdited,
		salesDeleted:        salesDeleted,
		commissionAmount:    commissionAmount,
		agentPromotions:     agentPromotions,
		consistencyFailures: consistencyFailures,
		loginAttempts:       loginAttempts,
	}, nil
}

// RecordSale counts a newly recorded sale and its commission split.
func (m *Metrics) RecordSale(ctx context.Context, status string, agentAmount, orgAmount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.salesRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.addCommission(ctx, agentAmount, orgAmount)
}

// RecordSaleEdited counts sale edits.
func (m *Metrics) RecordSaleEdited(ctx context.Context, status string, reassigned bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("status", strings.TrimSpace(status)),
		attribute.Bool("reassigned", reassigned),
	)
	m.salesEdited.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSaleDeleted counts sale deletions. orphan marks sales whose agent no longer exists.
func (m *Metrics) RecordSaleDeleted(ctx context.Context, orphan bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("orphan", orphan))
	m.salesDeleted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPromotion counts tier promotions.
func (m *Metrics) RecordPromotion(ctx context.Context, level string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("level", strings.TrimSpace(level)))
	m.agentPromotions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConsistencyFailure counts ledger operations that rolled back after a partial write.
func (m *Metrics) RecordConsistencyFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.consistencyFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLogin counts login attempts by role and outcome.
func (m *Metrics) RecordLogin(ctx context.Context, role, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("role", strings.TrimSpace(role)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) addCommission(ctx context.Context, agentAmount, orgAmount int64) {
	if agentAmount > 0 {
		m.commissionAmount.Add(ctx, agentAmount, metric.WithAttributes(attribute.String("party", "agent")))
	}
	if orgAmount > 0 {
		m.commissionAmount.Add(ctx, orgAmount, metric.WithAttributes(attribute.String("party", "organization")))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"status":      {},
	"reassigned":  {},
	"orphan":      {},
	"level":       {},
	"operation":   {},
	"role":        {},
	"outcome":     {},
	"party":       {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
