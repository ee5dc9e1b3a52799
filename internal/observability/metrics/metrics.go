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

// Metrics holds the billing engine's domain instruments. A nil *Metrics records nothing.
type Metrics struct {
	invoicesCreated  metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	readingsUpserted metric.Int64Counter
	leaseTransitions metric.Int64Counter
	billingConflicts metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
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

// New creates the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "leasehold"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.invoicesCreated, err = meter.Int64Counter("leasehold_invoices_created_total"); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = meter.Int64Counter("leasehold_payments_recorded_total"); err != nil {
		return nil, err
	}
	if m.readingsUpserted, err = meter.Int64Counter("leasehold_meter_readings_upserted_total"); err != nil {
		return nil, err
	}
	if m.leaseTransitions, err = meter.Int64Counter("leasehold_lease_transitions_total"); err != nil {
		return nil, err
	}
	if m.billingConflicts, err = meter.Int64Counter("leasehold_billing_conflicts_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordInvoiceCreated counts a generated invoice by payment status.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

// RecordPayment counts a recorded payment by operation (create, update, delete).
func (m *Metrics) RecordPayment(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("operation", operation))...))
}

// RecordReadingUpserted counts meter reading writes by utility kind and whether the row was new.
func (m *Metrics) RecordReadingUpserted(ctx context.Context, utilityKind string, inserted bool) {
	if m == nil {
		return
	}
	m.readingsUpserted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("utility_kind", utilityKind),
		attribute.Bool("inserted", inserted),
	)...))
}

// RecordLeaseTransition counts lease writes by operation and resulting status.
func (m *Metrics) RecordLeaseTransition(ctx context.Context, operation, status string) {
	if m == nil {
		return
	}
	m.leaseTransitions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)...))
}

// RecordConflict counts rejected duplicate writes by resource.
func (m *Metrics) RecordConflict(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	m.billingConflicts.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("resource", resource))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"status":       {},
	"operation":    {},
	"utility_kind": {},
	"inserted":     {},
	"resource":     {},
}

// FilterAttributes strips labels that would explode cardinality, such as ids.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
