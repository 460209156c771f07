package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/staffing-api/internal/core/staffing"
	"github.com/ogurasousui/staffing-api/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ staffing.Recorder = (*Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.OperationCompleted("add_employee", "success")
	m.OperationCompleted("add_employee", "success")
	m.OperationCompleted("add_employee", "compensated")
	m.CompensationCompleted("deleted")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_employee", "success")); got != 2 {
		t.Fatalf("expected 2 successful operations, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("add_employee", "compensated")); got != 1 {
		t.Fatalf("expected 1 compensated operation, got %v", got)
	}
	if got := testutil.ToFloat64(m.compensations.WithLabelValues("deleted")); got != 1 {
		t.Fatalf("expected 1 compensation, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveHTTP("/employees", http.MethodPost, http.StatusCreated, 15*time.Millisecond)
	m.OperationCompleted("remove_employee", "rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`staffing_http_request_duration_seconds_count{method="POST",route="/employees",status="201"} 1`,
		`staffing_operations_total{operation="remove_employee",outcome="rejected"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected exposition to contain %q", want)
		}
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := InitTracing(context.Background(), config.TelemetryConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("InitTracing returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestNewTracerProvider_Exports(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := newTracerProvider(config.TelemetryConfig{ServiceName: "staffing-api", SampleRatio: 1}, exporter)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush returned error: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "op" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
