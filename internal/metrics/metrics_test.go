package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordIngestSuccess_IncrementsCounter は取り込み成功カウンタが増加することを検証する。
func TestRecordIngestSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIngestSuccess()
	c.RecordIngestSuccess()

	mf := findMetricFamily(t, reg, "moody_ingest_success_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("ingest_success_total = %v, want 2", val)
	}
}

// TestRecordIngestFailure_LabelsByReason は失敗理由ごとにカウントされることを検証する。
func TestRecordIngestFailure_LabelsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIngestFailure(ReasonValidation)
	c.RecordIngestFailure(ReasonResolutionUnavailable)
	c.RecordIngestFailure(ReasonResolutionUnavailable)

	mf := findMetricFamily(t, reg, "moody_ingest_fail_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		label := m.GetLabel()[0].GetValue()
		val := m.GetCounter().GetValue()
		switch label {
		case ReasonValidation:
			if val != 1 {
				t.Errorf("ingest_fail_total{reason=validation} = %v, want 1", val)
			}
		case ReasonResolutionUnavailable:
			if val != 2 {
				t.Errorf("ingest_fail_total{reason=resolution_unavailable} = %v, want 2", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestRecordResolveLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordResolveLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordResolveLatency(100 * time.Millisecond)
	c.RecordResolveLatency(2 * time.Second)

	h := findMetricFamily(t, reg, "moody_place_resolve_latency_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

func TestPlaceCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPlacesLinked(3)
	c.RecordPlacesLinked(0)
	c.RecordPlaceCreated()
	c.RecordPlaceConflict()
	c.RecordPlaceConflict()

	tests := []struct {
		name string
		want float64
	}{
		{"moody_places_linked_total", 3},
		{"moody_places_created_total", 1},
		{"moody_place_conflicts_total", 2},
	}
	for _, tt := range tests {
		if val := findMetricFamily(t, reg, tt.name).GetMetric()[0].GetCounter().GetValue(); val != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, val, tt.want)
		}
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(201)
	c.RecordHTTPStatus(201)
	c.RecordHTTPStatus(503)

	mf := findMetricFamily(t, reg, "moody_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
}

func TestSetBreakerState_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetBreakerState("places", 2)
	c.SetBreakerState("places", 0)

	m := findMetricFamily(t, reg, "moody_circuit_breaker_state").GetMetric()[0]
	if got := m.GetGauge().GetValue(); got != 0 {
		t.Errorf("breaker_state = %v, want 0", got)
	}
	if got := m.GetLabel()[0].GetValue(); got != "places" {
		t.Errorf("label = %q, want places", got)
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordIngestSuccess()
	c2.RecordIngestSuccess()
	c2.RecordIngestSuccess()

	val1 := findMetricFamily(t, reg1, "moody_ingest_success_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findMetricFamily(t, reg2, "moody_ingest_success_total").GetMetric()[0].GetCounter().GetValue()
	if val1 != 1 {
		t.Errorf("reg1 ingest_success = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 ingest_success = %v, want 2", val2)
	}
}
