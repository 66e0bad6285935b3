package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

type fakeStats struct {
	accepted, dropped, suppressed uint64
	depth                         int
}

func (f *fakeStats) Accepted() uint64   { return f.accepted }
func (f *fakeStats) Dropped() uint64    { return f.dropped }
func (f *fakeStats) Suppressed() uint64 { return f.suppressed }
func (f *fakeStats) Len() int           { return f.depth }

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestQueueAndDebounceCountersReadLive(t *testing.T) {
	q := &fakeStats{accepted: 32, dropped: 8, depth: 5}
	d := &fakeStats{accepted: 40, suppressed: 12}
	m := New(q, d, []string{"S0", "S1"})

	fams := gather(t, m)
	checks := map[string]float64{
		"led_service_queue_accepted_total":      32,
		"led_service_queue_dropped_total":       8,
		"led_service_debounce_suppressed_total": 12,
		"led_service_debounce_accepted_total":   40,
	}
	for name, want := range checks {
		f, ok := fams[name]
		if !ok {
			t.Errorf("%s not registered", name)
			continue
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if got := fams["led_service_queue_depth"].GetMetric()[0].GetGauge().GetValue(); got != 5 {
		t.Errorf("queue depth = %v, want 5", got)
	}

	q.dropped = 9
	fams = gather(t, m)
	if got := fams["led_service_queue_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 9 {
		t.Errorf("dropped after update = %v, want 9", got)
	}
}

func TestCurrentStateGauge(t *testing.T) {
	m := New(&fakeStats{}, &fakeStats{}, []string{"S0", "S1", "S2"})
	m.SetState("S0")
	m.ObserveTransition("S0", "S2", "press-2")

	values := map[string]float64{}
	for _, metric := range gather(t, m)["led_service_fsm_current_state"].GetMetric() {
		values[metric.GetLabel()[0].GetValue()] = metric.GetGauge().GetValue()
	}
	if values["S2"] != 1 || values["S0"] != 0 || values["S1"] != 0 {
		t.Errorf("current_state = %v, want only S2 set", values)
	}
}

func TestHandlerExposesTransitions(t *testing.T) {
	m := New(&fakeStats{}, &fakeStats{}, []string{"S0", "S1"})
	m.ObserveTransition("S0", "S1", "press-2")
	m.ObserveHookFailure("S1", "do")
	m.ObserveRemotePress()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`led_service_fsm_transitions_total{event="press-2",from="S0",to="S1"} 1`,
		`led_service_fsm_hook_failures_total{hook="do",state="S1"} 1`,
		`led_service_redis_remote_presses_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
