package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"fuzzswarm/internal/stats"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scrapeFamilies serves the registry over HTTP and decodes the scrape,
// the same round trip a real Prometheus would make.
func scrapeFamilies(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	srv := httptest.NewServer(NewServer("", reg, newTestLogger()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scraping metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", resp.StatusCode)
	}

	decoder := expfmt.NewDecoder(resp.Body, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)
	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decoding metric family: %v", err)
		}
		families[mf.GetName()] = &mf
	}
	return families
}

// gaugeValue returns the value of a single-sample gauge family.
func gaugeValue(t *testing.T, families map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf, ok := families[name]
	if !ok {
		t.Fatalf("metric family %q not exported", name)
	}
	if len(mf.Metric) != 1 {
		t.Fatalf("family %q has %d samples, want 1", name, len(mf.Metric))
	}
	return mf.Metric[0].GetGauge().GetValue()
}

func TestCollector_ExportsRunInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollectorWithRegistry(CollectorConfig{
		Version:   "test",
		Target:    "fuzz_target_1",
		Sanitizer: "address",
		Jobs:      4,
	}, reg)

	families := scrapeFamilies(t, reg)

	if got := gaugeValue(t, families, "fuzzswarm_target_workers"); got != 4 {
		t.Errorf("target workers = %v, want 4", got)
	}

	info, ok := families["fuzzswarm_info"]
	if !ok {
		t.Fatal("fuzzswarm_info not exported")
	}
	labels := map[string]string{}
	for _, lp := range info.Metric[0].Label {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["target"] != "fuzz_target_1" || labels["sanitizer"] != "address" {
		t.Errorf("info labels = %v", labels)
	}
}

func TestCollector_UpdateFromSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{Target: "t", Jobs: 2}, reg)

	c.Update(stats.Snapshot{
		ActiveWorkers: 2,
		StdoutLines:   10,
		StderrLines:   3,
		TotalBytes:    640,
		LinesPerSec:   13,
	})

	families := scrapeFamilies(t, reg)

	if got := gaugeValue(t, families, "fuzzswarm_active_workers"); got != 2 {
		t.Errorf("active workers = %v, want 2", got)
	}
	if got := gaugeValue(t, families, "fuzzswarm_output_lines_per_second"); got != 13 {
		t.Errorf("lines per second = %v, want 13", got)
	}

	lines, ok := families["fuzzswarm_output_lines_total"]
	if !ok {
		t.Fatal("fuzzswarm_output_lines_total not exported")
	}
	byStream := map[string]float64{}
	for _, m := range lines.Metric {
		for _, lp := range m.Label {
			if lp.GetName() == "stream" {
				byStream[lp.GetValue()] += m.GetCounter().GetValue()
			}
		}
	}
	// Package-level counters accumulate across tests; the deltas from
	// this Update must be present at minimum.
	if byStream["stdout"] < 10 {
		t.Errorf("stdout lines counter = %v, want >= 10", byStream["stdout"])
	}
	if byStream["stderr"] < 3 {
		t.Errorf("stderr lines counter = %v, want >= 3", byStream["stderr"])
	}
}

func TestCollector_UpdateIsDeltaDriven(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{Target: "t", Jobs: 1}, reg)

	snap := stats.Snapshot{StdoutLines: 100, StderrLines: 0}
	c.Update(snap)
	before := scrapeFamilies(t, reg)
	// Re-publishing the same cumulative totals must not double-count.
	c.Update(snap)
	after := scrapeFamilies(t, reg)

	get := func(fams map[string]*dto.MetricFamily) float64 {
		var total float64
		if mf, ok := fams["fuzzswarm_output_lines_total"]; ok {
			for _, m := range mf.Metric {
				total += m.GetCounter().GetValue()
			}
		}
		return total
	}
	if get(before) != get(after) {
		t.Errorf("repeated Update changed counter: %v -> %v", get(before), get(after))
	}
}

func TestCollector_ExitCategories(t *testing.T) {
	testCases := []struct {
		code int
		want string
	}{
		{0, "success"},
		{1, "crash"},
		{77, "crash"},
		{137, "signal"},
	}
	for _, tc := range testCases {
		if got := exitCategory(tc.code); got != tc.want {
			t.Errorf("exitCategory(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
