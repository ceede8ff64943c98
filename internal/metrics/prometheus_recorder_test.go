package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("codeblocks", 150*time.Millisecond)
	pr.ObserveCompileDuration(500 * time.Millisecond)
	pr.IncCompileOutcome(OutcomeSuccess)
	pr.IncCacheResult("compiled", true)
	pr.SetCacheBytes("compiled", 1024)
	pr.SetQueueDepth(2, 1)
	pr.IncEmbedResult("youtube", false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncCompileOutcome(OutcomeInvalid)

	srv := httptest.NewServer(pr.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `quire_compile_outcomes_total{outcome="invalid_frontmatter"} 1`) {
		t.Errorf("scrape missing outcome counter:\n%s", body)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("x", time.Second)
	pr.IncCompileOutcome(OutcomeFailed)
	if _, ok := OrNoop(nil).(NoopRecorder); !ok {
		t.Error("OrNoop(nil) should return NoopRecorder")
	}
}
