package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m := New()
	m.Fetched(30, 25)
	m.Fetched(15, 15)
	m.FetchFailed("unavailable")
	m.Rendered("stream", nil)
	m.Rendered("stream", errors.New("boom"))
	m.Window(40, 45)
	m.CycleDone(time.Now())

	if got := testutil.ToFloat64(m.eventsFetched); got != 45 {
		t.Errorf("fetched = %v, want 45", got)
	}
	if got := testutil.ToFloat64(m.eventsAdded); got != 40 {
		t.Errorf("added = %v, want 40", got)
	}
	if got := testutil.ToFloat64(m.fetchFailures.WithLabelValues("unavailable")); got != 1 {
		t.Errorf("failures = %v", got)
	}
	if got := testutil.ToFloat64(m.renders.WithLabelValues("stream")); got != 2 {
		t.Errorf("renders = %v", got)
	}
	if got := testutil.ToFloat64(m.renderErrors.WithLabelValues("stream")); got != 1 {
		t.Errorf("render errors = %v", got)
	}
	if got := testutil.ToFloat64(m.seenIDs); got != 45 {
		t.Errorf("seen = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Fetched(1, 1)
	m.FetchFailed("x")
	m.Rendered("stream", nil)
	m.Window(1, 1)
	m.CycleDone(time.Now())
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestServerEndpoints(t *testing.T) {
	m := New()
	m.Fetched(3, 2)
	srv := httptest.NewServer(NewServer(":0", m).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "hubbub_events_added_total 2") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}

	resp, err = srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}
