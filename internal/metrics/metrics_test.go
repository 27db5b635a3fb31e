package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("GET", "/cart", 200, 15*time.Millisecond)
	m.ObserveRemote("carts.get", 404, time.Millisecond)
	m.ObserveRemote("carts.get", 0, time.Millisecond)
	m.CountCartOp("add_item", nil)
	m.CountCartOp("add_item", errors.New("boom"))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/cart", "200")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RemoteCalls.WithLabelValues("carts.get", "404")); got != 1 {
		t.Errorf("remote_requests_total{404} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RemoteCalls.WithLabelValues("carts.get", "error")); got != 1 {
		t.Errorf("remote_requests_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CartOps.WithLabelValues("add_item", "error")); got != 1 {
		t.Errorf("cart_operations_total{error} = %v, want 1", got)
	}
}

func TestNew_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.CountCartOp("get_cart", nil)
	if got := testutil.ToFloat64(b.CartOps.WithLabelValues("get_cart", "ok")); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Second)
	m.ObserveRemote("x", 200, time.Second)
	m.CountCartOp("x", nil)
	m.TrackInFlight()()
}

func TestTrackInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())
	done := m.TrackInFlight()
	if got := testutil.ToFloat64(m.InFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}
