// Package telemetry records request and backend-call metrics and serves them
// in the Prometheus text exposition format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medadmin/medadmin/internal/platform/backend"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries []float64
	count      int64
	sum        uint64 // math.Float64bits

	mu      sync.Mutex
	buckets []int64
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{boundaries: boundaries, buckets: make([]int64, len(boundaries))}
}

func (h *histogram) observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sum)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&h.sum, old, next) {
			break
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.buckets[i]++
			return
		}
	}
}

func (h *histogram) cumulative() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.buckets))
	var running int64
	for i, c := range h.buckets {
		running += c
		out[i] = running
	}
	return out
}

// series is a set of histograms keyed by their label values.
type series struct {
	mu    sync.RWMutex
	items map[string]*histogram
}

func (s *series) get(key string) *histogram {
	s.mu.RLock()
	h, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.items[key]; !ok {
		h = newHistogram(durationBuckets)
		s.items[key] = h
	}
	return h
}

func (s *series) keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type gauge struct {
	name string
	help string
	read func() int64
}

// Metrics is safe for concurrent use.
type Metrics struct {
	requests series // method|route|status
	backend  series // method|outcome
	active   int64

	mu     sync.RWMutex
	gauges []gauge
}

func New() *Metrics {
	return &Metrics{
		requests: series{items: make(map[string]*histogram)},
		backend:  series{items: make(map[string]*histogram)},
	}
}

// Gauge registers a value read at scrape time.
func (m *Metrics) Gauge(name, help string, read func() int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, gauge{name: name, help: help, read: read})
}

// Middleware times every request by method, route pattern, and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&m.active, -1)
			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			key := c.Request().Method + "|" + route + "|" + strconv.Itoa(status)
			m.requests.get(key).observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveBackend records one backend call. It satisfies backend.Observer.
func (m *Metrics) ObserveBackend(method string, _ int, latency time.Duration, err error) {
	m.backend.get(method + "|" + Outcome(err)).observe(latency.Seconds())
}

// Outcome names the class of a backend call result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, backend.ErrAuthentication):
		return "authentication"
	case errors.Is(err, backend.ErrAuthorizationDenied):
		return "denied"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, backend.ErrMalformedResponse):
		return "malformed"
	default:
		return "network"
	}
}

// Handler serves all metrics at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		writeSeries(&b, "medadmin_http_request_duration_seconds",
			"Duration of HTTP requests in seconds.", &m.requests, []string{"method", "route", "status_code"})

		b.WriteString("# HELP medadmin_http_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE medadmin_http_active_requests gauge\n")
		fmt.Fprintf(&b, "medadmin_http_active_requests %d\n\n", atomic.LoadInt64(&m.active))

		writeSeries(&b, "medadmin_backend_request_duration_seconds",
			"Duration of records backend calls in seconds.", &m.backend, []string{"method", "outcome"})

		m.mu.RLock()
		gauges := append([]gauge(nil), m.gauges...)
		m.mu.RUnlock()
		for _, g := range gauges {
			fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
			fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
			fmt.Fprintf(&b, "%s %d\n\n", g.name, g.read())
		}

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

func writeSeries(b *strings.Builder, name, help string, s *series, labelNames []string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)

	for _, key := range s.keys() {
		values := strings.SplitN(key, "|", len(labelNames))
		if len(values) != len(labelNames) {
			continue
		}
		pairs := make([]string, len(labelNames))
		for i, n := range labelNames {
			pairs[i] = fmt.Sprintf("%s=%q", n, values[i])
		}
		labels := strings.Join(pairs, ",")

		h := s.get(key)
		cum := h.cumulative()
		for i, bound := range h.boundaries {
			fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, bound, cum[i])
		}
		count := atomic.LoadInt64(&h.count)
		fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, count)
		fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, math.Float64frombits(atomic.LoadUint64(&h.sum)))
		fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, count)
	}
	b.WriteByte('\n')
}
