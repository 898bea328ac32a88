// Package metrics provides Prometheus instrumentation for the server.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "askpro"

var (
	// BackendLatency tracks backend HTTP exchange latency in seconds.
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_latency_seconds",
			Help:      "Backend request latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend", "operation", "outcome"},
	)

	// BackendRequestsTotal counts backend exchanges by outcome.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of backend requests by outcome.",
		},
		[]string{"backend", "operation", "outcome"}, // outcome: "success" or "error"
	)

	// ToolCallsTotal counts dispatched tool and prompt calls.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of dispatched calls by namespace, name and outcome.",
		},
		[]string{"namespace", "name", "outcome"},
	)

	// ActiveCalls tracks the number of in-flight dispatched calls.
	ActiveCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of currently in-flight dispatched calls.",
		},
	)

	// JobStatusTotal counts background job statuses as observed by this
	// server on enqueue and retrieve.
	JobStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_status_observations_total",
			Help:      "Background job statuses observed on enqueue and retrieve.",
		},
		[]string{"status"},
	)
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// ObserveBackendCall records one backend exchange.
func ObserveBackendCall(backend, operation string, ok bool, d time.Duration) {
	BackendLatency.WithLabelValues(backend, operation, outcome(ok)).Observe(d.Seconds())
	BackendRequestsTotal.WithLabelValues(backend, operation, outcome(ok)).Inc()
}

// ObserveCall records one dispatched call.
func ObserveCall(namespace, name string, ok bool) {
	ToolCallsTotal.WithLabelValues(namespace, name, outcome(ok)).Inc()
}

// ObserveJobStatus records an observed job status.
func ObserveJobStatus(status string) {
	JobStatusTotal.WithLabelValues(status).Inc()
}

// Handler returns the HTTP mux serving /metrics and /healthz.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics: address is empty")
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	}
}
