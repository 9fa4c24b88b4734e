// Package metrics exposes Prometheus instrumentation for the smoothing and
// trajectory stages. A nil *Collector is valid and records nothing, so
// library code never has to check whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/speedfield/internal/monitoring"
)

const namespace = "speedfield"

// Collector owns a private registry and the pipeline metrics.
type Collector struct {
	registry *prometheus.Registry

	SmoothedPoints          prometheus.Counter
	RegimeFallbacks         prometheus.Counter
	Trajectories            *prometheus.CounterVec // label: status
	TrajectorySamples       prometheus.Counter
	UndefinedInterpolations prometheus.Counter
	SmoothDuration          prometheus.Histogram
	FleetDuration           prometheus.Histogram
	BuildInfo               *prometheus.GaugeVec
}

// NewCollector creates a registry with runtime and process collectors plus
// the pipeline metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{registry: reg}
	c.SmoothedPoints = c.newCounter("smoothed_points_total", "Grid points passed through the regime-blending filter.")
	c.RegimeFallbacks = c.newCounter("regime_fallbacks_total", "Grid points whose kernel box held no usable observations.")
	c.TrajectorySamples = c.newCounter("trajectory_samples_total", "Samples appended by the trajectory integrator.")
	c.UndefinedInterpolations = c.newCounter("undefined_interpolations_total", "Local interpolations that produced no estimate.")

	c.Trajectories = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trajectories_total",
		Help:      "Virtual trajectories generated, by terminal status.",
	}, []string{"status"})
	reg.MustRegister(c.Trajectories)

	c.SmoothDuration = c.newHistogram("smooth_duration_seconds", "Wall time of a full field smoothing pass.")
	c.FleetDuration = c.newHistogram("fleet_duration_seconds", "Wall time of a fleet generation pass.")

	c.BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information for the binary.",
	}, []string{"version", "git_sha"})
	reg.MustRegister(c.BuildInfo)
	return c
}

func (c *Collector) newCounter(name, help string) prometheus.Counter {
	ctr := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	c.registry.MustRegister(ctr)
	return ctr
}

func (c *Collector) newHistogram(name, help string) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})
	c.registry.MustRegister(h)
	return h
}

// Registry returns the underlying registry, for tests and custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// SetBuildInfo records the running version.
func (c *Collector) SetBuildInfo(version, gitSHA string) {
	if c == nil {
		return
	}
	c.BuildInfo.WithLabelValues(version, gitSHA).Set(1)
}

// ObserveSmoothing records one completed smoothing pass.
func (c *Collector) ObserveSmoothing(points, fallbacks int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.SmoothedPoints.Add(float64(points))
	c.RegimeFallbacks.Add(float64(fallbacks))
	c.SmoothDuration.Observe(elapsed.Seconds())
}

// ObserveTrajectory records one finished vehicle.
func (c *Collector) ObserveTrajectory(status string, samples int, undefined bool) {
	if c == nil {
		return
	}
	c.Trajectories.WithLabelValues(status).Inc()
	c.TrajectorySamples.Add(float64(samples))
	if undefined {
		c.UndefinedInterpolations.Inc()
	}
}

// ObserveFleet records one completed fleet pass.
func (c *Collector) ObserveFleet(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.FleetDuration.Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. The returned function
// shuts the server down.
func (c *Collector) Serve(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("metrics server error: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			monitoring.Logf("failed to shut down metrics server: %v", err)
		}
	}
}
