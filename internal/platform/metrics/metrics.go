package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"takehome/internal/domain/salary"
)

type Collector struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     prometheus.Histogram
	computations *prometheus.CounterVec
	warnings     *prometheus.CounterVec
	ruleLoads    *prometheus.CounterVec
	rules        *prometheus.GaugeVec
	skippedRows  *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takehome",
			Name:      "http_requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "takehome",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takehome",
			Name:      "computations_total",
			Help:      "Salary computations by pay frequency.",
		}, []string{"frequency"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takehome",
			Name:      "computation_warnings_total",
			Help:      "Warnings attached to salary computations.",
		}, []string{"warning"}),
		ruleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takehome",
			Name:      "rule_book_loads_total",
			Help:      "Rule book loads by outcome.",
		}, []string{"outcome"}),
		rules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "takehome",
			Name:      "rules_loaded",
			Help:      "Rules in the active rule book per category.",
		}, []string{"category"}),
		skippedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "takehome",
			Name:      "rule_rows_skipped",
			Help:      "Malformed rule rows skipped in the last load per category.",
		}, []string{"category"}),
	}
	c.registry.MustRegister(c.requests, c.duration, c.computations, c.warnings, c.ruleLoads, c.rules, c.skippedRows)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.duration.Observe(duration.Seconds())
}

func (c *Collector) ComputationRecorded(comp salary.Computation) {
	c.computations.WithLabelValues(comp.PayFrequency.String()).Inc()
	for _, warning := range comp.Warnings {
		c.warnings.WithLabelValues(warning).Inc()
	}
}

func (c *Collector) RuleBookLoaded(book salary.RuleBook, err error) {
	if err != nil {
		c.ruleLoads.WithLabelValues("error").Inc()
		return
	}
	c.ruleLoads.WithLabelValues("ok").Inc()
	for _, category := range salary.Categories {
		set, _ := book.Set(category)
		c.rules.WithLabelValues(string(category)).Set(float64(set.Len()))
		c.skippedRows.WithLabelValues(string(category)).Set(float64(set.Skipped))
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
