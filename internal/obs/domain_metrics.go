package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentsRenderedTotal counts quote document renders by format and outcome.
	DocumentsRenderedTotal *prometheus.CounterVec
	// DocumentPages records the page count of rendered quote documents.
	DocumentPages prometheus.Histogram
	// StyleFallbackTotal counts style resolutions that fell back to the built-in defaults.
	StyleFallbackTotal *prometheus.CounterVec
	// DiscountRejectionsTotal counts discount values refused by the role policy.
	DiscountRejectionsTotal *prometheus.CounterVec
	// ExportJobsTotal tracks asynchronous export job outcomes.
	ExportJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentsRenderedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_rendered_total",
			Help:      "Count of quote document renders by format and outcome.",
		}, []string{"format", "result"})
		DocumentPages = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_pages",
			Help:      "Distribution of page counts for rendered quote documents.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		})
		StyleFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "style_fallback_total",
			Help:      "Count of document style resolutions that used the defaults.",
		}, []string{"reason"})
		DiscountRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_rejections_total",
			Help:      "Count of discount values refused by the role policy.",
		}, []string{"scope"})
		ExportJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_jobs_total",
			Help:      "Count of asynchronous export job outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, DocumentsRenderedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentsRenderedTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentPages, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				DocumentPages = v
			}
		})
		mustRegisterCollector(reg, StyleFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StyleFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountRejectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountRejectionsTotal = v
			}
		})
		mustRegisterCollector(reg, ExportJobsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ExportJobsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
