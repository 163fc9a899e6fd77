package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	QuotesFetchedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "quotes_fetched_total", Help: "Order book quotes fetched from Horizon"})
	QuoteErrorsTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "quote_errors_total", Help: "Transport failures while fetching quotes"})

	ScansTotal            = prometheus.NewCounter(prometheus.CounterOpts{Name: "scans_total", Help: "Opportunity scans started"})
	ScanDurationSeconds   = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "scan_duration_seconds", Help: "Wall time of a full opportunity scan", Buckets: prometheus.ExponentialBuckets(0.05, 2, 10)})
	CyclesEvaluatedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "cycles_evaluated_total", Help: "Candidate cycles evaluated"})
	CyclesAbsentTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "cycles_absent_total", Help: "Cycles with missing market or liquidity side"})
	OpportunitiesFound    = prometheus.NewCounter(prometheus.CounterOpts{Name: "opportunities_found_total", Help: "Profitable opportunities discovered"})
	OpportunityProfitPct  = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "opportunity_profit_pct", Help: "Profit percentage of discovered opportunities", Buckets: prometheus.LinearBuckets(0, 0.5, 20)})
	RefreshTicksTotal     = prometheus.NewCounter(prometheus.CounterOpts{Name: "refresh_ticks_total", Help: "Refresh ticks that re-evaluated the opportunity set"})
	RefreshSkippedTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "refresh_skipped_total", Help: "Refresh ticks skipped because a scan, refresh, or execution was outstanding"})
	RefreshDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "refresh_discarded_total", Help: "Refresh results discarded after being superseded by a new scan"})

	ExecutionsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "executions_submitted_total", Help: "Trade plans signed and submitted"})
	SigningRejectionsTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "signing_rejections_total", Help: "Trade plans declined at signing"})
	ExecutionRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "execution_rejections_total", Help: "Trade plans rejected by the network"})
	ExecutionBusyTotal       = prometheus.NewCounter(prometheus.CounterOpts{Name: "execution_busy_total", Help: "Execution requests rejected because one was already in flight"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		QuotesFetchedTotal, QuoteErrorsTotal,
		ScansTotal, ScanDurationSeconds, CyclesEvaluatedTotal, CyclesAbsentTotal,
		OpportunitiesFound, OpportunityProfitPct,
		RefreshTicksTotal, RefreshSkippedTotal, RefreshDiscardedTotal,
		ExecutionsSubmittedTotal, SigningRejectionsTotal, ExecutionRejectionsTotal, ExecutionBusyTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
