package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type ReportMetrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RowsExported *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_reports_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Report = ReportMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_reports_runs_total",
				Help: "Total number of report executions.",
			},
			[]string{"report", "status"},
		),
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_reports_run_duration_seconds",
				Help:    "Histogram of end-to-end report execution latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report", "status"},
		),
		RowsExported: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_reports_rows_exported_total",
				Help: "Total number of rows written to report files.",
			},
			[]string{"report"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordReportRun(report, status string, duration time.Duration) {
	Report.RunsTotal.WithLabelValues(report, status).Inc()
	Report.RunDuration.WithLabelValues(report, status).Observe(duration.Seconds())
}

func RecordRowsExported(report string, rows int) {
	Report.RowsExported.WithLabelValues(report).Add(float64(rows))
}
