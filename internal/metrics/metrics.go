package metrics

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_pipeline_pass_duration_seconds",
			Help:    "Duration of each full ingestion, fan-out and delivery pass in seconds.",
			Buckets: []float64{1, 5, 15, 60, 300, 900},
		},
	)
	PassStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "bot_pipeline_step_duration_seconds",
			Help:       "Duration of each step of the pipeline pass.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	IngestedVacanciesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_vacancies_ingested_total",
			Help: "Total number of vacancies linked to a new city and category.",
		},
	)
	SkippedFeedEntriesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_feed_entries_skipped_total",
			Help: "Total number of malformed feed entries that were skipped.",
		},
	)
	FanoutRecordsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_delivery_records_created_total",
			Help: "Total number of delivery records created by fan-out.",
		},
	)
	DeliveriesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_deliveries_total",
			Help: "Total number of delivery attempts by result.",
		},
		[]string{"result"},
	)
	DeliveryRecordsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_delivery_records",
			Help: "Number of undelivered records by state (pending or dead).",
		},
		[]string{"state"},
	)
)

func Register(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ErrorsCounter,
		PassDuration,
		PassStepDuration,
		IngestedVacanciesCounter,
		SkippedFeedEntriesCounter,
		FanoutRecordsCounter,
		DeliveriesCounter,
		DeliveryRecordsGauge,
	)
}

func StartMetricsServer(port int) {

	Register(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), mux))
	}()
}
