package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	catalogMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intra_catalog_mutations_total",
		Help: "Catalog store mutations by kind, operation and outcome",
	}, []string{"kind", "op", "outcome"}) // outcome=success|failure

	catalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intra_catalog_reloads_total",
		Help: "Record store reloads by kind and outcome",
	}, []string{"kind", "outcome"})

	catalogRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "intra_catalog_records",
		Help: "Records in the last successful snapshot per kind",
	}, []string{"kind"})

	catalogFilterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intra_catalog_filter_requests_total",
		Help: "Public catalog listings by number of constrained dimensions",
	}, []string{"active"})

	listingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intra_catalog_listing_cache_total",
		Help: "Listing cache lookups by kind and result",
	}, []string{"kind", "result"}) // result=hit|miss|error

	mediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intra_catalog_media_uploads_total",
		Help: "Vehicle image uploads by outcome",
	}, []string{"outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func RecordMutation(kind, op string, err error) {
	catalogMutations.WithLabelValues(kind, op, outcome(err)).Inc()
}

func RecordReload(kind string, count int, err error) {
	catalogReloads.WithLabelValues(kind, outcome(err)).Inc()
	if err == nil {
		catalogRecords.WithLabelValues(kind).Set(float64(count))
	}
}

func RecordFilter(active int) {
	var label string
	switch {
	case active <= 0:
		label = "0"
	case active == 1:
		label = "1"
	case active == 2:
		label = "2"
	default:
		label = "3"
	}
	catalogFilterRequests.WithLabelValues(label).Inc()
}

func RecordCacheLookup(kind, result string) {
	listingCache.WithLabelValues(kind, result).Inc()
}

func RecordUpload(err error) {
	mediaUploads.WithLabelValues(outcome(err)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
