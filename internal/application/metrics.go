// Package application orchestrates one processing pass: fetching a series'
// posts, merging extracted scores into the leaderboard, and publishing or
// editing the standings comment under each post.
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pass-level counters for the bot. All metrics are labeled
// by series title so multiple tracked series stay distinguishable.
type Metrics struct {
	passes          *prometheus.CounterVec
	passErrors      *prometheus.CounterVec
	postsProcessed  *prometheus.CounterVec
	scoresExtracted *prometheus.CounterVec
	commentsPosted  *prometheus.CounterVec
	commentsEdited  *prometheus.CounterVec
	chartsRendered  *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
}

// NewMetrics creates the bot's metrics and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return newMetricsWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsWithRegistry registers the metrics with a caller-provided
// registry, which keeps tests isolated from the default registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWith(promauto.With(reg))
}

func newMetricsWith(factory promauto.Factory) *Metrics {
	return &Metrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_series_passes_total",
			Help: "Completed processing passes per series.",
		}, []string{"series"}),
		passErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_series_pass_errors_total",
			Help: "Processing passes that ended in an error.",
		}, []string{"series"}),
		postsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_posts_processed_total",
			Help: "Series posts scanned for scores.",
		}, []string{"series"}),
		scoresExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_scores_extracted_total",
			Help: "Participant scores extracted from replies.",
		}, []string{"series"}),
		commentsPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_comments_posted_total",
			Help: "New leaderboard comments posted.",
		}, []string{"series"}),
		commentsEdited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_comments_edited_total",
			Help: "Existing leaderboard comments edited.",
		}, []string{"series"}),
		chartsRendered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackr_charts_rendered_total",
			Help: "Score-history charts rendered and uploaded.",
		}, []string{"series"}),
		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackr_series_pass_duration_seconds",
			Help:    "Wall-clock duration of a full series pass.",
			Buckets: prometheus.DefBuckets,
		}, []string{"series"}),
	}
}
