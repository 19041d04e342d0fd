package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_created_total",
		Help: "Total number of offers created",
	})

	OffersSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_superseded_total",
		Help: "Total number of pending offers replaced by a newer offer from the same buyer",
	})

	OffersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_accepted_total",
		Help: "Total number of offers accepted",
	})

	OffersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_rejected_total",
		Help: "Total number of offers rejected",
	}, []string{"source"})

	OffersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_cancelled_total",
		Help: "Total number of offers cancelled by their buyer",
	})

	CascadeOffersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cascade_offers_deleted_total",
		Help: "Total number of offers deleted by item/offer cascades",
	})

	CascadeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offer_cascade_latency_seconds",
		Help:    "Latency of accept/unlist/availability cascades",
		Buckets: prometheus.DefBuckets,
	})

	ItemsListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_listed_total",
		Help: "Total number of items published to the marketplace feed",
	})

	ItemsUnlistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_unlisted_total",
		Help: "Total number of items withdrawn from the marketplace feed",
	})

	NotificationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Total number of trade notifications handed to the event bus",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notification deliveries that failed",
	})

	IdentityCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_hits_total",
		Help: "Profile lookups served from Redis",
	})

	IdentityCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_misses_total",
		Help: "Profile lookups that fell through to the database",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
