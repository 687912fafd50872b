package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatward_actions_dispatched_total",
	Help: "Moderation actions delivered to the platform API, by kind and outcome.",
}, []string{"kind", "outcome"})

var actionsQuotaSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatward_actions_quota_skipped_total",
	Help: "Moderation actions suppressed by the daily quota circuit breaker.",
}, []string{"kind"})
