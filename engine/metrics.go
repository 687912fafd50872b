package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "chatward_event_duration_sec",
	Help: "Total duration of message pipeline processing",
})

var messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatward_messages_processed",
	Help: "Number of chat messages run through the pipeline",
}, []string{"channel"})

var messagesFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatward_messages_flagged",
	Help: "Number of messages whose score crossed the flag threshold",
}, []string{"channel"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatward_event_errors",
	Help: "Number of messages which failed processing",
}, []string{"type"})
