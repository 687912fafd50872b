package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("chatward")

var messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_gateway_messages_received",
	Help: "Number of chat messages received from the gateway",
})

var messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_gateway_messages_dropped",
	Help: "Number of gateway frames that failed to decode",
})

var commandsHandled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_commands_handled",
	Help: "Number of moderator commands executed",
})

var gatewayReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_gateway_reconnects",
	Help: "Number of times the gateway connection was re-established",
})
