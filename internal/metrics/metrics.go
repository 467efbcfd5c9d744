// Package metrics holds the prometheus collectors for posebridge and the
// HTTP endpoint that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Channel label values.
const (
	ChannelTelemetry = "telemetry"
	ChannelCommand   = "command"
)

// Result label values.
const (
	ResultParsed     = "parsed"
	ResultParseError = "parse_error"
	ResultExecuted   = "executed"
	ResultFailed     = "failed"
	ResultCancelled  = "cancelled"
)

var (
	// Telemetry channel

	TelemetryTriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posebridge_telemetry_triggers_total",
			Help: "Total number of trigger lines received on the telemetry channel",
		},
	)

	TelemetryResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posebridge_telemetry_responses_total",
			Help: "Total number of pose lines sent on the telemetry channel",
		},
	)

	WorkerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "posebridge_worker_state",
			Help: "Telemetry worker state (0=idle, 1=binding, 2=listening, 3=serving, 4=stopped)",
		},
	)

	// Command channel

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posebridge_commands_total",
			Help: "Total number of command lines received, by parse result",
		},
		[]string{"result"},
	)

	MovesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posebridge_moves_total",
			Help: "Total number of move requests, by outcome",
		},
		[]string{"result"},
	)

	MoveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "posebridge_move_duration_seconds",
			Help:    "Duration of executed moves in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// Both channels

	ChannelConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posebridge_channel_connected",
			Help: "Channel peer status (0=disconnected, 1=connected)",
		},
		[]string{"channel"},
	)
)

// ConnectionHook returns a callback that mirrors a channel's peer status
// into ChannelConnected.
func ConnectionHook(channel string) func(bool) {
	g := ChannelConnected.WithLabelValues(channel)
	return func(connected bool) {
		if connected {
			g.Set(1)
		} else {
			g.Set(0)
		}
	}
}
