package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const statusError = "error"

var (
	metricCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imapcodec_session_commands_total",
			Help: "Number of IMAP commands sent, by command and completion status.",
		},
		[]string{
			"command",
			"status", // OK, NO, BAD or error
		},
	)
	metricCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imapcodec_session_command_duration_seconds",
			Help:    "IMAP command duration until the tagged completion was received.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20, 30, 60},
		},
		[]string{
			"command",
		},
	)
)
