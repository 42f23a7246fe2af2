package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadrelay_events_total",
			Help: "Webhook events by kind and pipeline result",
		},
		[]string{"kind", "result"}, // message_created|... , completed|skipped|failed
	)

	SMSTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadrelay_sms_total",
			Help: "Gateway send attempts by outcome",
		},
		[]string{"outcome"}, // sent|failed|deduplicated
	)

	AdminNotifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadrelay_admin_notify_failures_total",
			Help: "Admin notifications that could not be delivered",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		SMSTotal,
		AdminNotifyFailures,
	)
}
