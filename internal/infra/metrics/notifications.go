package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(notificationsTotal)
}

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "role_notifications_total",
		Help: "Role notifications to the users service by outcome (sent/failed/retried).",
	},
	[]string{"outcome"},
)

func IncNotification(outcome string) {
	notificationsTotal.WithLabelValues(norm(outcome)).Inc()
}
