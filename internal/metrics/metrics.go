package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ContactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_contacts_total",
			Help: "Contact submissions by stage and priority",
		},
		[]string{"stage", "priority"}, // submitted|rejected|failed , low|medium|high|urgent|none
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_transitions_total",
			Help: "Administrative transitions by action and result",
		},
		[]string{"action", "result"}, // applied|noop|rejected|error
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_notifications_total",
			Help: "Notification deliveries by result and lane",
		},
		[]string{"result", "lane"}, // sent|failed , standard|priority
	)

	OutboxRelayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_outbox_relayed_total",
			Help: "Outbox events relayed to Kafka by result",
		},
		[]string{"result"}, // published|failed
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors once per process; serve and the
// workers may both call it.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			ContactsTotal,
			TransitionsTotal,
			NotificationsTotal,
			OutboxRelayedTotal,
		)
	})
}
