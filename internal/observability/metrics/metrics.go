package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	identityOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabcore_identity_operations_total",
		Help: "Identity core operations by name and result",
	}, []string{"operation", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collabcore_identity_operation_duration_seconds",
		Help:    "Duration of identity core operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_active_sessions",
		Help: "Session ids currently held across all users",
	})

	resetNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabcore_reset_notifications_total",
		Help: "Reset-code notification dispatch attempts by result",
	}, []string{"result"})

	usersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_users_total",
		Help: "Registered user count",
	})

	channelsExist = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_channels_exist",
		Help: "Channels reported by the membership collaborator",
	})

	dmsExist = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_dms_exist",
		Help: "DMs reported by the membership collaborator",
	})

	messagesExist = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_messages_exist",
		Help: "Messages reported by the message collaborator",
	})

	utilizationRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabcore_utilization_rate",
		Help: "Share of users belonging to at least one channel or DM",
	})
)

// ObserveOperation records one identity operation with its result and duration.
func ObserveOperation(operation, result string, duration time.Duration) {
	identityOperations.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SessionOpened increments the live-session gauge.
func SessionOpened() { activeSessions.Inc() }

// SessionClosed decrements the live-session gauge.
func SessionClosed() { activeSessions.Dec() }

// ObserveResetNotification records a notification dispatch result.
func ObserveResetNotification(result string) {
	resetNotifications.WithLabelValues(result).Inc()
}

// SetSystemStats publishes the periodically exported system-wide stats.
func SetSystemStats(users, channels, dms, messages int, utilization float64) {
	usersTotal.Set(float64(users))
	channelsExist.Set(float64(channels))
	dmsExist.Set(float64(dms))
	messagesExist.Set(float64(messages))
	utilizationRate.Set(utilization)
}
