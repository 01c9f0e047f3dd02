package rabbitmq

// NotificationsExchange is the direct exchange all user notifications go
// through.
const NotificationsExchange = "notifications"

// Routing keys for the notification queues.
const (
	RoutingKeyDowngrade = "downgrade"
	RoutingKeyReport    = "report"
)

// QueueConfig binds one queue to a routing key on the notifications
// exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues returns the queues the sender worker consumes:
// downgrade notices from the expiry sweep and daily auto-reports.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.downgrade", RoutingKey: RoutingKeyDowngrade},
		{QueueName: "notification.report", RoutingKey: RoutingKeyReport},
	}
}
