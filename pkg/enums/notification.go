package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationOrderConfirmation NotificationType = "order_confirmation"
	NotificationPaymentFailed     NotificationType = "payment_failed"
	NotificationLowStock          NotificationType = "low_stock"
	NotificationBackInStock       NotificationType = "back_in_stock"
	NotificationShipmentUpdate    NotificationType = "shipment_update"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderConfirmation,
	NotificationPaymentFailed,
	NotificationLowStock,
	NotificationBackInStock,
	NotificationShipmentUpdate,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationStatus tracks delivery of a notification row.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
	NotificationStatusSkipped NotificationStatus = "skipped"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusFailed,
	NotificationStatusSkipped,
}

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}
