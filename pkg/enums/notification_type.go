package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeStockShortage         NotificationType = "stock_shortage"
	NotificationTypeLowStock              NotificationType = "low_stock"
	NotificationTypeBatchCreated          NotificationType = "batch_created"
	NotificationTypeStageCompleted        NotificationType = "stage_completed"
	NotificationTypeBatchCompleted        NotificationType = "batch_completed"
	NotificationTypeOrderCreated          NotificationType = "order_created"
	NotificationTypePurchaseOrderReceived NotificationType = "purchase_order_received"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeStockShortage,
	NotificationTypeLowStock,
	NotificationTypeBatchCreated,
	NotificationTypeStageCompleted,
	NotificationTypeBatchCompleted,
	NotificationTypeOrderCreated,
	NotificationTypePurchaseOrderReceived,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
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

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
