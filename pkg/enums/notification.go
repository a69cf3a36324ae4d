package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOutOfStock     NotificationType = "out_of_stock"
	NotificationTypeStockShortfall NotificationType = "stock_shortfall"
	NotificationTypeRegisterClosed NotificationType = "register_closed"
	NotificationTypeSellerPaid     NotificationType = "seller_paid"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOutOfStock,
	NotificationTypeStockShortfall,
	NotificationTypeRegisterClosed,
	NotificationTypeSellerPaid,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
