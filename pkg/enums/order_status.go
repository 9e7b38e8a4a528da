package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the lifecycle of a juicing order.
type OrderStatus string

const (
	OrderStatusCreated            OrderStatus = "created"
	OrderStatusInProgress         OrderStatus = "in_progress"
	OrderStatusProcessingComplete OrderStatus = "processing_complete"
	OrderStatusReadyForPickup     OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp           OrderStatus = "picked_up"
	OrderStatusDeleted            OrderStatus = "deleted"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusInProgress,
	OrderStatusProcessingComplete,
	OrderStatusReadyForPickup,
	OrderStatusPickedUp,
	OrderStatusDeleted,
}

// Display strings match what the staff app historically showed.
var orderStatusDisplay = map[OrderStatus]string{
	OrderStatusCreated:            "Created",
	OrderStatusInProgress:         "In progress",
	OrderStatusProcessingComplete: "Processing complete",
	OrderStatusReadyForPickup:     "Ready for pickup",
	OrderStatusPickedUp:           "Picked up",
	OrderStatusDeleted:            "Deleted",
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// Display returns the human-readable form used in API payloads and SMS text.
func (o OrderStatus) Display() string {
	if d, ok := orderStatusDisplay[o]; ok {
		return d
	}
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusPickedUp || o == OrderStatusDeleted
}

// ParseOrderStatus converts raw input into an OrderStatus. Legacy display
// strings ("Ready for pickup") are accepted alongside canonical values.
func ParseOrderStatus(value string) (OrderStatus, error) {
	needle := strings.TrimSpace(value)
	for _, candidate := range validOrderStatuses {
		if strings.EqualFold(string(candidate), needle) {
			return candidate, nil
		}
		if strings.EqualFold(orderStatusDisplay[candidate], needle) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
