package enums

import "fmt"

// ActivityType labels entries on the dashboard activity feed.
type ActivityType string

const (
	ActivityTypeEntryCreated  ActivityType = "entry_created"
	ActivityTypeOrderUpdated  ActivityType = "order_updated"
	ActivityTypeOrderDone     ActivityType = "order_done"
	ActivityTypeOrderReady    ActivityType = "order_ready"
	ActivityTypeOrderPickedUp ActivityType = "order_picked_up"
	ActivityTypeBoxesAssigned ActivityType = "boxes_assigned"
	ActivityTypeSmsSent       ActivityType = "sms_sent"
)

var validActivityTypes = []ActivityType{
	ActivityTypeEntryCreated,
	ActivityTypeOrderUpdated,
	ActivityTypeOrderDone,
	ActivityTypeOrderReady,
	ActivityTypeOrderPickedUp,
	ActivityTypeBoxesAssigned,
	ActivityTypeSmsSent,
}

// String implements fmt.Stringer.
func (a ActivityType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityType.
func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
