package enums

import "fmt"

// SmsDeliveryStatus records the outcome of the last SMS attempt for a customer.
type SmsDeliveryStatus string

const (
	SmsDeliveryStatusSent    SmsDeliveryStatus = "sent"
	SmsDeliveryStatusNotSent SmsDeliveryStatus = "not_sent"
)

var validSmsDeliveryStatuses = []SmsDeliveryStatus{
	SmsDeliveryStatusSent,
	SmsDeliveryStatusNotSent,
}

// String implements fmt.Stringer.
func (s SmsDeliveryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SmsDeliveryStatus.
func (s SmsDeliveryStatus) IsValid() bool {
	for _, candidate := range validSmsDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSmsDeliveryStatus converts raw input into an SmsDeliveryStatus.
func ParseSmsDeliveryStatus(value string) (SmsDeliveryStatus, error) {
	for _, candidate := range validSmsDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sms delivery status %q", value)
}
