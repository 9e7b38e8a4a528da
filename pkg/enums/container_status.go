package enums

import "fmt"

// ContainerStatus reflects how full a pallet or shelf is.
type ContainerStatus string

const (
	ContainerStatusAvailable ContainerStatus = "available"
	ContainerStatusLoading   ContainerStatus = "loading"
	ContainerStatusFull      ContainerStatus = "full"
)

var validContainerStatuses = []ContainerStatus{
	ContainerStatusAvailable,
	ContainerStatusLoading,
	ContainerStatusFull,
}

// String implements fmt.Stringer.
func (c ContainerStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContainerStatus.
func (c ContainerStatus) IsValid() bool {
	for _, candidate := range validContainerStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ContainerStatusFor derives the status from a holding count and capacity.
func ContainerStatusFor(holding, capacity int) ContainerStatus {
	switch {
	case holding <= 0:
		return ContainerStatusAvailable
	case capacity > 0 && holding >= capacity:
		return ContainerStatusFull
	default:
		return ContainerStatusLoading
	}
}

// ParseContainerStatus converts raw input into a ContainerStatus.
func ParseContainerStatus(value string) (ContainerStatus, error) {
	for _, candidate := range validContainerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid container status %q", value)
}
