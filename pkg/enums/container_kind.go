package enums

import "fmt"

// ContainerKind distinguishes the two kinds of box container.
type ContainerKind string

const (
	ContainerKindPallet ContainerKind = "pallet"
	ContainerKindShelf  ContainerKind = "shelf"
)

var validContainerKinds = []ContainerKind{
	ContainerKindPallet,
	ContainerKindShelf,
}

// String implements fmt.Stringer.
func (c ContainerKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContainerKind.
func (c ContainerKind) IsValid() bool {
	for _, candidate := range validContainerKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContainerKind converts raw input into a ContainerKind.
func ParseContainerKind(value string) (ContainerKind, error) {
	for _, candidate := range validContainerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid container kind %q", value)
}
