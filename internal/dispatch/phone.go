package dispatch

import (
	"strings"

	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

// NormalizePhone canonicalizes a phone number for dedupe and sending. A
// leading + is kept, every other non-digit is stripped, and bare local
// numbers get the default region prefix with their leading zero dropped.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	international := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number has no digits")
	}

	if international {
		return "+" + number, nil
	}
	number = strings.TrimPrefix(number, "0")
	if number == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number has no digits")
	}
	if defaultRegion == "" {
		defaultRegion = "+358"
	}
	return defaultRegion + number, nil
}
