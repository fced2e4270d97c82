package enums

import (
	"fmt"
	"strings"
)

// PaymentMode selects the provider environment for a tenant.
type PaymentMode string

const (
	PaymentModeSandbox PaymentMode = "sandbox"
	PaymentModeLive    PaymentMode = "live"
)

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsLive reports whether real money moves in this mode.
func (m PaymentMode) IsLive() bool {
	return m == PaymentModeLive
}

// ParsePaymentMode converts raw tenant settings into a PaymentMode.
// Anything other than "live" is treated as sandbox.
func ParsePaymentMode(value string) PaymentMode {
	if strings.EqualFold(strings.TrimSpace(value), string(PaymentModeLive)) {
		return PaymentModeLive
	}
	return PaymentModeSandbox
}

// ValidatePaymentMode rejects unknown non-empty modes.
func ValidatePaymentMode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(PaymentModeSandbox), string(PaymentModeLive):
		return nil
	default:
		return fmt.Errorf("invalid payment mode %q", value)
	}
}
