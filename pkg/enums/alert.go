package enums

import "fmt"

// AlertSeverity grades alert rules and fired events.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// IsValid checks whether the given severity matches the canonical enum.
func (a AlertSeverity) IsValid() bool {
	switch a {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	}
	return false
}

// ParseAlertSeverity converts raw strings into AlertSeverity.
func ParseAlertSeverity(value string) (AlertSeverity, error) {
	severity := AlertSeverity(value)
	if !severity.IsValid() {
		return "", fmt.Errorf("invalid alert severity %q", value)
	}
	return severity, nil
}

// AlertChannel is a delivery medium for fired alerts.
type AlertChannel string

const (
	AlertChannelPush  AlertChannel = "PUSH"
	AlertChannelEmail AlertChannel = "EMAIL"
)

// IsValid checks whether the given channel matches the canonical enum.
func (a AlertChannel) IsValid() bool {
	switch a {
	case AlertChannelPush, AlertChannelEmail:
		return true
	}
	return false
}

// AlertDeliveryStatus tracks per-recipient delivery of a fired alert.
type AlertDeliveryStatus string

const (
	AlertDeliveryStatusPending AlertDeliveryStatus = "PENDING"
	AlertDeliveryStatusSent    AlertDeliveryStatus = "SENT"
	AlertDeliveryStatusFailed  AlertDeliveryStatus = "FAILED"
)

// IsValid checks whether the given status matches the canonical enum.
func (a AlertDeliveryStatus) IsValid() bool {
	switch a {
	case AlertDeliveryStatusPending, AlertDeliveryStatusSent, AlertDeliveryStatusFailed:
		return true
	}
	return false
}
