package enums

import "fmt"

// ValidationStatus is the outcome of running the validation engine over a RAW event.
type ValidationStatus string

const (
	ValidationStatusValid       ValidationStatus = "VALID"
	ValidationStatusNeedsReview ValidationStatus = "NEEDS_REVIEW"
	ValidationStatusInvalid     ValidationStatus = "INVALID"
)

// IsValid checks whether the given status matches the canonical enum.
func (v ValidationStatus) IsValid() bool {
	switch v {
	case ValidationStatusValid, ValidationStatusNeedsReview, ValidationStatusInvalid:
		return true
	}
	return false
}

// ProcessingStatus tracks projection progress of a RAW event into CLEAN rows.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "PENDING"
	ProcessingStatusProcessed ProcessingStatus = "PROCESSED"
	ProcessingStatusFailed    ProcessingStatus = "FAILED"
)

// IsValid checks whether the given status matches the canonical enum.
func (p ProcessingStatus) IsValid() bool {
	switch p {
	case ProcessingStatusPending, ProcessingStatusProcessed, ProcessingStatusFailed:
		return true
	}
	return false
}

// ParseProcessingStatus converts raw strings into ProcessingStatus.
func ParseProcessingStatus(value string) (ProcessingStatus, error) {
	status := ProcessingStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid processing status %q", value)
	}
	return status, nil
}
