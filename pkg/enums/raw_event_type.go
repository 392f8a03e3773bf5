package enums

import "fmt"

// RawEventType identifies the kind of warehouse occurrence carried by a RAW event.
type RawEventType string

const (
	RawEventTypeLotEntryRegistered RawEventType = "LOT_ENTRY_REGISTERED"
	RawEventTypeLotMoved           RawEventType = "LOT_MOVED"
	RawEventTypeLossRegistered     RawEventType = "LOSS_REGISTERED"
	RawEventTypeReturnRegistered   RawEventType = "RETURN_REGISTERED"
)

var validRawEventTypes = []RawEventType{
	RawEventTypeLotEntryRegistered,
	RawEventTypeLotMoved,
	RawEventTypeLossRegistered,
	RawEventTypeReturnRegistered,
}

// IsValid checks whether the given type matches the canonical enum.
func (r RawEventType) IsValid() bool {
	for _, candidate := range validRawEventTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRawEventType converts raw strings into RawEventType.
func ParseRawEventType(value string) (RawEventType, error) {
	for _, candidate := range validRawEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid raw event type %q", value)
}
