package events

import (
	"encoding/json"
	"strconv"
)

// Event payloads arrive as free-form JSON. These accessors implement the
// loose reading rules the pipeline depends on: string fields accept strings
// and numbers, quantity fields only count when they are JSON numbers.

// DecodePayload parses a stored payload document into a generic map.
// Malformed payloads decode to an empty map rather than failing.
func DecodePayload(raw json.RawMessage) map[string]any {
	payload := map[string]any{}
	if len(raw) == 0 {
		return payload
	}
	_ = json.Unmarshal(raw, &payload)
	return payload
}

// StringField reads a payload field as a non-empty string. Numbers are
// stringified, everything else does not count as present.
func StringField(payload map[string]any, key string) (string, bool) {
	value, ok := payload[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// NumberField reads a payload field only when it is a JSON number.
func NumberField(payload map[string]any, key string) (float64, bool) {
	value, ok := payload[key]
	if !ok {
		return 0, false
	}
	number, isNumber := value.(float64)
	return number, isNumber
}

// HasPositiveQuantity reports whether boxes or kg is a positive number.
func HasPositiveQuantity(payload map[string]any) bool {
	if boxes, ok := NumberField(payload, "boxes"); ok && boxes > 0 {
		return true
	}
	if kg, ok := NumberField(payload, "kg"); ok && kg > 0 {
		return true
	}
	return false
}
