package events

import (
	"strings"
	"time"

	"github.com/bomjesus/armazem-backend/internal/rules"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// ValidationError is one validation finding. MISSING_* codes block projection.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating one event.
type ValidationResult struct {
	Status enums.ValidationStatus
	Errors []ValidationError
}

// Validate checks a raw event payload against the configured limits.
//
// Deterministic and side-effect-free: all business rules for event shape
// live here. Timestamp and quantity range findings are advisory
// (NEEDS_REVIEW), missing required fields are blocking (INVALID).
func Validate(eventType enums.RawEventType, occurredAt time.Time, payload map[string]any, limits rules.Limits, now time.Time) ValidationResult {
	var errs []ValidationError

	maxFuture := now.Add(time.Duration(limits.EventFutureMinutesMax) * time.Minute)
	maxPast := now.Add(-time.Duration(limits.EventPastDaysMax) * 24 * time.Hour)
	if occurredAt.After(maxFuture) {
		errs = append(errs, ValidationError{Code: "EVENT_TS_TOO_FUTURE", Message: "event_ts acima da tolerancia futura"})
	}
	if occurredAt.Before(maxPast) {
		errs = append(errs, ValidationError{Code: "EVENT_TS_TOO_OLD", Message: "event_ts antigo acima da tolerancia"})
	}

	if boxes, ok := NumberField(payload, "boxes"); ok && boxes > float64(limits.QtyBoxesMax) {
		errs = append(errs, ValidationError{Code: "QTY_BOXES_OUT_OF_RANGE", Message: "qty_boxes acima da faixa"})
	}
	if kg, ok := NumberField(payload, "kg"); ok && kg > limits.QtyKgMax {
		errs = append(errs, ValidationError{Code: "QTY_KG_OUT_OF_RANGE", Message: "qty_kg acima da faixa"})
	}

	errs = append(errs, requiredFieldErrors(eventType, payload)...)

	status := enums.ValidationStatusValid
	for _, e := range errs {
		if strings.HasPrefix(e.Code, "MISSING_") {
			status = enums.ValidationStatusInvalid
			break
		}
	}
	if status == enums.ValidationStatusValid && len(errs) > 0 {
		status = enums.ValidationStatusNeedsReview
	}

	return ValidationResult{Status: status, Errors: errs}
}

func requiredFieldErrors(eventType enums.RawEventType, payload map[string]any) []ValidationError {
	var errs []ValidationError

	missingQuantity := ValidationError{Code: "MISSING_QUANTITY", Message: "qty_boxes ou qty_kg obrigatorio"}

	switch eventType {
	case enums.RawEventTypeLotEntryRegistered:
		if _, ok := StringField(payload, "productId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_PRODUCT_ID", Message: "product_id obrigatorio"})
		}
		if _, ok := StringField(payload, "locationId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_LOCATION_ID", Message: "location_id obrigatorio"})
		}
		if !HasPositiveQuantity(payload) {
			errs = append(errs, missingQuantity)
		}

	case enums.RawEventTypeLotMoved:
		if _, ok := StringField(payload, "lotId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_LOT_ID", Message: "lot_id obrigatorio"})
		}
		if _, ok := StringField(payload, "fromLocationId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_FROM_LOCATION_ID", Message: "from_location_id obrigatorio"})
		}
		if _, ok := StringField(payload, "toLocationId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_TO_LOCATION_ID", Message: "to_location_id obrigatorio"})
		}
		if !HasPositiveQuantity(payload) {
			errs = append(errs, missingQuantity)
		}

	case enums.RawEventTypeLossRegistered:
		_, hasLot := StringField(payload, "lotId")
		_, hasProduct := StringField(payload, "productId")
		if !hasLot && !hasProduct {
			errs = append(errs, ValidationError{Code: "MISSING_LOT_OR_PRODUCT", Message: "lot_id ou product_id obrigatorio"})
		}
		if _, ok := StringField(payload, "locationId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_LOCATION_ID", Message: "location_id obrigatorio"})
		}
		if _, ok := StringField(payload, "reason"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_REASON", Message: "reason obrigatorio"})
		}
		if !HasPositiveQuantity(payload) {
			errs = append(errs, missingQuantity)
		}

	case enums.RawEventTypeReturnRegistered:
		if _, ok := StringField(payload, "clientId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_CLIENT_ID", Message: "client_id obrigatorio"})
		}
		if _, ok := StringField(payload, "storeId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_STORE_ID", Message: "store_id obrigatorio"})
		}
		if _, ok := StringField(payload, "productId"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_PRODUCT_ID", Message: "product_id obrigatorio"})
		}
		if _, ok := StringField(payload, "reason"); !ok {
			errs = append(errs, ValidationError{Code: "MISSING_REASON", Message: "reason obrigatorio"})
		}
		if !HasPositiveQuantity(payload) {
			errs = append(errs, missingQuantity)
		}
	}

	return errs
}
