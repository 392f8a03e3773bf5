package lots

import (
	"github.com/shopspring/decimal"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

// Deduction is a requested stock decrement against a lot.
type Deduction struct {
	Boxes *int
	Kg    *float64
}

// ClampDeduction builds the aggregate updates for a stock decrement.
//
// Balances never go negative: a deficit clamps to zero and reports
// overStock=true so the caller can flag the lot and open a review issue.
func ClampDeduction(lot *models.Lot, d Deduction) (map[string]any, bool) {
	overStock := false
	updates := map[string]any{}

	if d.Boxes != nil {
		if *d.Boxes > lot.Boxes {
			overStock = true
		}
		remaining := lot.Boxes - *d.Boxes
		if remaining < 0 {
			remaining = 0
		}
		updates["boxes"] = remaining
	}

	if d.Kg != nil && lot.Kg != nil {
		requested := decimal.NewFromFloat(*d.Kg)
		if requested.GreaterThan(*lot.Kg) {
			overStock = true
		}
		remaining := lot.Kg.Sub(requested)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		updates["kg"] = remaining
	}

	if overStock {
		updates["inconsistent"] = true
	}
	return updates, overStock
}
