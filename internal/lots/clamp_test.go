package lots

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

func intPtr(v int) *int            { return &v }
func floatPtr(v float64) *float64  { return &v }
func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestClampDeduction_WithinBalance(t *testing.T) {
	lot := &models.Lot{Boxes: 10, Kg: decPtr("25.5")}

	updates, overStock := ClampDeduction(lot, Deduction{Boxes: intPtr(4), Kg: floatPtr(5.5)})
	if overStock {
		t.Fatal("unexpected over-stock flag")
	}
	if updates["boxes"] != 6 {
		t.Fatalf("expected 6 boxes, got %v", updates["boxes"])
	}
	kg := updates["kg"].(decimal.Decimal)
	if !kg.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected 20 kg, got %s", kg)
	}
}

func TestClampDeduction_DeficitClampsToZero(t *testing.T) {
	lot := &models.Lot{Boxes: 3, Kg: decPtr("2")}

	updates, overStock := ClampDeduction(lot, Deduction{Boxes: intPtr(10), Kg: floatPtr(9)})
	if !overStock {
		t.Fatal("expected over-stock flag")
	}
	if updates["boxes"] != 0 {
		t.Fatalf("boxes must clamp to zero, got %v", updates["boxes"])
	}
	kg := updates["kg"].(decimal.Decimal)
	if !kg.Equal(decimal.Zero) {
		t.Fatalf("kg must clamp to zero, got %s", kg)
	}
	if updates["inconsistent"] != true {
		t.Fatal("expected inconsistent flag in updates")
	}
}

func TestClampDeduction_NilKgOnLotIsIgnored(t *testing.T) {
	lot := &models.Lot{Boxes: 5}

	updates, overStock := ClampDeduction(lot, Deduction{Kg: floatPtr(100)})
	if overStock {
		t.Fatal("kg deduction on a boxes-only lot must not flag")
	}
	if _, ok := updates["kg"]; ok {
		t.Fatal("kg must not be updated when the lot tracks no kg")
	}
}
