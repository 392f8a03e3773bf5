package lots

import (
	"time"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// ComputeMaturityState classifies a lot's ripeness by whole days since entry:
// 0-2 days VERDE, 3-4 days DE_VEZ, 5+ days MADURA.
func ComputeMaturityState(entryDate, asOf time.Time) enums.MaturityState {
	days := int(asOf.Sub(entryDate).Hours() / 24)
	if days < 0 {
		days = 0
	}

	switch {
	case days <= 2:
		return enums.MaturityStateVerde
	case days <= 4:
		return enums.MaturityStateDeVez
	default:
		return enums.MaturityStateMadura
	}
}
