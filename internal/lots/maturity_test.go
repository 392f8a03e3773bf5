package lots

import (
	"testing"
	"time"

	"github.com/bomjesus/armazem-backend/pkg/enums"
)

func TestComputeMaturityState_Boundaries(t *testing.T) {
	entry := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		asOf time.Time
		want enums.MaturityState
	}{
		{"same instant", entry, enums.MaturityStateVerde},
		{"just under 3 days", entry.Add(3*24*time.Hour - time.Second), enums.MaturityStateVerde},
		{"exactly 3 days", entry.Add(3 * 24 * time.Hour), enums.MaturityStateDeVez},
		{"just under 5 days", entry.Add(5*24*time.Hour - time.Second), enums.MaturityStateDeVez},
		{"exactly 5 days", entry.Add(5 * 24 * time.Hour), enums.MaturityStateMadura},
		{"well past", entry.Add(30 * 24 * time.Hour), enums.MaturityStateMadura},
		{"future entry clock skew", entry.Add(-time.Hour), enums.MaturityStateVerde},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeMaturityState(entry, tc.asOf); got != tc.want {
				t.Fatalf("ComputeMaturityState(%s) = %s, want %s", tc.asOf, got, tc.want)
			}
		})
	}
}
