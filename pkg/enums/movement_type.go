package enums

// MovementType classifies an append-only stock ledger entry.
type MovementType string

const (
	MovementTypeEntry  MovementType = "ENTRY"
	MovementTypeMove   MovementType = "MOVE"
	MovementTypeExit   MovementType = "EXIT"
	MovementTypeLoss   MovementType = "LOSS"
	MovementTypeReturn MovementType = "RETURN"
)

// IsValid checks whether the given type matches the canonical enum.
func (m MovementType) IsValid() bool {
	switch m {
	case MovementTypeEntry, MovementTypeMove, MovementTypeExit, MovementTypeLoss, MovementTypeReturn:
		return true
	}
	return false
}
