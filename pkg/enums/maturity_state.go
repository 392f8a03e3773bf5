package enums

// MaturityState classifies a lot's ripeness by age since entry.
type MaturityState string

const (
	MaturityStateVerde  MaturityState = "VERDE"
	MaturityStateDeVez  MaturityState = "DE_VEZ"
	MaturityStateMadura MaturityState = "MADURA"
)

// IsValid checks whether the given state matches the canonical enum.
func (m MaturityState) IsValid() bool {
	switch m {
	case MaturityStateVerde, MaturityStateDeVez, MaturityStateMadura:
		return true
	}
	return false
}
