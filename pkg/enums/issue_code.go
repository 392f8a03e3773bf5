package enums

// Issue codes raised by the projection and direct-entry paths.
const (
	IssueCodeMovementOverStock = "MOVEMENT_OVER_STOCK"
	IssueCodeLossOverStock     = "LOSS_OVER_STOCK"
	IssueCodeLossWithoutLot    = "LOSS_WITHOUT_LOT"
)
