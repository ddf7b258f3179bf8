package enums

// InventoryChangeReason maps to the inventory_change_reason enum in Postgres.
type InventoryChangeReason string

const (
	InventoryReasonOrderSettled InventoryChangeReason = "order_settled"
	InventoryReasonRefund       InventoryChangeReason = "refund"
	InventoryReasonRestock      InventoryChangeReason = "restock"
	InventoryReasonManual       InventoryChangeReason = "manual_adjustment"
	InventoryReasonCorrection   InventoryChangeReason = "correction"
)

var validInventoryChangeReasons = []InventoryChangeReason{
	InventoryReasonOrderSettled,
	InventoryReasonRefund,
	InventoryReasonRestock,
	InventoryReasonManual,
	InventoryReasonCorrection,
}

// IsValid reports whether the value is a known InventoryChangeReason.
func (i InventoryChangeReason) IsValid() bool {
	for _, candidate := range validInventoryChangeReasons {
		if candidate == i {
			return true
		}
	}
	return false
}
