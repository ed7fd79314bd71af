package enums

import "fmt"

// SalesOrderStatus tracks the lifecycle of a sales order.
type SalesOrderStatus string

const (
	SalesOrderStatusPending           SalesOrderStatus = "pending"
	SalesOrderStatusConfirmed         SalesOrderStatus = "confirmed"
	SalesOrderStatusAwaitingMaterials SalesOrderStatus = "awaiting_materials"
	SalesOrderStatusInProduction      SalesOrderStatus = "in_production"
	SalesOrderStatusFulfilled         SalesOrderStatus = "fulfilled"
	SalesOrderStatusCancelled         SalesOrderStatus = "cancelled"
)

var validSalesOrderStatuses = []SalesOrderStatus{
	SalesOrderStatusPending,
	SalesOrderStatusConfirmed,
	SalesOrderStatusAwaitingMaterials,
	SalesOrderStatusInProduction,
	SalesOrderStatusFulfilled,
	SalesOrderStatusCancelled,
}

// salesOrderTransitions is the authoritative transition table. Absent keys are
// terminal states.
var salesOrderTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusPending: {
		SalesOrderStatusConfirmed,
		SalesOrderStatusAwaitingMaterials,
		SalesOrderStatusInProduction,
		SalesOrderStatusCancelled,
	},
	SalesOrderStatusConfirmed: {
		SalesOrderStatusFulfilled,
		SalesOrderStatusCancelled,
	},
	SalesOrderStatusAwaitingMaterials: {
		SalesOrderStatusInProduction,
		SalesOrderStatusCancelled,
	},
	SalesOrderStatusInProduction: {
		SalesOrderStatusConfirmed,
		SalesOrderStatusFulfilled,
		SalesOrderStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (s SalesOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalesOrderStatus.
func (s SalesOrderStatus) IsValid() bool {
	for _, candidate := range validSalesOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (s SalesOrderStatus) IsTerminal() bool {
	return s.IsValid() && len(salesOrderTransitions[s]) == 0
}

// CanTransitionTo reports whether moving to target is allowed.
func (s SalesOrderStatus) CanTransitionTo(target SalesOrderStatus) bool {
	for _, candidate := range salesOrderTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseSalesOrderStatus converts raw input into a SalesOrderStatus.
func ParseSalesOrderStatus(value string) (SalesOrderStatus, error) {
	for _, candidate := range validSalesOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales order status %q", value)
}
