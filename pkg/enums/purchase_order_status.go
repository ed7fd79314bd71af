package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a raw-material purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderStatusOrdered   PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusOrdered,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusDraft: {
		PurchaseOrderStatusOrdered,
		PurchaseOrderStatusCancelled,
	},
	PurchaseOrderStatusOrdered: {
		PurchaseOrderStatusReceived,
		PurchaseOrderStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (p PurchaseOrderStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (p PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (p PurchaseOrderStatus) IsTerminal() bool {
	return p.IsValid() && len(purchaseOrderTransitions[p]) == 0
}

// CanTransitionTo reports whether moving to target is allowed.
func (p PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	for _, candidate := range purchaseOrderTransitions[p] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
