package enums

import "fmt"

// BatchStatus tracks the lifecycle of a manufacturing batch.
type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusInProgress,
	BatchStatusCompleted,
	BatchStatusCancelled,
}

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusInProgress: {
		BatchStatusCompleted,
		BatchStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BatchStatus.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (b BatchStatus) IsTerminal() bool {
	return b.IsValid() && len(batchTransitions[b]) == 0
}

// CanTransitionTo reports whether moving to target is allowed.
func (b BatchStatus) CanTransitionTo(target BatchStatus) bool {
	for _, candidate := range batchTransitions[b] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
