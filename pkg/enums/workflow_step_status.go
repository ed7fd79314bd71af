package enums

import "fmt"

// WorkflowStepStatus tracks one stage instance inside a batch.
type WorkflowStepStatus string

const (
	WorkflowStepStatusNotStarted WorkflowStepStatus = "not_started"
	WorkflowStepStatusInProgress WorkflowStepStatus = "in_progress"
	WorkflowStepStatusCompleted  WorkflowStepStatus = "completed"
	WorkflowStepStatusOnHold     WorkflowStepStatus = "on_hold"
	WorkflowStepStatusCancelled  WorkflowStepStatus = "cancelled"
)

var validWorkflowStepStatuses = []WorkflowStepStatus{
	WorkflowStepStatusNotStarted,
	WorkflowStepStatusInProgress,
	WorkflowStepStatusCompleted,
	WorkflowStepStatusOnHold,
	WorkflowStepStatusCancelled,
}

var workflowStepTransitions = map[WorkflowStepStatus][]WorkflowStepStatus{
	WorkflowStepStatusNotStarted: {
		WorkflowStepStatusInProgress,
		WorkflowStepStatusCompleted,
		WorkflowStepStatusCancelled,
	},
	WorkflowStepStatusInProgress: {
		WorkflowStepStatusCompleted,
		WorkflowStepStatusOnHold,
		WorkflowStepStatusCancelled,
	},
	WorkflowStepStatusOnHold: {
		WorkflowStepStatusInProgress,
		WorkflowStepStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (w WorkflowStepStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WorkflowStepStatus.
func (w WorkflowStepStatus) IsValid() bool {
	for _, candidate := range validWorkflowStepStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (w WorkflowStepStatus) IsTerminal() bool {
	return w.IsValid() && len(workflowStepTransitions[w]) == 0
}

// CanTransitionTo reports whether moving to target is allowed.
func (w WorkflowStepStatus) CanTransitionTo(target WorkflowStepStatus) bool {
	for _, candidate := range workflowStepTransitions[w] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseWorkflowStepStatus converts raw input into a WorkflowStepStatus.
func ParseWorkflowStepStatus(value string) (WorkflowStepStatus, error) {
	for _, candidate := range validWorkflowStepStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow step status %q", value)
}
