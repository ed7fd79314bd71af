package manufacturing

import (
	"math"
	"strings"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/google/uuid"
)

// DefaultStages is the flow applied when neither the product nor its
// sub-components declare their own manufacturing steps.
var DefaultStages = []string{
	"Inward",
	"QC",
	"Components Assembly",
	"Final Assembly",
	"Testing",
	"Packaging",
	"Completed",
}

// assemblyTail closes out a sub-component-derived plan.
var assemblyTail = []string{
	"Final Assembly",
	"Testing",
	"Packaging",
	"Completed",
}

// PlannedStage is one entry of a batch's resolved stage plan.
type PlannedStage struct {
	Name           string
	SubComponentID *uuid.UUID
}

// ResolvePlan derives the ordered stage list for a product. Product-level
// steps win outright; otherwise sub-component steps are flattened in position
// order and the assembly tail is appended; a product with neither gets the
// default flow.
func ResolvePlan(product *models.Product) []PlannedStage {
	if product != nil && len(product.ManufacturingSteps) > 0 {
		plan := make([]PlannedStage, 0, len(product.ManufacturingSteps))
		for _, name := range product.ManufacturingSteps {
			plan = append(plan, PlannedStage{Name: name})
		}
		return plan
	}

	if product != nil {
		var plan []PlannedStage
		for i := range product.SubComponents {
			sub := product.SubComponents[i]
			for _, name := range sub.ManufacturingSteps {
				id := sub.ID
				plan = append(plan, PlannedStage{Name: name, SubComponentID: &id})
			}
		}
		if len(plan) > 0 {
			for _, name := range assemblyTail {
				plan = append(plan, PlannedStage{Name: name})
			}
			return plan
		}
	}

	plan := make([]PlannedStage, 0, len(DefaultStages))
	for _, name := range DefaultStages {
		plan = append(plan, PlannedStage{Name: name})
	}
	return plan
}

// StageIndex finds the position of a stage name in the plan, matching
// case-insensitively. Returns -1 when the stage is not part of the plan.
func StageIndex(plan []string, name string) int {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, stage := range plan {
		if strings.ToLower(stage) == needle {
			return i
		}
	}
	return -1
}

// ProgressAt computes percent completion for a zero-based stage index in a
// plan of n stages. The last stage is always 100; a single-stage plan is
// complete the moment it starts.
func ProgressAt(idx, n int) int {
	if n <= 1 {
		return 100
	}
	if idx >= n-1 {
		return 100
	}
	if idx < 0 {
		return 0
	}
	return int(math.Round(float64(idx) / float64(n-1) * 100))
}
