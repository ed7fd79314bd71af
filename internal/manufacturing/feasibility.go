package manufacturing

import (
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shortage describes one material that cannot cover the planned production.
type Shortage struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
	Shortfall  decimal.Decimal `json:"shortfall"`
}

// FeasibilityResult reports whether production can start and, if not, what
// is missing. Insufficiency is a result, never an error.
type FeasibilityResult struct {
	Feasible  bool       `json:"feasible"`
	Shortages []Shortage `json:"shortages,omitempty"`
}

// CheckFeasibility verifies every bill-of-materials line against current
// stock for the requested quantity. An empty BOM is vacuously feasible.
// Materials absent from the snapshot count as zero stock.
func CheckFeasibility(bom []models.BOMItem, materials []models.RawMaterial, quantity int) FeasibilityResult {
	byID := make(map[uuid.UUID]models.RawMaterial, len(materials))
	for _, material := range materials {
		byID[material.ID] = material
	}

	result := FeasibilityResult{Feasible: true}
	qty := decimal.NewFromInt(int64(quantity))
	for _, line := range bom {
		required := line.QuantityPerUnit.Mul(qty)
		material, known := byID[line.MaterialID]
		available := decimal.Zero
		name := line.MaterialID.String()
		unit := line.Unit
		if known {
			available = material.StockQuantity
			name = material.Name
			unit = material.Unit
		}
		if available.LessThan(required) {
			result.Feasible = false
			result.Shortages = append(result.Shortages, Shortage{
				MaterialID: line.MaterialID,
				Name:       name,
				Unit:       unit,
				Required:   required,
				Available:  available,
				Shortfall:  required.Sub(available),
			})
		}
	}
	return result
}
