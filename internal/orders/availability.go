package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestedLine is one product line of an incoming order before availability
// has been resolved.
type RequestedLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Allocation is the resolved split of one line between finished stock and new
// production.
type Allocation struct {
	ProductID     uuid.UUID
	Quantity      int
	FromStock     int
	ToManufacture int
}

// ResolveAvailability splits each requested line against the finished stock
// snapshot. Stock is consumed in line order, so repeated lines for the same
// product draw down the same remaining balance rather than each seeing the
// full amount.
func ResolveAvailability(lines []RequestedLine, stock map[uuid.UUID]int) []Allocation {
	remaining := make(map[uuid.UUID]int, len(stock))
	for id, qty := range stock {
		remaining[id] = qty
	}

	allocations := make([]Allocation, 0, len(lines))
	for _, line := range lines {
		fromStock := remaining[line.ProductID]
		if fromStock > line.Quantity {
			fromStock = line.Quantity
		}
		if fromStock < 0 {
			fromStock = 0
		}
		remaining[line.ProductID] -= fromStock
		allocations = append(allocations, Allocation{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			FromStock:     fromStock,
			ToManufacture: line.Quantity - fromStock,
		})
	}
	return allocations
}

// hundred avoids reallocating the percent divisor per call.
var hundred = decimal.NewFromInt(100)

// ComputeTotal prices an order: the undiscounted line sum, less the discount,
// plus tax on the discounted amount, rounded to currency precision.
func ComputeTotal(quantities []int, unitPrices []decimal.Decimal, discountPercent, gstPercent decimal.Decimal) decimal.Decimal {
	subtotal := decimal.Zero
	for i := range quantities {
		subtotal = subtotal.Add(unitPrices[i].Mul(decimal.NewFromInt(int64(quantities[i]))))
	}
	discounted := subtotal.Mul(decimal.NewFromInt(1).Sub(discountPercent.Div(hundred)))
	total := discounted.Mul(decimal.NewFromInt(1).Add(gstPercent.Div(hundred)))
	return total.Round(2)
}
