package pricing

import (
	"fmt"

	"tariff-engine/internal/catalog"
)

// ApplyBilling turns the unit price of it into a final price against m.
// Height, width and area billing multiply by the measurement, switching to
// the substitute when the measurement is under a configured minimum. Every
// other billing id is a flat unit charge.
func ApplyBilling(it Item, m catalog.Measure) Item {
	it = it.clone()
	it.Quantity = 1
	it.UsedMinMeasure = false
	it.PieceID = m.ID
	it.PieceRelated = m.ID != "" && m.ID != catalog.GeneralMeasureID

	switch it.BillingID {
	case catalog.BillingHeight:
		return billMeasured(it, m.Height)
	case catalog.BillingWidth:
		return billMeasured(it, m.Width)
	case catalog.BillingArea:
		return billMeasured(it, m.Area)
	default:
		it.BillingID = catalog.BillingUnit
		it.Price = it.UnitPrice
		it.MethodUsed = 1
		it.Method = "unit: 1 x " + formatAmount(it.UnitPrice)
		return it
	}
}

func billMeasured(it Item, measured float64) Item {
	used := measured
	if it.MinMeasurement > 0 && measured < it.MinMeasurement {
		used = it.MinMeasurementSubstitute
		if used == 0 {
			used = it.MinMeasurement
		}
		it.UsedMinMeasure = true
	}

	it.Price = it.UnitPrice * used
	it.MethodUsed = used
	it.Method = fmt.Sprintf("%s: %s x %s", it.BillingID, formatAmount(used), formatAmount(it.UnitPrice))
	if it.UsedMinMeasure {
		it.Method += fmt.Sprintf(" (minimum, measured %s)", formatAmount(measured))
	}
	return it
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
