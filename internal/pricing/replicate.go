package pricing

import (
	"fmt"

	"tariff-engine/internal/catalog"
)

const generalSuffix = "(General)"

// Replicate expands a template into billed items.
//
// A GENERAL charge yields one item billed against the summed measures.
// A template of the general group yields one item per piece when the
// configuration has more than one. Anything else yields one item billed
// against the piece at groupIndex.
func Replicate(it Item, charge catalog.ChargeType, cfg catalog.Configuration, groupIndex int, generalGroup bool) []Item {
	switch {
	case charge == catalog.ChargeGeneral:
		general := it.clone()
		general.Name = fmt.Sprintf("%s %s", it.Name, generalSuffix)
		return []Item{ApplyBilling(general, cfg.TotalMeasure())}

	case generalGroup && len(cfg.Measures) > 1:
		items := make([]Item, 0, len(cfg.Measures))
		for i, m := range cfg.Measures {
			piece := it.clone()
			piece.Name = pieceName(it.Name, i)
			piece.GroupID = PieceGroupID(it.GroupID, m.ID)
			items = append(items, ApplyBilling(piece, m))
		}
		return items

	default:
		m, idx := cfg.MeasureAt(groupIndex)
		single := it.clone()
		single.Name = pieceName(it.Name, idx)
		return []Item{ApplyBilling(single, m)}
	}
}

// PieceGroupID is the synthetic group id of a general-group item billed
// for one piece.
func PieceGroupID(groupID, measureID string) string {
	return groupID + ":" + measureID
}

func pieceName(name string, idx int) string {
	return fmt.Sprintf("%s (%s)", name, catalog.PieceLetter(idx))
}
