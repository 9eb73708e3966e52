package catalog

// IsItemValid reports whether a tariff entry applies to the configuration.
// Model, line and classification constraints must list the configuration's
// id; each measurement axis must contain at least one piece.
func IsItemValid(entry Entry, cfg Configuration) bool {
	a := entry.Applicability
	if !idAllowed(a.Models, cfg.ModelID) {
		return false
	}
	if !idAllowed(a.Lines, cfg.LineID) {
		return false
	}
	if !idAllowed(a.Classifications, cfg.ClassificationID) {
		return false
	}

	if !anyInRange(cfg.Measures, a.MinWidth, a.MaxWidth, func(m Measure) float64 { return m.Width }) {
		return false
	}
	if !anyInRange(cfg.Measures, a.MinHeight, a.MaxHeight, func(m Measure) float64 { return m.Height }) {
		return false
	}
	return anyInRange(cfg.Measures, a.MinArea, a.MaxArea, func(m Measure) float64 { return m.Area })
}

func idAllowed(allowed []string, id string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == id {
			return true
		}
	}
	return false
}

// anyInRange treats a zero bound as open on that side and a zero pair as
// no constraint at all.
func anyInRange(measures []Measure, min, max float64, axis func(Measure) float64) bool {
	if min == 0 && max == 0 {
		return true
	}
	for _, m := range measures {
		v := axis(m)
		if min != 0 && v < min {
			continue
		}
		if max != 0 && v > max {
			continue
		}
		return true
	}
	return false
}
