package tags

// Thresholds holds the two pruning passes applied after mapping.
type Thresholds struct {
	// Absolute is the minimum vote count a tag needs.
	Absolute int
	// Percentage (0-100) is taken of the average count at Ranks.
	Percentage float64
	// Ranks are the 1-based places averaged into the percentage base.
	Ranks []int
}

// Report describes one Thresholds.Apply run.
type Report struct {
	Mapped              map[string]int
	AfterAbsolute       map[string]int
	BaseEntries         []Ranked
	Base                float64
	PercentageThreshold float64
}

// Apply prunes c in place: the absolute pass first, then the percentage pass
// whose base is computed from what survived the absolute pass.
func (t Thresholds) Apply(c *Counter) Report {
	report := Report{Mapped: c.Snapshot()}

	c.ApplyThreshold(float64(t.Absolute))
	report.AfterAbsolute = c.Snapshot()

	for _, r := range c.RankedPositions(t.Ranks) {
		if r.OK {
			report.BaseEntries = append(report.BaseEntries, r)
		}
	}
	report.Base = PercentageBase(report.BaseEntries)
	report.PercentageThreshold = report.Base * t.Percentage / 100

	c.ApplyThreshold(report.PercentageThreshold)
	return report
}

// Aggregate maps shelves and applies thresholds in one call. It has no side
// effects beyond the returned counter.
func Aggregate(shelves map[string]int, mapping Mapping, t Thresholds) (*Counter, Report) {
	counter := mapping.Apply(shelves)
	report := t.Apply(counter)
	return counter, report
}
