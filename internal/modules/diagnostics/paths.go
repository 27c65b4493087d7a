package diagnostics

// DivergenceReport summarises where two extracted paths differ
type DivergenceReport struct {
	// FirstDivergence is the first differing step, or -1 when the paths match
	FirstDivergence int     `json:"first_divergence"`
	Differing       int     `json:"differing"`
	Compared        int     `json:"compared"`
	Fraction        float64 `json:"fraction"`
	Steps           []int   `json:"steps"`
}

// Identical reports whether no step diverged
func (r DivergenceReport) Identical() bool {
	return r.FirstDivergence < 0
}

// ComparePaths aligns two paths by step number. When the lengths differ, the
// steps present in only one path count as divergent.
func ComparePaths(a, b []int) DivergenceReport {
	compared := max(len(a), len(b))
	report := DivergenceReport{
		FirstDivergence: -1,
		Compared:        compared,
		Steps:           []int{},
	}

	for step := 0; step < compared; step++ {
		if step < len(a) && step < len(b) && a[step] == b[step] {
			continue
		}
		if report.FirstDivergence < 0 {
			report.FirstDivergence = step
		}
		report.Steps = append(report.Steps, step)
	}

	report.Differing = len(report.Steps)
	if compared > 0 {
		report.Fraction = float64(report.Differing) / float64(compared)
	}
	return report
}
