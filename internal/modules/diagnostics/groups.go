package diagnostics

import (
	"fmt"

	"github.com/epoch-iith/qmashup/internal/domain"
)

// GroupTransition marks a step where the path moved to a different parent group
type GroupTransition struct {
	Step int    `json:"step"`
	From string `json:"from"`
	To   string `json:"to"`
}

// GroupReport describes how a path moves between parent groups
type GroupReport struct {
	Sequence    []string          `json:"sequence"`
	Transitions []GroupTransition `json:"transitions"`
	Distinct    int               `json:"distinct"`
	// LongestRun is the longest stretch of consecutive steps in one group
	LongestRun int `json:"longest_run"`
}

// GroupTransitions maps a path onto the parent group of each node.
// groups[i] is the parent group of node i.
func GroupTransitions(path []int, groups []string) (*GroupReport, error) {
	report := &GroupReport{
		Sequence:    make([]string, 0, len(path)),
		Transitions: []GroupTransition{},
	}
	seen := make(map[string]struct{})
	run := 0

	for step, node := range path {
		if node < 0 || node >= len(groups) {
			return nil, fmt.Errorf("%w: path step %d references node %d of %d", domain.ErrInvalidParameter, step, node, len(groups))
		}
		group := groups[node]
		seen[group] = struct{}{}

		if step > 0 && report.Sequence[step-1] != group {
			report.Transitions = append(report.Transitions, GroupTransition{
				Step: step,
				From: report.Sequence[step-1],
				To:   group,
			})
			run = 0
		}
		run++
		report.LongestRun = max(report.LongestRun, run)
		report.Sequence = append(report.Sequence, group)
	}

	report.Distinct = len(seen)
	return report, nil
}
