package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// ScenarioValidator checks that a loaded market is internally consistent
type ScenarioValidator struct{}

// NewScenarioValidator creates a new scenario validator
func NewScenarioValidator() *ScenarioValidator {
	return &ScenarioValidator{}
}

// ValidationResult contains the results of scenario validation
type ValidationResult struct {
	DuplicateIDs       []string
	UnknownPreferences map[string]string // stand ID -> missing supplier ID
	Warnings           []string
	Errors             []string
}

// Valid reports whether the scenario has no errors; warnings are allowed
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateScenario checks identifiers and supplier references. Stands,
// suppliers and agents share one identifier space because ledgers, locks
// and credentials are keyed by ID.
func (v *ScenarioValidator) ValidateScenario(stands []*entities.Stand, suppliers []*entities.Supplier, agents []*entities.Agent) *ValidationResult {
	result := &ValidationResult{
		DuplicateIDs:       make([]string, 0),
		UnknownPreferences: make(map[string]string),
		Warnings:           make([]string, 0),
		Errors:             make([]string, 0),
	}

	seen := make(map[string]int, len(stands)+len(suppliers)+len(agents))
	for _, s := range stands {
		seen[s.ID]++
	}
	for _, s := range suppliers {
		seen[s.ID]++
	}
	for _, a := range agents {
		seen[a.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			result.DuplicateIDs = append(result.DuplicateIDs, id)
		}
	}
	sort.Strings(result.DuplicateIDs)
	for _, id := range result.DuplicateIDs {
		result.Errors = append(result.Errors, fmt.Sprintf("identifier %s is used %d times", id, seen[id]))
	}

	known := make(map[string]bool, len(suppliers))
	active := 0
	for _, s := range suppliers {
		known[s.ID] = true
		if s.IsActive() {
			active++
		}
	}

	for _, st := range stands {
		preferred := st.AutoOrdering.PreferredSupplierID
		switch {
		case preferred != "" && !known[preferred]:
			result.UnknownPreferences[st.ID] = preferred
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("stand %s prefers unknown supplier %s", st.ID, preferred))
		case preferred == "" && st.AutoOrdering.Enabled:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("stand %s auto-orders but has no preferred supplier", st.ID))
		}
	}

	if len(stands) == 0 {
		result.Errors = append(result.Errors, "scenario has no stands")
	}
	if active == 0 {
		result.Warnings = append(result.Warnings, "scenario has no active suppliers")
	}

	return result
}
