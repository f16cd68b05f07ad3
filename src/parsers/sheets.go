// src/parsers/sheets.go
package parsers

import "strings"

// Sheet roles.
const (
	RoleCashflow = "cashflow"
	RolePayables = "payables"
)

// Sheet selection modes.
const (
	SelectionByName     = "by-name"
	SelectionPositional = "positional"
)

// SheetNames configures which sheet plays which role, and the scenario label
// attached to each cashflow sheet.
type SheetNames struct {
	WithPartners         string
	NoPartners           string
	Payables             string
	ScenarioWithPartners string
	ScenarioNoPartners   string
}

// SheetAssignment binds one workbook sheet to a role.
type SheetAssignment struct {
	Sheet    string
	Role     string
	Scenario string // cashflow only
}

// SheetPlan is the result of role assignment. Missing lists the expected sheets
// that are absent; they contribute zero records rather than an error.
type SheetPlan struct {
	Selection   string
	Assignments []SheetAssignment
	Missing     []string
}

// AssignSheets decides the role of each sheet. When any configured name is
// present (trimmed, case-insensitive), roles are assigned by name only.
// Otherwise the first sheet is cashflow, labelled with its own name, and the
// second sheet is payables.
func AssignSheets(sheets []string, names SheetNames) SheetPlan {
	wanted := []SheetAssignment{
		{Sheet: names.WithPartners, Role: RoleCashflow, Scenario: names.ScenarioWithPartners},
		{Sheet: names.NoPartners, Role: RoleCashflow, Scenario: names.ScenarioNoPartners},
		{Sheet: names.Payables, Role: RolePayables},
	}

	var byName []SheetAssignment
	var missing []string
	for _, w := range wanted {
		if strings.TrimSpace(w.Sheet) == "" {
			continue
		}
		actual, ok := findSheet(sheets, w.Sheet)
		if !ok {
			missing = append(missing, w.Sheet)
			continue
		}
		w.Sheet = actual
		byName = append(byName, w)
	}
	if len(byName) > 0 {
		return SheetPlan{Selection: SelectionByName, Assignments: byName, Missing: missing}
	}

	plan := SheetPlan{Selection: SelectionPositional}
	if len(sheets) > 0 {
		plan.Assignments = append(plan.Assignments, SheetAssignment{
			Sheet:    sheets[0],
			Role:     RoleCashflow,
			Scenario: strings.TrimSpace(sheets[0]),
		})
	} else {
		plan.Missing = append(plan.Missing, "sheet 1")
	}
	if len(sheets) > 1 {
		plan.Assignments = append(plan.Assignments, SheetAssignment{Sheet: sheets[1], Role: RolePayables})
	} else {
		plan.Missing = append(plan.Missing, "sheet 2")
	}
	return plan
}

func findSheet(sheets []string, name string) (string, bool) {
	want := strings.TrimSpace(name)
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), want) {
			return s, true
		}
	}
	return "", false
}
