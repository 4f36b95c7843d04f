package progress

import (
	"strings"

	"inspectsync/internal/inspection"
	"inspectsync/internal/services/merge"
)

// Predicate decides whether one requirement of a form is met
type Predicate struct {
	Name      string
	Satisfied func(f inspection.Form) bool
}

// Rule lists the requirements of a field-counted module. Required may depend
// on the form itself, e.g. the test drive outcome.
type Rule struct {
	Required func(f inspection.Form) []Predicate
	Optional []Predicate
}

func filled(fields ...string) []Predicate {
	out := make([]Predicate, 0, len(fields))
	for _, field := range fields {
		field := field
		out = append(out, Predicate{Name: field, Satisfied: func(f inspection.Form) bool { return f.Filled(field) }})
	}
	return out
}

func fixed(fields ...string) func(inspection.Form) []Predicate {
	preds := filled(fields...)
	return func(inspection.Form) []Predicate { return preds }
}

var (
	testDriveCompleted = filled("drivingExperience", "problems", "steering", "brakes", "clutch", "gearShifting", "suspension")
	testDriveAborted   = filled("drivingExperience", "problems", "incompleteReason")
)

func testDriveRequired(f inspection.Form) []Predicate {
	if testDriveDone(f) {
		return testDriveCompleted
	}
	return testDriveAborted
}

func testDriveDone(f inspection.Form) bool {
	return merge.Completed(f["testDriveStatus"])
}

func isTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes"
	}
	return false
}

var defectsRecorded = Predicate{
	Name: "defects",
	Satisfied: func(f inspection.Form) bool {
		return f.Len("defects") > 0 || isTrue(f["noDefects"])
	},
}

// Rules holds the field-counted modules. Modules absent here are flag-only.
var Rules = map[inspection.ModuleKey]Rule{
	inspection.ModuleVehicleIdentity: {
		Required: fixed("make", "model", "variant", "manufacturingYear", "fuelType", "registrationNumber", "odometer"),
		Optional: filled("colour", "ownerCount"),
	},
	inspection.ModuleRCDetails: {
		Required: fixed("rcAvailable", "registrationDate", "chassisNumber", "engineNumber"),
		Optional: filled("hypothecation", "insuranceValidity"),
	},
	inspection.ModuleExterior: {
		Required: fixed("bonnet", "roof", "frontBumper", "rearBumper", "leftFender", "rightFender", "doors", "exteriorImages"),
		Optional: filled("remarks"),
	},
	inspection.ModuleElectricalInterior: {
		Required: fixed("powerWindows", "centralLocking", "dashboard", "seats", "airbags", "musicSystem"),
		Optional: filled("remarks"),
	},
	inspection.ModuleTestDrive: {
		Required: testDriveRequired,
		Optional: filled("remarks"),
	},
	inspection.ModuleEngine: {
		Required: fixed("engineSound", "smoke", "oilLeakage", "coolant", "battery", "engineVideo"),
		Optional: filled("remarks"),
	},
	inspection.ModuleRefurbishmentCost: {
		Required: fixed(),
		Optional: filled("bodyWork", "mechanical", "electrical", "tyres", "interior"),
	},
	inspection.ModuleDefects: {
		Required: func(inspection.Form) []Predicate { return []Predicate{defectsRecorded} },
	},
}

// Missing lists the unsatisfied required fields of a form, in rule order
func Missing(module inspection.ModuleKey, f inspection.Form) []string {
	rule, ok := Rules[module]
	if !ok {
		return nil
	}
	var out []string
	for _, p := range rule.Required(f) {
		if !p.Satisfied(f) {
			out = append(out, p.Name)
		}
	}
	return out
}
