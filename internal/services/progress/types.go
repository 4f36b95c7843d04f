package progress

import (
	"inspectsync/internal/inspection"
)

// Kind tells how a module's progress was measured
type Kind string

const (
	// KindFlagOnly means only the server's all-or-nothing completion flag is known
	KindFlagOnly Kind = "flag-only"
	// KindFieldCounted means progress comes from a field-by-field tally
	KindFieldCounted Kind = "field-counted"
)

// Counts is either FlagOnly or FieldCounted. Totals are meaningless for FlagOnly.
type Counts struct {
	Kind              Kind `json:"kind"`
	TotalRequired     int  `json:"total_required,omitempty"`
	SatisfiedRequired int  `json:"satisfied_required,omitempty"`
	TotalOptional     int  `json:"total_optional,omitempty"`
	SatisfiedOptional int  `json:"satisfied_optional,omitempty"`
}

// FlagOnly builds flag-only counts
func FlagOnly() Counts {
	return Counts{Kind: KindFlagOnly}
}

// FieldCounted builds field tallies
func FieldCounted(totalRequired, satisfiedRequired, totalOptional, satisfiedOptional int) Counts {
	return Counts{
		Kind:              KindFieldCounted,
		TotalRequired:     totalRequired,
		SatisfiedRequired: satisfiedRequired,
		TotalOptional:     totalOptional,
		SatisfiedOptional: satisfiedOptional,
	}
}

// Source names the input progress was computed from
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceNone   Source = "none"
)

// ModuleProgress is derived on every read and never stored
type ModuleProgress struct {
	Module  inspection.ModuleKey `json:"module"`
	Percent int                  `json:"percent"`
	Counts  Counts               `json:"counts"`
	Source  Source               `json:"source"`
	// Entries is the number of list entries for list modules such as defects
	Entries int `json:"entries,omitempty"`
	// Pending is set when an upload for the module is still queued
	Pending bool `json:"pending,omitempty"`
}

// HasExplicitFieldCounts reports whether the progress comes from a field tally
func (p ModuleProgress) HasExplicitFieldCounts() bool {
	return p.Counts.Kind == KindFieldCounted
}

// RequiredRemaining returns the number of unsatisfied required fields.
// ok is false when only a completion flag is known.
func (p ModuleProgress) RequiredRemaining() (n int, ok bool) {
	if !p.HasExplicitFieldCounts() {
		return 0, false
	}
	return p.Counts.TotalRequired - p.Counts.SatisfiedRequired, true
}

// OptionalRemaining returns the number of unsatisfied optional fields.
// ok is false when only a completion flag is known.
func (p ModuleProgress) OptionalRemaining() (n int, ok bool) {
	if !p.HasExplicitFieldCounts() {
		return 0, false
	}
	return p.Counts.TotalOptional - p.Counts.SatisfiedOptional, true
}

// OptionalOnly reports whether the module has optional fields and no required ones
func (p ModuleProgress) OptionalOnly() bool {
	return p.HasExplicitFieldCounts() && p.Counts.TotalRequired == 0 && p.Counts.TotalOptional > 0
}

// RemoteSignal is what the server knows about one module
type RemoteSignal struct {
	Completed bool
	// Form is the server's field state, nil when the server has none
	Form inspection.Form
}
