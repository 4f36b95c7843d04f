package progress

import (
	"math"

	"inspectsync/internal/inspection"
)

// ComputeModuleProgress measures one module. A field-counted module is
// evaluated against the local draft when there is one, the server's form
// otherwise. Without either, or for flag-only modules, the server's
// completion flag decides between 0 and 100.
func ComputeModuleProgress(module inspection.ModuleKey, localDraft inspection.Form, remote RemoteSignal) ModuleProgress {
	rule, counted := Rules[module]

	form, source := localDraft, SourceLocal
	if form == nil {
		form, source = remote.Form, SourceRemote
	}

	if !counted || form == nil {
		p := ModuleProgress{Module: module, Counts: FlagOnly(), Source: SourceNone}
		if remote.Completed {
			p.Percent = 100
			p.Source = SourceRemote
		}
		return p
	}

	required := rule.Required(form)
	satisfiedRequired := countSatisfied(required, form)
	satisfiedOptional := countSatisfied(rule.Optional, form)

	p := ModuleProgress{
		Module: module,
		Counts: FieldCounted(len(required), satisfiedRequired, len(rule.Optional), satisfiedOptional),
		Source: source,
	}
	if module == inspection.ModuleDefects {
		p.Entries = form.Len("defects")
	}

	switch {
	case len(required) > 0:
		p.Percent = percent(satisfiedRequired, len(required))
	case len(rule.Optional) > 0:
		p.Percent = percent(satisfiedOptional, len(rule.Optional))
	}
	return p
}

func countSatisfied(preds []Predicate, f inspection.Form) int {
	n := 0
	for _, p := range preds {
		if p.Satisfied(f) {
			n++
		}
	}
	return n
}

func percent(satisfied, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(satisfied) / float64(total)))
}

// Satisfied reports whether one module no longer blocks finalizing.
// Optional-only modules pass once nothing optional is left; defects pass once
// an entry exists or the module reads 100%.
func Satisfied(p ModuleProgress) bool {
	switch {
	case p.Module == inspection.ModuleDefects:
		return p.Entries > 0 || p.Percent == 100
	case p.OptionalOnly():
		left, _ := p.OptionalRemaining()
		return left == 0
	}
	return p.Percent == 100
}

// ComputeOverallReadiness is true when every module is satisfied. An empty
// list is never ready.
func ComputeOverallReadiness(all []ModuleProgress) bool {
	if len(all) == 0 {
		return false
	}
	for _, p := range all {
		if !Satisfied(p) {
			return false
		}
	}
	return true
}
