// Package diffengine implements the structural domain diff (spec.md
// §4.9): given two parsed domains, it produces a deterministic,
// order-independent report classifying every change as breaking,
// compatible, or patch.
package diffengine

import (
	"sort"

	"github.com/specverify/verifier/internal/ast"
)

// Severity is the closed classification of a single change.
type Severity string

const (
	SeverityBreaking   Severity = "breaking"
	SeverityCompatible Severity = "compatible"
	SeverityPatch      Severity = "patch"
)

// rank orders severities so the most severe sub-change wins when an entry
// aggregates several.
func (s Severity) rank() int {
	switch s {
	case SeverityBreaking:
		return 2
	case SeverityCompatible:
		return 1
	default:
		return 0
	}
}

func maxSeverity(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Status is whether a named declaration was added, removed, or changed
// between the two domains.
type Status string

const (
	StatusAdded   Status = "added"
	StatusRemoved Status = "removed"
	StatusChanged Status = "changed"
)

// FieldChange describes one field whose presence or type differs between
// the two sides of a changed entity/behavior-input.
type FieldChange struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	OldType  string   `json:"oldType,omitempty"`
	NewType  string   `json:"newType,omitempty"`
	Severity Severity `json:"severity"`
}

// ExprListDiff is the multiset diff of two expression lists (preconditions,
// invariants, ...), sorted by serialized form for determinism.
type ExprListDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

func (d ExprListDiff) isEmpty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// diffExprMultiset compares two expression lists as multisets of their
// canonical serialized forms.
func diffExprMultiset(oldList, newList []ast.Expression) ExprListDiff {
	oldCounts := map[string]int{}
	for _, e := range oldList {
		oldCounts[SerializeExpr(e)]++
	}
	newCounts := map[string]int{}
	for _, e := range newList {
		newCounts[SerializeExpr(e)]++
	}
	var added, removed []string
	for s, n := range newCounts {
		if d := n - oldCounts[s]; d > 0 {
			for i := 0; i < d; i++ {
				added = append(added, s)
			}
		}
	}
	for s, n := range oldCounts {
		if d := n - newCounts[s]; d > 0 {
			for i := 0; i < d; i++ {
				removed = append(removed, s)
			}
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return ExprListDiff{Added: added, Removed: removed}
}

// EntityDiff is one entity's added/removed/changed entry.
type EntityDiff struct {
	Name          string        `json:"name"`
	Status        Status        `json:"status"`
	FieldChanges  []FieldChange `json:"fieldChanges,omitempty"`
	InvariantDiff ExprListDiff  `json:"invariantDiff"`
	Severity      Severity      `json:"severity"`
}

// ErrorListDiff is the added/removed diff of a behavior's declared error
// names.
type ErrorListDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// BehaviorDiff is one behavior's added/removed/changed entry.
type BehaviorDiff struct {
	Name                string        `json:"name"`
	Status              Status        `json:"status"`
	InputChanges        []FieldChange `json:"inputChanges,omitempty"`
	SuccessTypeChanged   bool          `json:"successTypeChanged,omitempty"`
	OldSuccessType      string        `json:"oldSuccessType,omitempty"`
	NewSuccessType      string        `json:"newSuccessType,omitempty"`
	Errors              ErrorListDiff `json:"errors"`
	PreconditionDiff    ExprListDiff  `json:"preconditionDiff"`
	PostconditionDiff   ExprListDiff  `json:"postconditionDiff"`
	Severity            Severity      `json:"severity"`
}

// TypeDiff is one named type declaration's added/removed/changed entry.
type TypeDiff struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	OldDef   string   `json:"oldDef,omitempty"`
	NewDef   string   `json:"newDef,omitempty"`
	Severity Severity `json:"severity"`
}

// Summary holds per-category counts and severity totals.
type Summary struct {
	EntitiesAdded     int  `json:"entitiesAdded"`
	EntitiesRemoved   int  `json:"entitiesRemoved"`
	EntitiesChanged   int  `json:"entitiesChanged"`
	BehaviorsAdded    int  `json:"behaviorsAdded"`
	BehaviorsRemoved  int  `json:"behaviorsRemoved"`
	BehaviorsChanged  int  `json:"behaviorsChanged"`
	TypesAdded        int  `json:"typesAdded"`
	TypesRemoved      int  `json:"typesRemoved"`
	TypesChanged      int  `json:"typesChanged"`
	BreakingChanges   int  `json:"breakingChanges"`
	CompatibleChanges int  `json:"compatibleChanges"`
	PatchChanges      int  `json:"patchChanges"`
}

// DomainDiff is the full structured diff between two domains.
type DomainDiff struct {
	Entities       []EntityDiff   `json:"entities,omitempty"`
	Behaviors      []BehaviorDiff `json:"behaviors,omitempty"`
	Types          []TypeDiff     `json:"types,omitempty"`
	VersionChanged bool           `json:"versionChanged,omitempty"`
	OldVersion     string         `json:"oldVersion,omitempty"`
	NewVersion     string         `json:"newVersion,omitempty"`
	Summary        Summary        `json:"summary"`
	IsEmpty        bool           `json:"isEmpty"`
}

// Diff compares two domains and returns the full structured report.
// a and b may be the same value (diff(A,A).isEmpty == true, per spec.md §8
// property 2).
func Diff(a, b *ast.Domain) *DomainDiff {
	d := &DomainDiff{}
	d.Entities = diffEntities(a, b, &d.Summary)
	d.Behaviors = diffBehaviors(a, b, &d.Summary)
	d.Types = diffTypes(a, b, &d.Summary)
	d.OldVersion, d.NewVersion = a.Version, b.Version
	d.VersionChanged = a.Version != b.Version
	structurallyEmpty := len(d.Entities) == 0 && len(d.Behaviors) == 0 && len(d.Types) == 0
	if d.VersionChanged && structurallyEmpty {
		// A pure version bump is a compatible release with no content.
		tallySeverity(&d.Summary, SeverityCompatible)
	}
	d.IsEmpty = structurallyEmpty && !d.VersionChanged
	return d
}

func sortedUnion(a, b map[string]bool) []string {
	seen := map[string]bool{}
	var names []string
	for n := range a {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range b {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func tally(summary *Summary, category string, status Status) {
	switch category {
	case "entity":
		switch status {
		case StatusAdded:
			summary.EntitiesAdded++
		case StatusRemoved:
			summary.EntitiesRemoved++
		case StatusChanged:
			summary.EntitiesChanged++
		}
	case "behavior":
		switch status {
		case StatusAdded:
			summary.BehaviorsAdded++
		case StatusRemoved:
			summary.BehaviorsRemoved++
		case StatusChanged:
			summary.BehaviorsChanged++
		}
	case "type":
		switch status {
		case StatusAdded:
			summary.TypesAdded++
		case StatusRemoved:
			summary.TypesRemoved++
		case StatusChanged:
			summary.TypesChanged++
		}
	}
}

func tallySeverity(summary *Summary, sev Severity) {
	switch sev {
	case SeverityBreaking:
		summary.BreakingChanges++
	case SeverityCompatible:
		summary.CompatibleChanges++
	case SeverityPatch:
		summary.PatchChanges++
	}
}

func diffEntities(a, b *ast.Domain, summary *Summary) []EntityDiff {
	oldMap := map[string]*ast.Entity{}
	newMap := map[string]*ast.Entity{}
	oldSet := map[string]bool{}
	newSet := map[string]bool{}
	for _, e := range a.Entities {
		oldMap[e.Name] = e
		oldSet[e.Name] = true
	}
	for _, e := range b.Entities {
		newMap[e.Name] = e
		newSet[e.Name] = true
	}

	var out []EntityDiff
	for _, name := range sortedUnion(oldSet, newSet) {
		oldE, inOld := oldMap[name]
		newE, inNew := newMap[name]
		switch {
		case inOld && !inNew:
			out = append(out, EntityDiff{Name: name, Status: StatusRemoved, Severity: SeverityBreaking})
			tally(summary, "entity", StatusRemoved)
			tallySeverity(summary, SeverityBreaking)
		case !inOld && inNew:
			out = append(out, EntityDiff{Name: name, Status: StatusAdded, Severity: SeverityCompatible})
			tally(summary, "entity", StatusAdded)
			tallySeverity(summary, SeverityCompatible)
		default:
			if fc, invDiff, sev, changed := diffEntityBody(oldE, newE); changed {
				out = append(out, EntityDiff{Name: name, Status: StatusChanged, FieldChanges: fc, InvariantDiff: invDiff, Severity: sev})
				tally(summary, "entity", StatusChanged)
				tallySeverity(summary, sev)
			}
		}
	}
	return out
}

func diffFields(oldFields, newFields []*ast.Field) ([]FieldChange, Severity, bool) {
	oldMap := map[string]*ast.Field{}
	newMap := map[string]*ast.Field{}
	oldSet := map[string]bool{}
	newSet := map[string]bool{}
	for _, f := range oldFields {
		oldMap[f.Name] = f
		oldSet[f.Name] = true
	}
	for _, f := range newFields {
		newMap[f.Name] = f
		newSet[f.Name] = true
	}

	var changes []FieldChange
	sev := SeverityPatch
	changed := false
	for _, name := range sortedUnion(oldSet, newSet) {
		oldF, inOld := oldMap[name]
		newF, inNew := newMap[name]
		switch {
		case inOld && !inNew:
			changes = append(changes, FieldChange{Name: name, Status: StatusRemoved, OldType: SerializeType(oldF.Type), Severity: SeverityBreaking})
			sev = maxSeverity(sev, SeverityBreaking)
			changed = true
		case !inOld && inNew:
			fieldSev := SeverityCompatible
			if !newF.Optional {
				fieldSev = SeverityBreaking
			}
			changes = append(changes, FieldChange{Name: name, Status: StatusAdded, NewType: SerializeType(newF.Type), Severity: fieldSev})
			sev = maxSeverity(sev, fieldSev)
			changed = true
		default:
			oldType := SerializeType(oldF.Type)
			newType := SerializeType(newF.Type)
			typeChanged := oldType != newType
			becameRequired := oldF.Optional && !newF.Optional
			if typeChanged || becameRequired {
				fieldSev := SeverityBreaking
				changes = append(changes, FieldChange{
					Name: name, Status: StatusChanged, OldType: oldType, NewType: newType, Severity: fieldSev,
				})
				sev = maxSeverity(sev, fieldSev)
				changed = true
			}
		}
	}
	return changes, sev, changed
}

func diffEntityBody(oldE, newE *ast.Entity) ([]FieldChange, ExprListDiff, Severity, bool) {
	fieldChanges, fieldSev, fieldsChanged := diffFields(oldE.Fields, newE.Fields)
	invDiff := diffExprMultiset(oldE.Invariants, newE.Invariants)

	sev := fieldSev
	if len(invDiff.Added) > 0 {
		sev = maxSeverity(sev, SeverityBreaking)
	} else if len(invDiff.Removed) > 0 {
		sev = maxSeverity(sev, SeverityCompatible)
	}
	changed := fieldsChanged || !invDiff.isEmpty()
	if !changed {
		return nil, ExprListDiff{}, SeverityPatch, false
	}
	return fieldChanges, invDiff, sev, true
}

func diffBehaviors(a, b *ast.Domain, summary *Summary) []BehaviorDiff {
	oldMap := map[string]*ast.Behavior{}
	newMap := map[string]*ast.Behavior{}
	oldSet := map[string]bool{}
	newSet := map[string]bool{}
	for _, be := range a.Behaviors {
		oldMap[be.Name] = be
		oldSet[be.Name] = true
	}
	for _, be := range b.Behaviors {
		newMap[be.Name] = be
		newSet[be.Name] = true
	}

	var out []BehaviorDiff
	for _, name := range sortedUnion(oldSet, newSet) {
		oldB, inOld := oldMap[name]
		newB, inNew := newMap[name]
		switch {
		case inOld && !inNew:
			out = append(out, BehaviorDiff{Name: name, Status: StatusRemoved, Severity: SeverityBreaking})
			tally(summary, "behavior", StatusRemoved)
			tallySeverity(summary, SeverityBreaking)
		case !inOld && inNew:
			out = append(out, BehaviorDiff{Name: name, Status: StatusAdded, Severity: SeverityCompatible})
			tally(summary, "behavior", StatusAdded)
			tallySeverity(summary, SeverityCompatible)
		default:
			if bd, ok := diffBehaviorBody(oldB, newB); ok {
				bd.Name = name
				bd.Status = StatusChanged
				out = append(out, bd)
				tally(summary, "behavior", StatusChanged)
				tallySeverity(summary, bd.Severity)
			}
		}
	}
	return out
}

func diffBehaviorBody(oldB, newB *ast.Behavior) (BehaviorDiff, bool) {
	inputChanges, inputSev, inputChanged := diffFields(oldB.Input, newB.Input)

	oldSuccess := SerializeType(oldB.Output.Success)
	newSuccess := SerializeType(newB.Output.Success)
	successChanged := oldSuccess != newSuccess

	oldErrs := map[string]bool{}
	newErrs := map[string]bool{}
	for _, e := range oldB.Output.Errors {
		oldErrs[e.Name] = true
	}
	for _, e := range newB.Output.Errors {
		newErrs[e.Name] = true
	}
	var errsAdded, errsRemoved []string
	for _, n := range sortedUnion(oldErrs, newErrs) {
		if oldErrs[n] && !newErrs[n] {
			errsRemoved = append(errsRemoved, n)
		} else if !oldErrs[n] && newErrs[n] {
			errsAdded = append(errsAdded, n)
		}
	}

	preDiff := diffExprMultiset(oldB.Preconditions, newB.Preconditions)
	postDiff := diffExprMultiset(flattenPostconditions(oldB.Postconditions), flattenPostconditions(newB.Postconditions))

	sev := inputSev
	if successChanged {
		sev = maxSeverity(sev, SeverityBreaking)
	}
	if len(errsRemoved) > 0 {
		sev = maxSeverity(sev, SeverityBreaking)
	}
	if len(errsAdded) > 0 {
		sev = maxSeverity(sev, SeverityCompatible)
	}
	if len(preDiff.Added) > 0 {
		sev = maxSeverity(sev, SeverityBreaking)
	} else if len(preDiff.Removed) > 0 {
		sev = maxSeverity(sev, SeverityCompatible)
	}
	if len(postDiff.Added) > 0 {
		sev = maxSeverity(sev, SeverityCompatible)
	} else if len(postDiff.Removed) > 0 {
		sev = maxSeverity(sev, SeverityBreaking)
	}

	changed := inputChanged || successChanged || len(errsAdded) > 0 || len(errsRemoved) > 0 || !preDiff.isEmpty() || !postDiff.isEmpty()
	if !changed {
		return BehaviorDiff{}, false
	}

	return BehaviorDiff{
		InputChanges:       inputChanges,
		SuccessTypeChanged: successChanged,
		OldSuccessType:     oldSuccess,
		NewSuccessType:     newSuccess,
		Errors:             ErrorListDiff{Added: errsAdded, Removed: errsRemoved},
		PreconditionDiff:   preDiff,
		PostconditionDiff:  postDiff,
		Severity:           sev,
	}, true
}

func flattenPostconditions(blocks []*ast.PostconditionBlock) []ast.Expression {
	var out []ast.Expression
	for _, blk := range blocks {
		out = append(out, blk.Predicates...)
	}
	return out
}

func diffTypes(a, b *ast.Domain, summary *Summary) []TypeDiff {
	oldMap := map[string]*ast.TypeDecl{}
	newMap := map[string]*ast.TypeDecl{}
	oldSet := map[string]bool{}
	newSet := map[string]bool{}
	for _, t := range a.Types {
		oldMap[t.Name] = t
		oldSet[t.Name] = true
	}
	for _, t := range b.Types {
		newMap[t.Name] = t
		newSet[t.Name] = true
	}

	var out []TypeDiff
	for _, name := range sortedUnion(oldSet, newSet) {
		oldT, inOld := oldMap[name]
		newT, inNew := newMap[name]
		switch {
		case inOld && !inNew:
			out = append(out, TypeDiff{Name: name, Status: StatusRemoved, Severity: SeverityBreaking})
			tally(summary, "type", StatusRemoved)
			tallySeverity(summary, SeverityBreaking)
		case !inOld && inNew:
			out = append(out, TypeDiff{Name: name, Status: StatusAdded, Severity: SeverityCompatible})
			tally(summary, "type", StatusAdded)
			tallySeverity(summary, SeverityCompatible)
		default:
			oldDef := SerializeType(oldT.Definition)
			newDef := SerializeType(newT.Definition)
			if oldDef != newDef {
				out = append(out, TypeDiff{Name: name, Status: StatusChanged, OldDef: oldDef, NewDef: newDef, Severity: SeverityBreaking})
				tally(summary, "type", StatusChanged)
				tallySeverity(summary, SeverityBreaking)
			}
		}
	}
	return out
}
