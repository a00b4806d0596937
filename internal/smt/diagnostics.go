package smt

import "strings"

// Counterexample is the evidence produced for a sat result (spec.md
// §4.8): the full model plus which top-level conjuncts evaluate false
// under it, and a short natural-language explanation.
type Counterexample struct {
	Model              map[string]interface{}
	ViolatedAssertions []string
	Explanation        string
}

// ExtractCounterexample walks result's model against assertions' terms,
// tagging any top-level conjunct that evaluates false as violated.
// Callers only invoke this when result.Status == StatusSat.
func ExtractCounterexample(result *SafeResult, assertions []TaggedAssertion) Counterexample {
	ce := Counterexample{Model: result.Model}
	for _, a := range assertions {
		for _, conj := range Conjuncts(a.Term) {
			v, ok := evalBool(conj, result.Model)
			if ok && !v {
				ce.ViolatedAssertions = append(ce.ViolatedAssertions, a.Tag)
				break
			}
		}
	}
	if len(ce.ViolatedAssertions) == 0 {
		ce.Explanation = "a satisfying model exists; no assertion evaluates false under it"
	} else {
		ce.Explanation = "the model satisfies the query overall but falsifies: " + strings.Join(ce.ViolatedAssertions, ", ")
	}
	return ce
}

// UnknownReason is the closed taxonomy spec.md §4.8 classifies an
// unknown/error result into.
type UnknownReason string

const (
	ReasonTimeout         UnknownReason = "timeout"
	ReasonResourceLimit   UnknownReason = "resource_limit"
	ReasonTooComplex      UnknownReason = "too_complex"
	ReasonIncompleteTheory UnknownReason = "incomplete_theory"
	ReasonSolverError     UnknownReason = "solver_error"
	ReasonCancelled       UnknownReason = "cancelled"
	ReasonUnclassified    UnknownReason = "unclassified"
)

// classifyKeywords is the small closed keyword table spec.md §4.8
// names; checked in order so the first match wins.
var classifyKeywords = []struct {
	keyword string
	reason  UnknownReason
}{
	{"timed out", ReasonTimeout},
	{"timeout", ReasonTimeout},
	{"memory", ReasonResourceLimit},
	{"resource", ReasonResourceLimit},
	{"complex", ReasonTooComplex},
	{"theory", ReasonIncompleteTheory},
	{"quantifier", ReasonIncompleteTheory},
	{"solver", ReasonSolverError},
}

// ClassifyUnknown maps a non-definite SafeResult into the closed
// taxonomy, by keyword over the result's Reason/RejectionReason field.
func ClassifyUnknown(result *SafeResult) UnknownReason {
	if result.Cancelled {
		return ReasonCancelled
	}
	if result.Rejected {
		return ReasonResourceLimit
	}
	if result.Status == StatusError {
		return ReasonSolverError
	}
	msg := strings.ToLower(result.Reason)
	for _, k := range classifyKeywords {
		if strings.Contains(msg, k.keyword) {
			return k.reason
		}
	}
	return ReasonUnclassified
}

// UnsatAnalysis is the result of isolating a minimal unsat core and
// resolving its tags back to DSL source (spec.md §4.8).
type UnsatAnalysis struct {
	CoreTags  []string
	IsMinimal bool
	Entries   []SourceMapEntry
}

// Solve is the callback AnalyzeUnsat uses to re-check a candidate subset
// for unsatisfiability during deletion-based minimization.
type Solve func(subset []TaggedAssertion) *SafeResult

// AnalyzeUnsat isolates a minimal unsat core. If coreTagsHint is
// supplied (e.g. the underlying engine already reports one), it is
// trusted directly; otherwise deletion-based minimization re-solves with
// one assertion removed at a time, keeping the removal only when the
// remainder is still unsat, until no further assertion can be dropped.
// A single-constraint result is marked IsMinimal.
func AnalyzeUnsat(assertions []TaggedAssertion, solve Solve, sourceMap *SourceMap, coreTagsHint []string) UnsatAnalysis {
	var core []TaggedAssertion
	if len(coreTagsHint) > 0 {
		hinted := map[string]bool{}
		for _, tag := range coreTagsHint {
			hinted[tag] = true
		}
		for _, a := range assertions {
			if hinted[a.Tag] {
				core = append(core, a)
			}
		}
	} else {
		core = minimizeCore(assertions, solve)
	}

	tags := make([]string, len(core))
	var entries []SourceMapEntry
	for i, a := range core {
		tags[i] = a.Tag
		if sourceMap != nil {
			if e, ok := sourceMap.Resolve(a.Tag); ok {
				entries = append(entries, e)
			}
		}
	}
	return UnsatAnalysis{CoreTags: tags, IsMinimal: len(core) == 1, Entries: entries}
}

func minimizeCore(assertions []TaggedAssertion, solve Solve) []TaggedAssertion {
	core := append([]TaggedAssertion{}, assertions...)
	for i := 0; i < len(core); {
		candidate := append(append([]TaggedAssertion{}, core[:i]...), core[i+1:]...)
		if len(candidate) == 0 {
			i++
			continue
		}
		res := solve(candidate)
		if res != nil && res.Status == StatusUnsat {
			core = candidate
			continue
		}
		i++
	}
	return core
}
