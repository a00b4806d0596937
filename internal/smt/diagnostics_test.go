package smt

import (
	"testing"
)

func TestClassifyUnknownKeywords(t *testing.T) {
	cases := []struct {
		result SafeResult
		want   UnknownReason
	}{
		{SafeResult{Status: StatusUnknown, Reason: "solve timed out after 5s"}, ReasonTimeout},
		{SafeResult{Status: StatusUnknown, Reason: "out of memory"}, ReasonResourceLimit},
		{SafeResult{Status: StatusUnknown, Reason: "too complex: domain product exceeds budget"}, ReasonTooComplex},
		{SafeResult{Status: StatusUnknown, Reason: "incomplete theory: uninterpreted terms"}, ReasonIncompleteTheory},
		{SafeResult{Status: StatusUnknown, Reason: "quantifier over unbounded sort"}, ReasonIncompleteTheory},
		{SafeResult{Status: StatusUnknown, Reason: "something else entirely"}, ReasonUnclassified},
		{SafeResult{Status: StatusUnknown, Cancelled: true}, ReasonCancelled},
		{SafeResult{Status: StatusError, Rejected: true, RejectionReason: "too many variables"}, ReasonResourceLimit},
		{SafeResult{Status: StatusError, Reason: "backend crashed"}, ReasonSolverError},
	}
	for _, c := range cases {
		if got := ClassifyUnknown(&c.result); got != c.want {
			t.Errorf("ClassifyUnknown(%q, cancelled=%v, rejected=%v) = %s, want %s",
				c.result.Reason, c.result.Cancelled, c.result.Rejected, got, c.want)
		}
	}
}

func TestExtractCounterexampleTagsViolatedConjuncts(t *testing.T) {
	x := constTerm("x", SortExpr{Base: SortInt})
	assertions := []TaggedAssertion{
		{Tag: "pre_T_0", Term: app(SortExpr{Base: SortBool}, ">", x, intLit(100))},
		{Tag: "pre_T_1", Term: app(SortExpr{Base: SortBool}, "<", x, intLit(200))},
	}
	res := &SafeResult{Status: StatusSat, Model: map[string]interface{}{"x": int64(50)}}

	ce := ExtractCounterexample(res, assertions)
	if len(ce.ViolatedAssertions) != 1 || ce.ViolatedAssertions[0] != "pre_T_0" {
		t.Fatalf("expected only pre_T_0 violated under x=50, got %v", ce.ViolatedAssertions)
	}
	if ce.Model["x"] != int64(50) {
		t.Errorf("counterexample should carry the full model, got %v", ce.Model)
	}
	if ce.Explanation == "" {
		t.Error("expected a natural-language explanation")
	}
}

func TestAnalyzeUnsatTrustsCoreHint(t *testing.T) {
	a := TaggedAssertion{Tag: "pre_T_0", Term: boolLit(true)}
	b := TaggedAssertion{Tag: "pre_T_1", Term: boolLit(false)}
	solveCalls := 0
	solve := func(subset []TaggedAssertion) *SafeResult {
		solveCalls++
		return &SafeResult{Status: StatusUnsat}
	}
	analysis := AnalyzeUnsat([]TaggedAssertion{a, b}, solve, nil, []string{"pre_T_1"})
	if solveCalls != 0 {
		t.Errorf("a supplied core hint must be trusted without re-solving, got %d calls", solveCalls)
	}
	if len(analysis.CoreTags) != 1 || analysis.CoreTags[0] != "pre_T_1" {
		t.Errorf("expected core [pre_T_1], got %v", analysis.CoreTags)
	}
	if !analysis.IsMinimal {
		t.Error("a single-constraint core is minimal by definition")
	}
}

func TestAnalyzeUnsatMinimizesByDeletion(t *testing.T) {
	x := constTerm("x", SortExpr{Base: SortInt})
	lower := TaggedAssertion{Tag: "pre_T_0", Term: app(SortExpr{Base: SortBool}, ">", x, intLit(100))}
	upper := TaggedAssertion{Tag: "pre_T_1", Term: app(SortExpr{Base: SortBool}, "<", x, intLit(50))}
	unrelated := TaggedAssertion{Tag: "pre_T_2", Term: boolLit(true)}

	engine := NewLocalEngine()
	solver := NewSafeSolver(engine, DefaultLimits())
	solve := func(subset []TaggedAssertion) *SafeResult {
		return solver.CheckSat(subset, nil)
	}

	sm := NewSourceMap()
	for _, a := range []TaggedAssertion{lower, upper, unrelated} {
		sm.Add(a)
	}

	analysis := AnalyzeUnsat([]TaggedAssertion{lower, upper, unrelated}, solve, sm, nil)
	if len(analysis.CoreTags) != 2 {
		t.Fatalf("expected the two conflicting bounds as the core, got %v", analysis.CoreTags)
	}
	found := map[string]bool{}
	for _, tag := range analysis.CoreTags {
		found[tag] = true
	}
	if !found["pre_T_0"] || !found["pre_T_1"] {
		t.Errorf("core should be the conflicting bounds, got %v", analysis.CoreTags)
	}
	if analysis.IsMinimal {
		t.Error("a two-constraint core is not marked minimal")
	}
	if len(analysis.Entries) != 2 {
		t.Errorf("expected source map entries for both core tags, got %d", len(analysis.Entries))
	}
}
