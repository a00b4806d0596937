package trace

import (
	"fmt"

	"github.com/specverify/verifier/internal/ast"
)

// Status is the closed outcome a clause's trace evidence settles on.
type Status string

const (
	StatusProven     Status = "proven"
	StatusViolated   Status = "violated"
	StatusNotProven  Status = "not_proven"
)

// CheckedAt is when, relative to a behavior invocation, a clause's
// evidence applies.
type CheckedAt string

const (
	CheckedPre        CheckedAt = "pre"
	CheckedPost       CheckedAt = "post"
	CheckedContinuous CheckedAt = "continuous"
)

// Slice is the trace{id, start, end, eventCount} evidence a
// ClauseEvidence cites.
type Slice struct {
	TraceID    string `json:"traceId"`
	Start      string `json:"start"`
	End        string `json:"end"`
	EventCount int    `json:"eventCount"`
}

// ClauseEvidence is one clause's trace-derived verdict (spec.md §4.10).
type ClauseEvidence struct {
	ClauseID       string    `json:"clauseId"`
	Status         Status    `json:"status"`
	TriStateResult Tri       `json:"triStateResult"`
	Reason         string    `json:"reason"`
	TraceSlice     Slice     `json:"traceSlice"`
	CheckedAt      CheckedAt `json:"checkedAt"`

	// AST is the clause's original expression, carried so the SMT
	// resolver stage (C14) can re-encode not_proven clauses.
	AST ast.Expression `json:"-"`
}

func statusOf(t Tri) Status {
	switch t {
	case TriTrue:
		return StatusProven
	case TriFalse:
		return StatusViolated
	default:
		return StatusNotProven
	}
}

func reasonOf(t Tri, checkedAt CheckedAt) string {
	switch t {
	case TriTrue:
		return "trace evidence satisfies the clause"
	case TriFalse:
		return "trace evidence contradicts the clause"
	default:
		return fmt.Sprintf("no %s trace evidence resolves the clause", checkedAt)
	}
}

// ScopeCounts tallies clause outcomes within one scope (precondition,
// postcondition, invariant).
type ScopeCounts struct {
	Proven    int `json:"proven"`
	Violated  int `json:"violated"`
	NotProven int `json:"notProven"`
}

func (c *ScopeCounts) add(s Status) {
	switch s {
	case StatusProven:
		c.Proven++
	case StatusViolated:
		c.Violated++
	case StatusNotProven:
		c.NotProven++
	}
}

// Result is the trace evaluator's full output: every clause's evidence,
// plus counts aggregated by scope and by behavior.
type Result struct {
	Clauses        []ClauseEvidence       `json:"clauses"`
	ByScope        map[string]ScopeCounts `json:"byScope"`
	ByBehavior     map[string]ScopeCounts `json:"byBehavior"`
}

func (r *Result) record(ce ClauseEvidence, scope, behavior string) {
	r.Clauses = append(r.Clauses, ce)
	sc := r.ByScope[scope]
	sc.add(ce.Status)
	r.ByScope[scope] = sc
	bc := r.ByBehavior[behavior]
	bc.add(ce.Status)
	r.ByBehavior[behavior] = bc
}

// Evaluate runs every behavior's pre/postconditions, every
// behavior/entity/domain invariant, against the traces that apply to it,
// producing trace-derived clause evidence (spec.md §4.10). Behaviors with
// no matching trace produce no evidence; entity and domain invariants are
// checked against every supplied trace, since they hold independent of
// which behavior ran.
func Evaluate(domain *ast.Domain, traces []Trace) *Result {
	r := &Result{ByScope: map[string]ScopeCounts{}, ByBehavior: map[string]ScopeCounts{}}

	tracesByBehavior := map[string][]Trace{}
	for _, tr := range traces {
		tracesByBehavior[tr.Behavior] = append(tracesByBehavior[tr.Behavior], tr)
	}

	for _, b := range domain.Behaviors {
		for _, tr := range tracesByBehavior[b.Name] {
			evaluateBehavior(r, b, tr)
		}
	}

	for _, e := range domain.Entities {
		for i, inv := range e.Invariants {
			for _, tr := range traces {
				evaluateOne(r, fmt.Sprintf("%s.invariant[%d]", e.Name, i), inv, "invariant", e.Name, CheckedContinuous, tr)
			}
		}
	}
	for i, inv := range domain.Invariants {
		for _, tr := range traces {
			evaluateOne(r, fmt.Sprintf("domain.invariant[%d]", i), inv, "invariant", "domain", CheckedContinuous, tr)
		}
	}
	return r
}

func evaluateBehavior(r *Result, b *ast.Behavior, tr Trace) {
	for i, pre := range b.Preconditions {
		evaluateOne(r, fmt.Sprintf("%s.precondition[%d]", b.Name, i), pre, "precondition", b.Name, CheckedPre, tr)
	}
	for _, block := range b.Postconditions {
		for i, pred := range block.Predicates {
			id := fmt.Sprintf("%s.postcondition[%s][%d]", b.Name, block.Condition, i)
			evaluateOne(r, id, pred, "postcondition", b.Name, CheckedPost, tr)
		}
	}
	for i, inv := range b.Invariants {
		evaluateOne(r, fmt.Sprintf("%s.invariant[%d]", b.Name, i), inv, "invariant", b.Name, CheckedContinuous, tr)
	}
}

func evaluateOne(r *Result, clauseID string, e ast.Expression, scope, behavior string, checkedAt CheckedAt, tr Trace) {
	pre, post := replay(tr.Events)
	en := newEnv(pre, post, tr.Events)
	// Preconditions are checked against the state as it was before the
	// behavior ran; postconditions and invariants read the final state,
	// with Old(...) explicitly stepping back to pre via withPre().
	en.usePre = checkedAt == CheckedPre
	result := triEval(e, en)
	ce := ClauseEvidence{
		ClauseID:       clauseID,
		Status:         statusOf(result),
		TriStateResult: result,
		Reason:         reasonOf(result, checkedAt),
		CheckedAt:      checkedAt,
		AST:            e,
		TraceSlice: Slice{
			TraceID:    tr.ID,
			Start:      tr.StartTime,
			End:        tr.EndTime,
			EventCount: EventCount(tr.Events),
		},
	}
	r.record(ce, scope, behavior)
}
