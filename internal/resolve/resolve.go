// Package resolve bridges the trace evaluator's not_proven verdicts into
// the SMT layer (spec.md §4.11): every clause the trace evidence could
// not settle gets one more shot at a definite proved/disproved answer,
// bounded by a per-clause and a global wall-clock budget.
package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/specverify/verifier/internal/smt"
	"github.com/specverify/verifier/internal/trace"
)

// ResolvedStatus is the closed outcome of one SMT resolution attempt.
type ResolvedStatus string

const (
	StatusProved       ResolvedStatus = "proved"
	StatusDisproved    ResolvedStatus = "disproved"
	StatusStillUnknown ResolvedStatus = "still_unknown"
)

// SolverEvidence is the audit record spec.md §4.11 attaches to every
// resolution attempt.
type SolverEvidence struct {
	QueryHash     string                 `json:"queryHash"`
	Solver        string                 `json:"solver"`
	SolverVersion string                 `json:"solverVersion,omitempty"`
	Status        string                 `json:"status"`
	Model         map[string]interface{} `json:"model,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	DurationMs    int64                  `json:"durationMs"`
	SMTLibQuery   string                 `json:"smtLibQuery,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Resolution is one clause's SMT-resolution outcome, before it is merged
// back onto the clause's trace evidence.
type Resolution struct {
	ClauseID       string
	Status         ResolvedStatus
	TriStateResult trace.Tri
	SMTEvidence    *SolverEvidence
	UnknownReason  smt.UnknownReason
}

// Budgets are the two wall-clock limits spec.md §4.11 requires.
type Budgets struct {
	TimeoutPerClause time.Duration
	GlobalTimeout    time.Duration
}

// DefaultBudgets returns the spec's default 5s-per-clause / 60s-global
// limits.
func DefaultBudgets() Budgets {
	return Budgets{TimeoutPerClause: 5 * time.Second, GlobalTimeout: 60 * time.Second}
}

// QueryCache is an optional store of previously settled queries, keyed
// by query hash; internal/reportstore satisfies it. Only definite
// (sat/unsat) outcomes belong in the cache — a solve is deterministic,
// so a settled query never needs re-solving.
type QueryCache interface {
	GetQuery(queryHash string) (*SolverEvidence, bool, error)
	PutQuery(ev SolverEvidence) error
}

// Resolver wraps a safe solver with the resolution loop's budgets and
// audit metadata.
type Resolver struct {
	Solver        *smt.SafeSolver
	Budgets       Budgets
	SolverName    string
	SolverVersion string
	// Cache, when non-nil, is consulted before every solver call and
	// written after every call that ends sat or unsat.
	Cache QueryCache
}

// NewResolver returns a Resolver backed by solver, using budgets (zero
// value is invalid; start from DefaultBudgets()).
func NewResolver(solver *smt.SafeSolver, budgets Budgets, solverName string) *Resolver {
	return &Resolver{Solver: solver, Budgets: budgets, SolverName: solverName}
}

// Resolve attempts SMT resolution for every not_proven clause in
// clauses, in order, stopping early (marking every remaining clause
// "global budget exceeded" without a further solver call) once the
// global timeout elapses — per spec.md §5's single-threaded, clauses
// resolved "one at a time" requirement, so the budget depletes
// deterministically.
func (r *Resolver) Resolve(clauses []trace.ClauseEvidence) []Resolution {
	var out []Resolution
	start := time.Now()
	for _, ce := range clauses {
		if ce.Status != trace.StatusNotProven {
			continue
		}
		if time.Since(start) >= r.Budgets.GlobalTimeout {
			out = append(out, Resolution{
				ClauseID:      ce.ClauseID,
				Status:        StatusStillUnknown,
				TriStateResult: trace.TriUnknown,
				UnknownReason: smt.ReasonResourceLimit,
				SMTEvidence: &SolverEvidence{
					Solver: r.SolverName, Status: string(smt.StatusUnknown),
					Reason: "global budget exceeded", Timestamp: time.Now(),
				},
			})
			continue
		}
		out = append(out, r.resolveOne(ce))
	}
	return out
}

func (r *Resolver) resolveOne(ce trace.ClauseEvidence) Resolution {
	if ce.AST == nil {
		return unresolvable(ce.ClauseID, r.SolverName, "no AST available for clause", smt.ReasonUnclassified)
	}

	ctx := smt.NewTypingContext()
	term, errs := smt.Encode(ce.AST, ctx)
	if len(errs) > 0 {
		return unresolvable(ce.ClauseID, r.SolverName, "encoding error: "+errs[0].Error(), smt.ReasonIncompleteTheory)
	}

	assertion := smt.TaggedAssertion{
		Tag: smt.Tag("resolve", ce.ClauseID, 0), Term: term, Kind: "resolve", OwnerName: ce.ClauseID,
	}

	script, _ := smt.BuildScript([]smt.TaggedAssertion{assertion})
	queryHash := hashQuery(script)

	if r.Cache != nil {
		if cached, ok, err := r.Cache.GetQuery(queryHash); err == nil && ok {
			if res, settled := r.fromCache(ce.ClauseID, cached, script); settled {
				return res
			}
		}
	}

	perClause := r.Budgets.TimeoutPerClause
	if perClause <= 0 {
		perClause = DefaultBudgets().TimeoutPerClause
	}
	grace := perClause / 5

	limits := r.Solver.Limits
	limits.Timeout = perClause
	scoped := smt.NewSafeSolver(r.Solver.Engine, limits)
	token := smt.NewCancelToken()

	type outcome struct{ res *smt.SafeResult }
	done := make(chan outcome, 1)
	go func() {
		done <- outcome{scoped.CheckValid([]smt.TaggedAssertion{assertion}, token)}
	}()

	select {
	case out := <-done:
		return r.interpret(ce.ClauseID, out.res, queryHash, script)
	case <-time.After(perClause + grace):
		token.Cancel()
		return Resolution{
			ClauseID: ce.ClauseID, Status: StatusStillUnknown, TriStateResult: trace.TriUnknown,
			UnknownReason: smt.ReasonTimeout,
			SMTEvidence: &SolverEvidence{
				QueryHash: queryHash, Solver: r.SolverName, Status: string(smt.StatusUnknown),
				Reason: "timed out", DurationMs: (perClause + grace).Milliseconds(),
				SMTLibQuery: script, Timestamp: time.Now(),
			},
		}
	}
}

// fromCache turns a previously settled query into a Resolution without
// another solver call. Anything non-definite in the cache is ignored
// and the clause is solved fresh.
func (r *Resolver) fromCache(clauseID string, cached *SolverEvidence, script string) (Resolution, bool) {
	evidence := *cached
	evidence.SMTLibQuery = script
	switch cached.Status {
	case string(smt.StatusSat):
		return Resolution{ClauseID: clauseID, Status: StatusProved, TriStateResult: trace.TriTrue, SMTEvidence: &evidence}, true
	case string(smt.StatusUnsat):
		return Resolution{ClauseID: clauseID, Status: StatusDisproved, TriStateResult: trace.TriFalse, SMTEvidence: &evidence}, true
	default:
		return Resolution{}, false
	}
}

// interpret maps a CheckValid result onto proved/disproved/still_unknown:
// CheckValid already flips sat/unsat so that Sat means "valid" (proved)
// and Unsat carries the negation's satisfying model as a counterexample
// (disproved).
func (r *Resolver) interpret(clauseID string, res *smt.SafeResult, queryHash, script string) Resolution {
	evidence := &SolverEvidence{
		QueryHash: queryHash, Solver: r.SolverName, SolverVersion: r.SolverVersion,
		Status: string(res.Status), Model: res.Model, Reason: res.Reason,
		DurationMs: res.WallTimeMs, SMTLibQuery: script, Timestamp: time.Now(),
	}
	switch {
	case res.Status == smt.StatusSat:
		r.cachePut(evidence)
		return Resolution{ClauseID: clauseID, Status: StatusProved, TriStateResult: trace.TriTrue, SMTEvidence: evidence}
	case res.Status == smt.StatusUnsat:
		r.cachePut(evidence)
		return Resolution{ClauseID: clauseID, Status: StatusDisproved, TriStateResult: trace.TriFalse, SMTEvidence: evidence}
	default:
		return Resolution{
			ClauseID: clauseID, Status: StatusStillUnknown, TriStateResult: trace.TriUnknown,
			UnknownReason: smt.ClassifyUnknown(res), SMTEvidence: evidence,
		}
	}
}

func (r *Resolver) cachePut(ev *SolverEvidence) {
	if r.Cache == nil {
		return
	}
	// A cache write failing never fails the resolution.
	_ = r.Cache.PutQuery(*ev)
}

func unresolvable(clauseID, solverName, reason string, unknownReason smt.UnknownReason) Resolution {
	return Resolution{
		ClauseID: clauseID, Status: StatusStillUnknown, TriStateResult: trace.TriUnknown,
		UnknownReason: unknownReason,
		SMTEvidence: &SolverEvidence{
			Solver: solverName, Status: string(smt.StatusError), Reason: reason, Timestamp: time.Now(),
		},
	}
}

func hashQuery(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

// ResolvedClause is a clause's evaluator evidence, possibly updated by a
// successful SMT resolution.
type ResolvedClause struct {
	trace.ClauseEvidence
	SMTEvidence *SolverEvidence `json:"smtEvidence,omitempty"`
	ResolvedBy  string          `json:"resolvedBy,omitempty"`
}

// Merge applies resolutions back onto clauses: a pure, keyed-by-clause-id
// merge where only proved/disproved resolutions update status and
// triStateResult (spec.md §4.11); still_unknown resolutions still attach
// their solver evidence for audit, without changing the clause's status.
func Merge(clauses []trace.ClauseEvidence, resolutions []Resolution) []ResolvedClause {
	byID := map[string]Resolution{}
	for _, res := range resolutions {
		byID[res.ClauseID] = res
	}
	out := make([]ResolvedClause, len(clauses))
	for i, ce := range clauses {
		rc := ResolvedClause{ClauseEvidence: ce}
		res, ok := byID[ce.ClauseID]
		if !ok {
			out[i] = rc
			continue
		}
		rc.SMTEvidence = res.SMTEvidence
		if res.Status == StatusProved || res.Status == StatusDisproved {
			rc.ResolvedBy = "runtime_then_smt"
			rc.TriStateResult = res.TriStateResult
			if res.Status == StatusProved {
				rc.Status = trace.StatusProven
			} else {
				rc.Status = trace.StatusViolated
			}
		}
		out[i] = rc
	}
	return out
}
