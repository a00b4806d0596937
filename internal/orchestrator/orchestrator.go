// Package orchestrator wires the pass framework, trace evaluator, and
// SMT resolver stage into the single end-to-end run spec.md §4.12
// describes, and is the only component that imposes a wall-clock budget
// on the overall run (spec.md §5).
package orchestrator

import (
	"context"
	"time"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
	"github.com/specverify/verifier/internal/resolve"
	"github.com/specverify/verifier/internal/semantic"
	"github.com/specverify/verifier/internal/smt"
	"github.com/specverify/verifier/internal/trace"
)

// Options configures one run. Traces is optional: when empty, the trace
// evaluator and SMT resolver stages are skipped entirely and the report
// carries only static diagnostics.
type Options struct {
	Traces       []trace.Trace
	Budgets      resolve.Budgets
	OverallDeadline time.Duration
	Solver       smt.Engine
	SolverName   string
	FailFast     bool
	// Limits overrides the safe solver's pre-flight caps; the zero
	// value means smt.DefaultLimits().
	Limits smt.Limits
	// DisabledPasses skips registering the named built-in passes.
	DisabledPasses []string
	// QueryCache, when non-nil, lets the SMT stage reuse previously
	// settled queries instead of re-solving them.
	QueryCache resolve.QueryCache
}

// DefaultOptions returns an Options with the default resolver budgets, a
// bounded local decision procedure as the solver backend, and a 90s
// overall deadline (comfortably above the 60s global SMT budget so a
// resolver stage that legitimately uses its whole budget still finishes
// inside the orchestrator's own).
func DefaultOptions() Options {
	return Options{
		Budgets:         resolve.DefaultBudgets(),
		OverallDeadline: 90 * time.Second,
		Solver:          smt.NewLocalEngine(),
		SolverName:      "local-bounded",
	}
}

// PassOutputs summarizes what the static-analysis stage found.
type PassOutputs struct {
	Order   []string                           `json:"order"`
	Results map[string]*passframework.Result   `json:"results"`
}

// Summary is the report's top-level totals.
type Summary struct {
	TotalDiagnostics  int     `json:"totalDiagnostics"`
	ErrorCount        int     `json:"errorCount"`
	WarningCount      int     `json:"warningCount"`
	InfoCount         int     `json:"infoCount"`
	HintCount         int     `json:"hintCount"`
	TotalClauses      int     `json:"totalClauses"`
	ProvenClauses     int     `json:"provenClauses"`
	ViolatedClauses   int     `json:"violatedClauses"`
	NotProvenClauses  int     `json:"notProvenClauses"`
	ResolutionRate    float64 `json:"resolutionRate"`
	DurationMs        int64   `json:"durationMs"`
	OverallTimedOut   bool    `json:"overallTimedOut"`
	BudgetExhausted   bool    `json:"budgetExhausted"`
}

// Report is the orchestrator's single merged output.
type Report struct {
	Diagnostics []*diagnostics.Diagnostic  `json:"diagnostics"`
	PassOutputs PassOutputs                `json:"passOutputs"`
	Clauses     []resolve.ResolvedClause   `json:"clauses"`
	Summary     Summary                    `json:"summary"`
}

// Run executes the full pipeline over domain: passes, then — if
// opts.Traces is non-empty — the trace evaluator and SMT resolver stage,
// merging everything into one Report.
func Run(domain *ast.Domain, opts Options) *Report {
	start := time.Now()
	deadline := opts.OverallDeadline
	if deadline <= 0 {
		deadline = DefaultOptions().OverallDeadline
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	report := &Report{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runInline(domain, opts, report)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		report.Summary.OverallTimedOut = true
	}

	report.Summary.DurationMs = time.Since(start).Milliseconds()
	return report
}

func runInline(domain *ast.Domain, opts Options, report *Report) {
	passCtx := passframework.NewContext(domain)
	disabled := map[string]bool{}
	for _, id := range opts.DisabledPasses {
		disabled[id] = true
	}
	sched := passframework.New()
	for _, p := range []passframework.Pass{
		semantic.Resolver{}, semantic.Purity{}, semantic.Exhaustiveness{}, semantic.Consistency{},
	} {
		if !disabled[p.ID()] {
			sched.Register(p)
		}
	}

	passReport := sched.Run(passCtx, opts.FailFast)
	report.PassOutputs = PassOutputs{Order: passReport.Order, Results: passReport.Results}
	report.Diagnostics = passCtx.Diagnostics.All()

	for _, d := range report.Diagnostics {
		report.Summary.TotalDiagnostics++
		switch d.Severity {
		case diagnostics.SeverityError:
			report.Summary.ErrorCount++
		case diagnostics.SeverityWarning:
			report.Summary.WarningCount++
		case diagnostics.SeverityInfo:
			report.Summary.InfoCount++
		case diagnostics.SeverityHint:
			report.Summary.HintCount++
		}
	}

	if len(opts.Traces) == 0 {
		return
	}

	traceResult := trace.Evaluate(domain, opts.Traces)

	engine := opts.Solver
	if engine == nil {
		engine = smt.NewLocalEngine()
	}
	solverName := opts.SolverName
	if solverName == "" {
		solverName = "local-bounded"
	}
	budgets := opts.Budgets
	if budgets.TimeoutPerClause <= 0 && budgets.GlobalTimeout <= 0 {
		budgets = resolve.DefaultBudgets()
	}

	limits := opts.Limits
	if limits == (smt.Limits{}) {
		limits = smt.DefaultLimits()
	}
	safeSolver := smt.NewSafeSolver(engine, limits)
	resolver := resolve.NewResolver(safeSolver, budgets, solverName)
	resolver.Cache = opts.QueryCache
	resolutions := resolver.Resolve(traceResult.Clauses)
	for _, res := range resolutions {
		if res.SMTEvidence != nil && res.SMTEvidence.Reason == "global budget exceeded" {
			report.Summary.BudgetExhausted = true
			break
		}
	}
	report.Clauses = resolve.Merge(traceResult.Clauses, resolutions)

	report.Summary.TotalClauses = len(report.Clauses)
	for _, c := range report.Clauses {
		switch c.Status {
		case trace.StatusProven:
			report.Summary.ProvenClauses++
		case trace.StatusViolated:
			report.Summary.ViolatedClauses++
		default:
			report.Summary.NotProvenClauses++
		}
	}
	if report.Summary.TotalClauses > 0 {
		resolved := report.Summary.ProvenClauses + report.Summary.ViolatedClauses
		report.Summary.ResolutionRate = float64(resolved) / float64(report.Summary.TotalClauses)
	}
}
