package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/cliutil"
	"github.com/specverify/verifier/internal/config"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/diffengine"
	"github.com/specverify/verifier/internal/domainio"
	"github.com/specverify/verifier/internal/orchestrator"
	"github.com/specverify/verifier/internal/reportstore"
	"github.com/specverify/verifier/internal/smt"
	"github.com/specverify/verifier/internal/solverrpc"
)

// Exit codes, per the CLI contract: 0 = clean, 1 = diagnostics with
// severity error or violated clauses, 2 = internal failure, 3 = verify
// budget exhausted.
const (
	exitOK       = 0
	exitDiag     = 1
	exitInternal = 2
	exitBudget   = 3
)

func usage() {
	fmt.Fprintf(os.Stderr, `specverify %s — domain specification compiler and verifier

Usage:
  specverify analyze <spec> [--json]
  specverify diff <old-spec> <new-spec> [--json]
  specverify verify <spec> --traces <file> [--config <verify.yaml>] [--json]
  specverify version

Specs are .json (parser output) or .yaml/.yml (hand-authored) files.
Traces are JSON event logs. --json switches human output to a report.
`, config.Version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitInternal)
	}

	switch os.Args[1] {
	case "analyze":
		os.Exit(cmdAnalyze(os.Args[2:]))
	case "diff":
		os.Exit(cmdDiff(os.Args[2:]))
	case "verify":
		os.Exit(cmdVerify(os.Args[2:]))
	case "version":
		fmt.Println(config.Version)
		os.Exit(exitOK)
	case "-h", "--help", "help":
		usage()
		os.Exit(exitOK)
	default:
		fmt.Fprintf(os.Stderr, "specverify: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(exitInternal)
	}
}

// parseArgs splits positional arguments from --flag / --flag value
// options. Boolean flags (no following value) are stored as "".
func parseArgs(args []string, valueFlags map[string]bool) (positional []string, flags map[string]string, err error) {
	flags = map[string]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || a[:2] != "--" {
			positional = append(positional, a)
			continue
		}
		name := a[2:]
		if !valueFlags[name] {
			flags[name] = ""
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("--%s requires a value", name)
		}
		i++
		flags[name] = args[i]
	}
	return positional, flags, nil
}

// loadDomain reads a spec and converts structural decode errors into
// I0001 diagnostics so malformed parser output is reported through the
// same channel as semantic findings.
func loadDomain(path string) (*ast.Domain, []*diagnostics.Diagnostic, error) {
	domain, decodeErrs, err := domainio.LoadDomain(path)
	if err != nil {
		return nil, nil, err
	}
	var diags []*diagnostics.Diagnostic
	for _, de := range decodeErrs {
		diags = append(diags, diagnostics.New(
			diagnostics.CodeInternalInconsistency, "decoder", diagnostics.SeverityError,
			diagnostics.Location{File: path},
			fmt.Sprintf("malformed node at %s: %s", de.Path, de.Message)))
	}
	for _, m := range ast.Validate(domain) {
		s := m.Node.Span()
		diags = append(diags, diagnostics.New(
			diagnostics.CodeInternalInconsistency, "decoder", diagnostics.SeverityError,
			diagnostics.Location{File: s.File, Line: s.Line, Column: s.Column, EndLine: s.EndLine, EndColumn: s.EndColumn},
			m.String()))
	}
	return domain, diags, nil
}

func cmdAnalyze(args []string) int {
	positional, flags, err := parseArgs(args, nil)
	if err != nil || len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "usage: specverify analyze <spec> [--json]")
		return exitInternal
	}

	domain, decodeDiags, err := loadDomain(positional[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}

	report := orchestrator.Run(domain, orchestrator.DefaultOptions())
	all := append(decodeDiags, report.Diagnostics...)

	if _, jsonOut := flags["json"]; jsonOut {
		report.Diagnostics = all
		if err := domainio.WriteReportJSON(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
			return exitInternal
		}
	} else {
		r := cliutil.NewRenderer(os.Stdout, cliutil.UseColor(os.Stdout))
		r.Render(all)
	}

	for _, d := range all {
		if d.Severity == diagnostics.SeverityError {
			return exitDiag
		}
	}
	return exitOK
}

func cmdDiff(args []string) int {
	positional, flags, err := parseArgs(args, nil)
	if err != nil || len(positional) != 2 {
		fmt.Fprintln(os.Stderr, "usage: specverify diff <old-spec> <new-spec> [--json]")
		return exitInternal
	}

	oldDomain, _, err := loadDomain(positional[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}
	newDomain, _, err := loadDomain(positional[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}

	d := diffengine.Diff(oldDomain, newDomain)

	if _, jsonOut := flags["json"]; jsonOut {
		if err := domainio.WriteReportJSON(os.Stdout, d); err != nil {
			fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
			return exitInternal
		}
		return exitOK
	}

	if d.IsEmpty {
		fmt.Println("no changes")
		return exitOK
	}
	fmt.Printf("breaking: %d, compatible: %d, patch: %d\n",
		d.Summary.BreakingChanges, d.Summary.CompatibleChanges, d.Summary.PatchChanges)
	if err := domainio.WriteReportJSON(os.Stdout, d); err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}
	return exitOK
}

func cmdVerify(args []string) int {
	positional, flags, err := parseArgs(args, map[string]bool{"traces": true, "config": true})
	if err != nil || len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "usage: specverify verify <spec> --traces <file> [--config <verify.yaml>] [--json]")
		return exitInternal
	}
	tracesPath, ok := flags["traces"]
	if !ok {
		fmt.Fprintln(os.Stderr, "specverify verify: --traces is required")
		return exitInternal
	}

	cfg := domainio.DefaultConfig()
	if cfgPath, ok := flags["config"]; ok {
		cfg, err = domainio.LoadConfig(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
			return exitInternal
		}
	}

	domain, decodeDiags, err := loadDomain(positional[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}
	traces, err := domainio.LoadTraces(tracesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
		return exitInternal
	}

	// With a cache configured, an unchanged spec+traces pair replays the
	// stored report instead of re-solving.
	var store *reportstore.Store
	var runHash string
	if cfg.CachePath != "" {
		store, runHash, err = openRunCache(cfg.CachePath, positional[0], tracesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "specverify: warning: %v\n", err)
		} else {
			defer store.Close()
			if cached, ok := loadCachedReport(store, runHash); ok {
				return emitVerifyReport(cached, flags)
			}
		}
	}

	opts := orchestrator.DefaultOptions()
	if store != nil {
		opts.QueryCache = store
	}
	opts.Traces = traces
	opts.FailFast = cfg.FailFast
	opts.Budgets.TimeoutPerClause = cfg.Budgets.TimeoutPerClause
	opts.Budgets.GlobalTimeout = cfg.Budgets.GlobalTimeout
	opts.Limits = smt.Limits{
		MaxVariables:  cfg.Solver.MaxVariables,
		MaxAssertions: cfg.Solver.MaxAssertions,
		MaxExprDepth:  cfg.Solver.MaxExprDepth,
		MaxNodeCount:  cfg.Solver.MaxNodeCount,
		Timeout:       cfg.Budgets.TimeoutPerClause,
	}
	for id, enabled := range cfg.Passes {
		if !enabled {
			opts.DisabledPasses = append(opts.DisabledPasses, id)
		}
	}
	if cfg.Solver.Backend == "grpc" {
		engine, err := solverrpc.Dial(cfg.Solver.Target, cfg.Solver.ProtoPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
			return exitInternal
		}
		defer engine.Close()
		opts.Solver = engine
		opts.SolverName = "grpc:" + cfg.Solver.Target
	}

	report := orchestrator.Run(domain, opts)
	report.Diagnostics = append(decodeDiags, report.Diagnostics...)

	if store != nil {
		if err := cacheReport(store, runHash, report); err != nil {
			fmt.Fprintf(os.Stderr, "specverify: warning: %v\n", err)
		}
	}

	return emitVerifyReport(report, flags)
}

// emitVerifyReport renders a verify report (fresh or cached) and maps
// it to an exit code.
func emitVerifyReport(report *orchestrator.Report, flags map[string]string) int {
	if _, jsonOut := flags["json"]; jsonOut {
		if err := domainio.WriteReportJSON(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "specverify: %v\n", err)
			return exitInternal
		}
	} else {
		r := cliutil.NewRenderer(os.Stdout, cliutil.UseColor(os.Stdout))
		r.Render(report.Diagnostics)
		fmt.Printf("clauses: %d proven, %d violated, %d not proven (%.0f%% resolved)\n",
			report.Summary.ProvenClauses, report.Summary.ViolatedClauses,
			report.Summary.NotProvenClauses, report.Summary.ResolutionRate*100)
	}

	if report.Summary.BudgetExhausted || report.Summary.OverallTimedOut {
		return exitBudget
	}
	for _, d := range report.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			return exitDiag
		}
	}
	if report.Summary.ViolatedClauses > 0 {
		return exitDiag
	}
	return exitOK
}

// openRunCache opens the sqlite cache and hashes the run's inputs (spec
// plus traces) into the report key.
func openRunCache(cachePath, specPath, tracesPath string) (*reportstore.Store, string, error) {
	specData, err := os.ReadFile(specPath)
	if err != nil {
		return nil, "", fmt.Errorf("hashing spec for cache: %w", err)
	}
	tracesData, err := os.ReadFile(tracesPath)
	if err != nil {
		return nil, "", fmt.Errorf("hashing traces for cache: %w", err)
	}
	store, err := reportstore.Open(cachePath)
	if err != nil {
		return nil, "", err
	}
	return store, reportstore.DomainHash(append(specData, tracesData...)), nil
}

// loadCachedReport replays a previously stored report for the same
// spec+traces content, if one exists.
func loadCachedReport(store *reportstore.Store, runHash string) (*orchestrator.Report, bool) {
	data, ok, err := store.LatestReport(runHash)
	if err != nil || !ok {
		return nil, false
	}
	var report orchestrator.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// cacheReport stores the run's report keyed by the run's content hash;
// individual settled queries are cached by the resolve stage itself.
func cacheReport(store *reportstore.Store, runHash string, report *orchestrator.Report) error {
	_, err := store.PutReport(runHash, report)
	return err
}
