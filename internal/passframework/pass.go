// Package passframework generalizes the teacher's linear
// Pipeline/Processor runner into the dependency-graph pass scheduler C4
// specifies: passes declare dependencies and a priority, the scheduler
// topologically orders them with deterministic (priority, id) tie-breaks,
// detects cycles as a single diagnostic instead of a panic, and — unless
// told to fail fast — keeps running every remaining pass so one stage's
// errors never hide another's diagnostics.
package passframework

import (
	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/symbols"
)

// PassContext is the capability set spec.md §9 describes: report a
// diagnostic, look up a domain-wide symbol, push/pop a local scope, and
// ask which behavior is currently being walked. Passes never touch the
// AST, symbol table, or scope stack except through this surface, so a
// later pass can be swapped without the others knowing.
type PassContext struct {
	Domain      *ast.Domain
	Symbols     *symbols.Table
	Scopes      *symbols.ScopeStack
	Diagnostics *diagnostics.Bus

	currentBehavior *ast.Behavior
	outputs         map[string]interface{}
}

// NewContext builds a PassContext over a decoded domain. The symbol
// table and scope stack start fresh; the resolver pass (C5) is
// responsible for populating the table.
func NewContext(domain *ast.Domain) *PassContext {
	return &PassContext{
		Domain:      domain,
		Symbols:     symbols.New(),
		Scopes:      symbols.NewScopeStack(),
		Diagnostics: diagnostics.NewBus(),
		outputs:     make(map[string]interface{}),
	}
}

// SetOutput stores a pass's product under its pass id, for later passes
// (or the orchestrator) to read.
func (c *PassContext) SetOutput(passID string, value interface{}) {
	c.outputs[passID] = value
}

// Output reads a prior pass's product.
func (c *PassContext) Output(passID string) (interface{}, bool) {
	v, ok := c.outputs[passID]
	return v, ok
}

// Report appends a diagnostic to the shared bus.
func (c *PassContext) Report(d *diagnostics.Diagnostic) { c.Diagnostics.Report(d) }

// GetSymbol looks up a domain-wide declaration by name.
func (c *PassContext) GetSymbol(name string) (*symbols.Symbol, bool) {
	return c.Symbols.Lookup(name)
}

// PushScope opens a local scope frame (entering a behavior body, a
// quantifier, or a lambda).
func (c *PassContext) PushScope() { c.Scopes.Push() }

// PopScope closes the innermost local scope frame.
func (c *PassContext) PopScope() { c.Scopes.Pop() }

// SetCurrentBehavior records which behavior later passes are inspecting,
// so checks can be scoped to it (the resolver offers its input fields as
// did-you-mean candidates).
func (c *PassContext) SetCurrentBehavior(b *ast.Behavior) { c.currentBehavior = b }

// CurrentBehavior returns the behavior set by SetCurrentBehavior, or nil
// outside any behavior (e.g. while walking domain-level invariants).
func (c *PassContext) CurrentBehavior() *ast.Behavior { return c.currentBehavior }

// Pass is one stage of semantic analysis.
type Pass interface {
	ID() string
	Name() string
	Description() string
	// DependsOn lists pass IDs that must run (successfully or not) before
	// this one starts.
	DependsOn() []string
	// Priority breaks ties between passes with no dependency relationship;
	// lower runs first. Passes with equal priority run in ID order.
	Priority() int
	EnabledByDefault() bool
	Run(ctx *PassContext) error
}
