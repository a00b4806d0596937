package semantic

import (
	"fmt"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
)

// PurityPassID is the stable ID other passes depend on.
const PurityPassID = "purity"

// pureFuncs, mutatingFuncs, and nonDeterministicFuncs are the closed,
// name-based classification every call expression is checked against.
// Classification is by name alone (no type information is needed, or
// available, at this stage) — an unrecognized name is neither pure nor
// known-impure and is reported as an external call (E0413) so a reviewer
// decides whether it belongs in a clause at all.
var pureFuncs = map[string]bool{
	"len": true, "lenBytes": true, "abs": true, "min": true, "max": true,
	"contains": true, "matches": true, "startsWith": true, "endsWith": true,
	"toLower": true, "toUpper": true, "trim": true, "substring": true,
	"round": true, "floor": true, "ceil": true, "sum": true, "avg": true,
	"count": true, "all": true, "any": true, "isEmpty": true, "keys": true,
	"values": true, "typeOf": true,
}

var mutatingFuncs = map[string]bool{
	"push": true, "pop": true, "shift": true, "splice": true,
	"set": true, "delete": true, "clear": true, "add": true,
	"remove": true, "update": true, "insert": true, "save": true,
	"persist": true, "write": true, "append": true, "modify": true,
	"mutate": true, "increment": true, "decrement": true,
}

var nonDeterministicFuncs = map[string]bool{
	"random": true, "uuid": true, "generateId": true, "randomInt": true,
	"randomFloat": true, "now": true, "currentTime": true,
	"timestamp": true, "today": true, "currentDate": true,
}

var externalFuncs = map[string]bool{
	"fetch": true, "request": true, "call": true, "invoke": true,
	"send": true, "emit": true, "dispatch": true, "trigger": true,
	"notify": true, "publish": true, "broadcast": true, "log": true,
	"print": true, "trace": true, "debug": true,
}

// IsKnownCallable reports whether name is in any of the closed
// classification sets; the resolver uses this to avoid flagging builtins
// as undefined functions.
func IsKnownCallable(name string) bool {
	return pureFuncs[name] || mutatingFuncs[name] || nonDeterministicFuncs[name] || externalFuncs[name]
}

// AllKnownCallables returns every recognized builtin name, for
// did-you-mean suggestions.
func AllKnownCallables() []string {
	var names []string
	for _, set := range []map[string]bool{pureFuncs, mutatingFuncs, nonDeterministicFuncs, externalFuncs} {
		for name := range set {
			names = append(names, name)
		}
	}
	return names
}

// clauseKind identifies which part of a behavior an expression appears
// in, since Old/Result legality and the strictness of purity checks
// both depend on it.
type clauseKind int

const (
	clausePrecondition clauseKind = iota
	clausePostcondition
	clauseInvariant
	clauseTemporal
	clauseSecurity
	clauseCompliance
	clauseDomainLevel
)

// Purity is C6: it walks every clause and rejects mutating calls,
// non-deterministic calls, bare assignment, and out-of-place old/result
// references, all by name or syntactic position alone. Input references
// are not checked.
type Purity struct{}

func (Purity) ID() string             { return PurityPassID }
func (Purity) Name() string           { return "purity" }
func (Purity) Description() string    { return "rejects side effects and out-of-place old/result references" }
func (Purity) DependsOn() []string    { return []string{ResolverPassID} }
func (Purity) Priority() int          { return 0 }
func (Purity) EnabledByDefault() bool { return true }

func (p Purity) Run(ctx *passframework.PassContext) error {
	d := ctx.Domain
	for _, b := range d.Behaviors {
		ctx.SetCurrentBehavior(b)
		for _, pre := range b.Preconditions {
			p.checkClause(ctx, pre, clausePrecondition)
		}
		for _, pb := range b.Postconditions {
			for _, pred := range pb.Predicates {
				p.checkClause(ctx, pred, clausePostcondition)
			}
		}
		for _, inv := range b.Invariants {
			p.checkClause(ctx, inv, clauseInvariant)
		}
		for _, t := range b.Temporal {
			p.checkClause(ctx, t, clauseTemporal)
		}
		for _, s := range b.Security {
			p.checkClause(ctx, s, clauseSecurity)
		}
		for _, c := range b.Compliance {
			p.checkClause(ctx, c, clauseCompliance)
		}
		ctx.SetCurrentBehavior(nil)
	}
	for _, inv := range d.Invariants {
		p.checkClause(ctx, inv, clauseDomainLevel)
	}
	for _, e := range d.Entities {
		for _, inv := range e.Invariants {
			p.checkClause(ctx, inv, clauseInvariant)
		}
	}
	return nil
}

func (p Purity) checkClause(ctx *passframework.PassContext, e ast.Expression, kind clauseKind) {
	ast.Walk(e, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.CallExpr:
			p.checkCall(ctx, v, kind)
		case *ast.BinaryExpr:
			if v.Op == "=" {
				ctx.Report(diagnostics.New(diagnostics.CodeAssignmentInClause, "purity", diagnostics.SeverityError,
					locOf(v), "assignment (\"=\") is not allowed in a clause; did you mean \"==\"?"))
			}
		case *ast.OldExpr:
			p.checkOld(ctx, v, kind)
		case *ast.ResultExpr:
			p.checkResult(ctx, v, kind)
		}
		return true
	})
}

func (p Purity) checkCall(ctx *passframework.PassContext, call *ast.CallExpr, kind clauseKind) {
	switch {
	case mutatingFuncs[call.Callee]:
		code := diagnostics.CodeMutatingCall
		if kind == clauseInvariant {
			code = diagnostics.CodeMutatingInInvariant
		}
		ctx.Report(diagnostics.New(code, "purity", diagnostics.SeverityError,
			locOf(call), fmt.Sprintf("%q has side effects and cannot appear in a clause", call.Callee)))
	case nonDeterministicFuncs[call.Callee]:
		ctx.Report(diagnostics.New(diagnostics.CodeNonDeterministicCall, "purity", diagnostics.SeverityWarning,
			locOf(call), fmt.Sprintf("%q is non-deterministic; a clause over it cannot be checked reproducibly", call.Callee)))
	case externalFuncs[call.Callee]:
		ctx.Report(diagnostics.New(diagnostics.CodeExternalCall, "purity", diagnostics.SeverityWarning,
			locOf(call), fmt.Sprintf("%q reaches outside the specification and cannot appear in a clause", call.Callee)))
	case pureFuncs[call.Callee]:
		// fine
	default:
		if _, ok := ctx.GetSymbol(call.Callee); ok {
			return
		}
		ctx.Report(diagnostics.New(diagnostics.CodeExternalCall, "purity", diagnostics.SeverityWarning,
			locOf(call), fmt.Sprintf("%q is not a recognized pure function; verify it has no side effects", call.Callee)))
	}
}

func (p Purity) checkOld(ctx *passframework.PassContext, old *ast.OldExpr, kind clauseKind) {
	switch kind {
	case clausePostcondition:
		return
	case clausePrecondition:
		ctx.Report(diagnostics.New(diagnostics.CodeOldInPrecondition, "purity", diagnostics.SeverityError,
			locOf(old), "old(...) refers to pre-state, which is meaningless in a precondition"))
	default:
		ctx.Report(diagnostics.New(diagnostics.CodeOldOutsidePost, "purity", diagnostics.SeverityError,
			locOf(old), "old(...) is only meaningful in a postcondition"))
	}
}

func (p Purity) checkResult(ctx *passframework.PassContext, res *ast.ResultExpr, kind clauseKind) {
	switch kind {
	case clausePostcondition:
		return
	case clausePrecondition:
		ctx.Report(diagnostics.New(diagnostics.CodeResultInPrecond, "purity", diagnostics.SeverityError,
			locOf(res), "result is not yet defined in a precondition"))
	case clauseInvariant:
		ctx.Report(diagnostics.New(diagnostics.CodeResultInInvariant, "purity", diagnostics.SeverityWarning,
			locOf(res), "result refers to a single behavior's return value and rarely belongs in an invariant"))
	default:
		ctx.Report(diagnostics.New(diagnostics.CodeResultOutsidePost, "purity", diagnostics.SeverityError,
			locOf(res), "result is only meaningful in a postcondition"))
	}
}
