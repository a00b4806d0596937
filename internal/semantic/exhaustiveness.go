package semantic

import (
	"fmt"
	"sort"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
	"github.com/specverify/verifier/internal/symbols"
)

// ExhaustivenessPassID is the stable ID other passes depend on.
const ExhaustivenessPassID = "exhaustiveness"

// Exhaustiveness is C7. It has two independent jobs: (1) group
// precondition/postcondition comparisons of a single variable against
// enum variants and check the group covers every declared variant
// without redundancy, and (2) treat a behavior's postcondition blocks as
// a match over {success, any_error, <declared error names>} and check
// that match is complete.
type Exhaustiveness struct{}

func (Exhaustiveness) ID() string          { return ExhaustivenessPassID }
func (Exhaustiveness) Name() string        { return "exhaustiveness" }
func (Exhaustiveness) Description() string {
	return "checks enum guard coverage and postcondition coverage of success and every declared error"
}
func (Exhaustiveness) DependsOn() []string    { return []string{ResolverPassID} }
func (Exhaustiveness) Priority() int          { return 1 }
func (Exhaustiveness) EnabledByDefault() bool { return true }

func (x Exhaustiveness) Run(ctx *passframework.PassContext) error {
	for _, b := range ctx.Domain.Behaviors {
		x.checkEnumGuards(ctx, b)
		x.checkPostconditionCoverage(ctx, b)
	}
	return nil
}

// enumGuardGroup accumulates every guard seen against one (variable,
// enum type) pair across a behavior's preconditions and postconditions.
type enumGuardGroup struct {
	enumName string
	variants []string
	counts   map[string]int
	first    ast.Node
}

// varEnumType maps a locally-scoped variable name to the enum type it is
// declared as, so a bare `status == Pending` guard can be attributed to
// PaymentStatus. Only fields whose declared type resolves to an
// EnumType-backed symbol are tracked.
func (x Exhaustiveness) varEnumType(ctx *passframework.PassContext, b *ast.Behavior) map[string]*symbols.Symbol {
	out := map[string]*symbols.Symbol{}
	resolve := func(name string, t ast.TypeExpr) {
		ref, ok := t.(*ast.ReferenceType)
		if !ok {
			return
		}
		sym, ok := ctx.GetSymbol(ref.Name)
		if !ok || sym.Kind != symbols.DeclType || len(sym.EnumVariants) == 0 {
			return
		}
		out[name] = sym
	}
	for _, f := range b.Input {
		resolve(f.Name, f.Type)
	}
	return out
}

// enumVariantOf reports whether e names a variant of enumName: either
// `EnumName.Variant` (qualified name or member of a bare identifier) or
// a bare string literal equal to a declared variant.
func enumVariantOf(e ast.Expression, sym *symbols.Symbol) (string, bool) {
	switch v := e.(type) {
	case *ast.MemberExpr:
		if id, ok := v.Object.(*ast.Identifier); ok && id.Name == sym.Name {
			return v.Property, contains(sym.EnumVariants, v.Property)
		}
	case *ast.QualifiedName:
		if len(v.Parts) == 2 && v.Parts[0] == sym.Name {
			return v.Parts[1], contains(sym.EnumVariants, v.Parts[1])
		}
	case *ast.StringLiteral:
		return v.Value, contains(sym.EnumVariants, v.Value)
	}
	return "", false
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// guardedVariant reports whether e is `var == <variant>` or `<variant>
// == var` against a variable known to be of an enum type, returning the
// variable name, the enum symbol, and the matched variant.
func guardedVariant(e ast.Expression, enumTypes map[string]*symbols.Symbol) (varName string, sym *symbols.Symbol, variant string, ok bool) {
	bin, isBin := e.(*ast.BinaryExpr)
	if !isBin || bin.Op != "==" {
		return
	}
	tryPair := func(idExpr, other ast.Expression) (string, *symbols.Symbol, string, bool) {
		id, isID := idExpr.(*ast.Identifier)
		if !isID {
			return "", nil, "", false
		}
		s, known := enumTypes[id.Name]
		if !known {
			return "", nil, "", false
		}
		variant, matched := enumVariantOf(other, s)
		if !matched {
			return "", nil, "", false
		}
		return id.Name, s, variant, true
	}
	if n, s, v, k := tryPair(bin.Left, bin.Right); k {
		return n, s, v, true
	}
	if n, s, v, k := tryPair(bin.Right, bin.Left); k {
		return n, s, v, true
	}
	return
}

func (x Exhaustiveness) checkEnumGuards(ctx *passframework.PassContext, b *ast.Behavior) {
	enumTypes := x.varEnumType(ctx, b)
	if len(enumTypes) == 0 {
		return
	}
	groups := map[string]*enumGuardGroup{}

	visit := func(e ast.Expression) {
		ast.Walk(e, func(n ast.Node) bool {
			expr, isExpr := n.(ast.Expression)
			if !isExpr {
				return true
			}
			if varName, sym, variant, ok := guardedVariant(expr, enumTypes); ok {
				key := varName + "::" + sym.Name
				g, exists := groups[key]
				if !exists {
					g = &enumGuardGroup{enumName: sym.Name, variants: sym.EnumVariants, counts: map[string]int{}, first: expr}
					groups[key] = g
				}
				g.counts[variant]++
				return false
			}
			if cond, isCond := expr.(*ast.ConditionalExpr); isCond {
				if varName, sym, _, ok := guardedVariant(cond.Cond, enumTypes); ok && len(sym.EnumVariants) >= 3 {
					ctx.Report(diagnostics.New(diagnostics.CodeSuggestExhaustive, "exhaustiveness", diagnostics.SeverityHint,
						locOf(cond), fmt.Sprintf("conditional compares %q against a single variant of %q (%d variants); consider an exhaustive match", varName, sym.Name, len(sym.EnumVariants))))
				}
			}
			return true
		})
	}
	for _, pre := range b.Preconditions {
		visit(pre)
	}
	for _, pb := range b.Postconditions {
		for _, pred := range pb.Predicates {
			visit(pred)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		g := groups[key]
		varName := key[:len(key)-len(g.enumName)-2]

		var redundant []string
		for variant, n := range g.counts {
			if n > 1 {
				redundant = append(redundant, variant)
			}
		}
		sort.Strings(redundant)
		for _, variant := range redundant {
			ctx.Report(diagnostics.New(diagnostics.CodeRedundantVariant, "exhaustiveness", diagnostics.SeverityWarning,
				locOf(g.first), fmt.Sprintf("%q guards variant %q of %q more than once", varName, variant, g.enumName)))
		}

		var missing []string
		for _, variant := range g.variants {
			if g.counts[variant] == 0 {
				missing = append(missing, variant)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			ctx.Report(diagnostics.New(diagnostics.CodeMissingVariant, "exhaustiveness", diagnostics.SeverityError,
				locOf(g.first), fmt.Sprintf("%q does not guard every variant of %q; missing %v", varName, g.enumName, missing)))
		}
	}
}

func (x Exhaustiveness) checkPostconditionCoverage(ctx *passframework.PassContext, b *ast.Behavior) {
	if len(b.Output.Errors) == 0 {
		return
	}
	if len(b.Postconditions) == 0 {
		ctx.Report(diagnostics.New(diagnostics.CodeUncoveredError, "exhaustiveness", diagnostics.SeverityError,
			locOf(b), fmt.Sprintf("behavior %q declares errors but has no postconditions", b.Name)))
		return
	}

	seen := map[string]int{}
	hasAnyError := false
	for _, pb := range b.Postconditions {
		seen[pb.Condition]++
		if pb.IsAnyError() {
			hasAnyError = true
		}
		if seen[pb.Condition] > 1 {
			ctx.Report(diagnostics.New(diagnostics.CodeRedundantVariant, "exhaustiveness", diagnostics.SeverityWarning,
				locOf(pb), fmt.Sprintf("behavior %q covers %q more than once", b.Name, pb.Condition)))
		}
	}
	if hasAnyError {
		allNamedIndividually := true
		for _, es := range b.Output.Errors {
			if seen[es.Name] == 0 {
				allNamedIndividually = false
				break
			}
		}
		if allNamedIndividually {
			ctx.Report(diagnostics.New(diagnostics.CodeSuggestExhaustive, "exhaustiveness", diagnostics.SeverityHint,
				locOf(b), fmt.Sprintf("behavior %q names every declared error individually; the any_error block is redundant", b.Name)))
		}
		return
	}

	var uncovered []string
	for _, es := range b.Output.Errors {
		if seen[es.Name] == 0 {
			uncovered = append(uncovered, es.Name)
		}
	}
	for _, name := range uncovered {
		ctx.Report(diagnostics.New(diagnostics.CodeUncoveredError, "exhaustiveness", diagnostics.SeverityError,
			locOf(b), fmt.Sprintf("behavior %q declares error %q with no postcondition covering it", b.Name, name)))
	}
}
