package semantic

import (
	"fmt"
	"sort"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/config"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
	"github.com/specverify/verifier/internal/symbols"
)

// ConsistencyPassID is the stable ID other passes depend on.
const ConsistencyPassID = "consistency"

// Consistency is C8: numeric-bound satisfiability over precondition
// conjuncts, undefined result.field references, and unused-symbol
// hints. It runs last among the built-in passes so it can see every
// reference the resolver and purity passes walked.
type Consistency struct{}

func (Consistency) ID() string          { return ConsistencyPassID }
func (Consistency) Name() string        { return "consistency" }
func (Consistency) Description() string {
	return "checks numeric-bound satisfiability, postcondition field references, and unused symbols"
}
func (Consistency) DependsOn() []string    { return []string{ResolverPassID, PurityPassID} }
func (Consistency) Priority() int          { return 2 }
func (Consistency) EnabledByDefault() bool { return true }

func (c Consistency) Run(ctx *passframework.PassContext) error {
	for _, b := range ctx.Domain.Behaviors {
		c.checkNumericBounds(ctx, b)
		c.checkPostconditionFields(ctx, b)
	}
	c.checkUnused(ctx)
	return nil
}

// bound is one half-plane constraint on a variable: value op limit.
type bound struct {
	limit       float64
	inclusive   bool
	node        ast.Node
	description string
}

// conjuncts splits e into its top-level && operands, matching C8's
// "collect top-level conjuncts of each precondition" rule. A bare
// (non-&&) expression is its own single conjunct.
func conjuncts(e ast.Expression) []ast.Expression {
	if bin, ok := e.(*ast.BinaryExpr); ok && bin.Op == "&&" {
		return append(conjuncts(bin.Left), conjuncts(bin.Right)...)
	}
	return []ast.Expression{e}
}

// checkNumericBounds implements E0310: for every input variable, collect
// lower/upper half-plane bounds from numeric comparisons across all
// precondition conjuncts and flag an unsatisfiable combination.
func (c Consistency) checkNumericBounds(ctx *passframework.PassContext, b *ast.Behavior) {
	lowers := map[string][]bound{}
	uppers := map[string][]bound{}

	for _, pre := range b.Preconditions {
		for _, conj := range conjuncts(pre) {
			bin, ok := conj.(*ast.BinaryExpr)
			if !ok {
				continue
			}
			name, lit, flipped, ok := numericComparison(bin)
			if !ok {
				continue
			}
			op := bin.Op
			if flipped {
				op = flipOp(op)
			}
			switch op {
			case ">":
				lowers[name] = append(lowers[name], bound{limit: lit, inclusive: false, node: bin, description: fmt.Sprintf("%s %s %v", name, op, numLit(lit))})
			case ">=":
				lowers[name] = append(lowers[name], bound{limit: lit, inclusive: true, node: bin, description: fmt.Sprintf("%s %s %v", name, op, numLit(lit))})
			case "<":
				uppers[name] = append(uppers[name], bound{limit: lit, inclusive: false, node: bin, description: fmt.Sprintf("%s %s %v", name, op, numLit(lit))})
			case "<=":
				uppers[name] = append(uppers[name], bound{limit: lit, inclusive: true, node: bin, description: fmt.Sprintf("%s %s %v", name, op, numLit(lit))})
			}
		}
	}

	names := make([]string, 0, len(lowers))
	for name := range lowers {
		if _, hasUpper := uppers[name]; hasUpper {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		for _, lo := range lowers[name] {
			for _, hi := range uppers[name] {
				unsat := lo.limit > hi.limit || (lo.limit == hi.limit && (!lo.inclusive || !hi.inclusive))
				if !unsat {
					continue
				}
				ctx.Report(diagnostics.New(diagnostics.CodeUnsatBounds, "consistency", diagnostics.SeverityError,
					locOf(lo.node),
					fmt.Sprintf("%q has unsatisfiable bounds in behavior %q: %s and %s cannot both hold", name, b.Name, lo.description, hi.description)).
					WithRelated(locOf(hi.node), "conflicting bound here"))
			}
		}
	}
}

// numericComparison recognizes `identifier op literal` or `literal op
// identifier`, returning the variable name, the literal value, and
// whether the operands were written literal-first (so the caller can
// flip the operator to a canonical identifier-first form).
func numericComparison(bin *ast.BinaryExpr) (name string, value float64, flipped bool, ok bool) {
	switch bin.Op {
	case ">", ">=", "<", "<=":
	default:
		return "", 0, false, false
	}
	if id, isID := bin.Left.(*ast.Identifier); isID {
		if lit, isLit := bin.Right.(*ast.NumberLiteral); isLit {
			return id.Name, lit.Value, false, true
		}
	}
	if lit, isLit := bin.Left.(*ast.NumberLiteral); isLit {
		if id, isID := bin.Right.(*ast.Identifier); isID {
			return id.Name, lit.Value, true, true
		}
	}
	return "", 0, false, false
}

func flipOp(op string) string {
	switch op {
	case ">":
		return "<"
	case ">=":
		return "<="
	case "<":
		return ">"
	case "<=":
		return ">="
	}
	return op
}

func numLit(v float64) float64 { return v }

// checkPostconditionFields implements E0312: result.X is flagged when
// the behavior's success type is a statically-known struct (or entity)
// and X is not one of its fields.
func (c Consistency) checkPostconditionFields(ctx *passframework.PassContext, b *ast.Behavior) {
	fields, known := successFields(ctx, b.Output.Success)
	if !known {
		return
	}
	fieldSet := map[string]bool{}
	var available []string
	for _, f := range fields {
		fieldSet[f] = true
		available = append(available, f)
	}
	sort.Strings(available)

	for _, pb := range b.Postconditions {
		for _, pred := range pb.Predicates {
			ast.Walk(pred, func(n ast.Node) bool {
				res, ok := n.(*ast.ResultExpr)
				if !ok || res.Property == "" {
					return true
				}
				if fieldSet[res.Property] {
					return true
				}
				ctx.Report(diagnostics.New(diagnostics.CodeUndefinedPostcondField, "consistency", diagnostics.SeverityError,
					locOf(res), fmt.Sprintf("behavior %q's success type has no field %q", b.Name, res.Property)).
					WithNote(fmt.Sprintf("available fields: %v", available)))
				return true
			})
		}
	}
}

// successFields statically resolves t's field set when it is a
// StructType or a ReferenceType naming a declared Entity or a TypeDecl
// whose definition is a StructType. Anything else (primitives, unions,
// lists, optionals) is not statically knowable here and is skipped.
func successFields(ctx *passframework.PassContext, t ast.TypeExpr) ([]string, bool) {
	switch v := t.(type) {
	case *ast.StructType:
		names := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			names[i] = f.Name
		}
		return names, true
	case *ast.ReferenceType:
		sym, ok := ctx.GetSymbol(v.Name)
		if !ok {
			return nil, false
		}
		switch sym.Kind {
		case symbols.DeclEntity:
			entity := sym.Node.(*ast.Entity)
			names := make([]string, len(entity.Fields))
			for i, f := range entity.Fields {
				names[i] = f.Name
			}
			return names, true
		case symbols.DeclType:
			decl := sym.Node.(*ast.TypeDecl)
			return successFields(ctx, decl.Definition)
		}
	}
	return nil, false
}

// checkUnused implements E0320-E0324: entities, types, input fields,
// output fields, and entity fields never referenced anywhere in the
// domain. Entity fields in config.ImplicitEntityFields are suppressed —
// every entity carries them by convention, not by explicit clause use.
func (c Consistency) checkUnused(ctx *passframework.PassContext) {
	d := ctx.Domain
	referenced := map[string]bool{}
	referencedFields := map[string]bool{}

	record := func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Identifier:
			referenced[v.Name] = true
		case *ast.QualifiedName:
			for _, p := range v.Parts {
				referenced[p] = true
			}
		case *ast.ReferenceType:
			referenced[v.Name] = true
		case *ast.CallExpr:
			referenced[v.Callee] = true
		case *ast.MemberExpr:
			referencedFields[v.Property] = true
		case *ast.InputExpr:
			if v.Property != "" {
				referencedFields[v.Property] = true
			}
		case *ast.ResultExpr:
			if v.Property != "" {
				referencedFields[v.Property] = true
			}
		}
		return true
	}
	ast.Walk(d, record)

	for _, e := range d.Entities {
		if !referenced[e.Name] {
			ctx.Report(diagnostics.New(diagnostics.CodeUnusedEntity, "consistency", diagnostics.SeverityHint,
				locOf(e), fmt.Sprintf("entity %q is never referenced", e.Name)))
		}
		for _, f := range e.Fields {
			if config.ImplicitEntityFields[f.Name] {
				continue
			}
			if !referencedFields[f.Name] {
				ctx.Report(diagnostics.New(diagnostics.CodeUnusedEntityField, "consistency", diagnostics.SeverityHint,
					locOf(f), fmt.Sprintf("field %q of entity %q is never referenced", f.Name, e.Name)))
			}
		}
	}
	for _, t := range d.Types {
		if !referenced[t.Name] {
			ctx.Report(diagnostics.New(diagnostics.CodeUnusedType, "consistency", diagnostics.SeverityHint,
				locOf(t), fmt.Sprintf("type %q is never referenced", t.Name)))
		}
	}
	for _, b := range d.Behaviors {
		for _, f := range b.Input {
			if !referenced[f.Name] && !referencedFields[f.Name] {
				ctx.Report(diagnostics.New(diagnostics.CodeUnusedInputField, "consistency", diagnostics.SeverityHint,
					locOf(f), fmt.Sprintf("input field %q of behavior %q is never referenced", f.Name, b.Name)))
			}
		}
		if fields, ok := successFields(ctx, b.Output.Success); ok {
			for _, name := range fields {
				if !referencedFields[name] {
					ctx.Report(diagnostics.New(diagnostics.CodeUnusedOutputField, "consistency", diagnostics.SeverityHint,
						locOf(b), fmt.Sprintf("output field %q of behavior %q is never referenced in a postcondition", name, b.Name)))
				}
			}
		}
	}
}
