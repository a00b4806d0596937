// Package semantic implements the symbol-resolution, purity,
// exhaustiveness, and consistency passes (C5-C8): one file per pass,
// sharing the suggest package for "did you mean" help text the way the
// teacher's analyzer shares internal/suggest... across its passes.
package semantic

import (
	"fmt"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/config"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
	"github.com/specverify/verifier/internal/suggest"
	"github.com/specverify/verifier/internal/symbols"
)

// ResolverPassID is the stable ID other passes depend on.
const ResolverPassID = "resolve"

// Resolver is C5: it declares every domain-level name into the symbol
// table, then walks every expression resolving identifiers, qualified
// names, and type references against that table and the local scope
// stack, reporting undefined-reference diagnostics with a did-you-mean
// suggestion scoped to the reference's symbol class.
type Resolver struct{}

func (Resolver) ID() string          { return ResolverPassID }
func (Resolver) Name() string        { return "resolver" }
func (Resolver) Description() string { return "declares and resolves domain-wide and local names" }
func (Resolver) DependsOn() []string { return nil }
func (Resolver) Priority() int       { return 0 }
func (Resolver) EnabledByDefault() bool { return true }

func (r Resolver) Run(ctx *passframework.PassContext) error {
	r.declare(ctx)
	r.resolveDomain(ctx)
	return nil
}

// declare performs the first pass: every type, entity, behavior, policy,
// view, and scenario name goes into the symbol table before anything is
// resolved, so forward references between behaviors (or a type defined
// after its first use) are never spurious errors.
func (r Resolver) declare(ctx *passframework.PassContext) {
	d := ctx.Domain
	for _, t := range d.Types {
		sym := &symbols.Symbol{Name: t.Name, Kind: symbols.DeclType, Node: t}
		if enum, ok := t.Definition.(*ast.EnumType); ok {
			sym.EnumVariants = enum.Variants
		}
		r.declareOrConflict(ctx, sym, t.Name)
	}
	for _, e := range d.Entities {
		r.declareOrConflict(ctx, &symbols.Symbol{Name: e.Name, Kind: symbols.DeclEntity, Node: e}, e.Name)
	}
	for _, b := range d.Behaviors {
		r.declareOrConflict(ctx, &symbols.Symbol{Name: b.Name, Kind: symbols.DeclBehavior, Node: b}, b.Name)
	}
	for _, p := range d.Policies {
		r.declareOrConflict(ctx, &symbols.Symbol{Name: p.Name, Kind: symbols.DeclPolicy, Node: p}, p.Name)
	}
	for _, v := range d.Views {
		r.declareOrConflict(ctx, &symbols.Symbol{Name: v.Name, Kind: symbols.DeclView, Node: v}, v.Name)
	}
	for _, sc := range d.Scenarios {
		r.declareOrConflict(ctx, &symbols.Symbol{Name: sc.Name, Kind: symbols.DeclScenario, Node: sc}, sc.Name)
	}
}

func (r Resolver) declareOrConflict(ctx *passframework.PassContext, sym *symbols.Symbol, name string) {
	prior, ok := ctx.Symbols.Declare(sym)
	if ok {
		return
	}
	ctx.Report(diagnostics.New(
		diagnostics.CodeInternalInconsistency,
		"resolver",
		diagnostics.SeverityError,
		locOf(sym.Node),
		fmt.Sprintf("%q is declared more than once (first as a %s)", name, prior.Kind),
	).WithRelated(locOf(prior.Node), "first declared here"))
}

// resolveDomain walks type references, entity/behavior bodies, and
// free-standing expressions, resolving every name against the symbol
// table and the local scope stack.
func (r Resolver) resolveDomain(ctx *passframework.PassContext) {
	d := ctx.Domain
	for _, t := range d.Types {
		r.resolveType(ctx, t.Definition)
	}
	for _, e := range d.Entities {
		ctx.PushScope()
		for _, f := range e.Fields {
			r.resolveType(ctx, f.Type)
			ctx.Scopes.Declare(&symbols.Var{Name: f.Name, Kind: symbols.VarEntityField, Type: f.Type})
		}
		for _, inv := range e.Invariants {
			r.resolveExpr(ctx, inv)
		}
		ctx.PopScope()
	}
	for _, b := range d.Behaviors {
		ctx.SetCurrentBehavior(b)
		ctx.PushScope()
		for _, f := range b.Input {
			r.resolveType(ctx, f.Type)
			ctx.Scopes.Declare(&symbols.Var{Name: f.Name, Kind: symbols.VarInputField, Type: f.Type})
		}
		r.resolveType(ctx, b.Output.Success)
		for _, es := range b.Output.Errors {
			for _, f := range es.Fields {
				r.resolveType(ctx, f.Type)
			}
		}
		for _, pre := range b.Preconditions {
			r.resolveExpr(ctx, pre)
		}
		for _, pb := range b.Postconditions {
			for _, pred := range pb.Predicates {
				r.resolveExpr(ctx, pred)
			}
		}
		for _, inv := range b.Invariants {
			r.resolveExpr(ctx, inv)
		}
		for _, t := range b.Temporal {
			r.resolveExpr(ctx, t)
		}
		for _, s := range b.Security {
			r.resolveExpr(ctx, s)
		}
		for _, c := range b.Compliance {
			r.resolveExpr(ctx, c)
		}
		ctx.PopScope()
		ctx.SetCurrentBehavior(nil)
	}
	for _, inv := range d.Invariants {
		r.resolveExpr(ctx, inv)
	}
	for _, p := range d.Policies {
		for _, rule := range p.Rules {
			r.resolveExpr(ctx, rule)
		}
	}
	for _, v := range d.Views {
		r.resolveViewSource(ctx, v)
		for _, f := range v.Fields {
			r.resolveType(ctx, f.Type)
		}
	}
	for _, c := range d.Chaos {
		r.resolveChaosTarget(ctx, c)
		for _, e := range c.Expect {
			r.resolveExpr(ctx, e)
		}
	}
}

// resolveViewSource checks a view's source against the declared
// entities: the slot expects an entity, so a miss is E0301 with
// entity-scoped suggestions.
func (r Resolver) resolveViewSource(ctx *passframework.PassContext, v *ast.View) {
	if v.Source == "" {
		return
	}
	if sym, ok := ctx.GetSymbol(v.Source); ok && sym.Kind == symbols.DeclEntity {
		return
	}
	d := diagnostics.New(diagnostics.CodeUndefinedEntity, "resolver", diagnostics.SeverityError,
		locOf(v), fmt.Sprintf("view %q reads from undefined entity %q", v.Name, v.Source))
	if s := suggest.For(v.Source, kindNameUniverse(ctx, symbols.DeclEntity)); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	ctx.Report(d)
}

// resolveChaosTarget checks a chaos test's target against the declared
// behaviors: the slot expects a behavior, so a miss is E0302 with
// behavior-scoped suggestions — a behavior-slot typo never suggests a
// type name.
func (r Resolver) resolveChaosTarget(ctx *passframework.PassContext, c *ast.ChaosTest) {
	if c.Target == "" {
		return
	}
	if sym, ok := ctx.GetSymbol(c.Target); ok && sym.Kind == symbols.DeclBehavior {
		return
	}
	d := diagnostics.New(diagnostics.CodeUndefinedBehavior, "resolver", diagnostics.SeverityError,
		locOf(c), fmt.Sprintf("chaos test %q targets undefined behavior %q", c.Name, c.Target))
	if s := suggest.For(c.Target, kindNameUniverse(ctx, symbols.DeclBehavior)); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	ctx.Report(d)
}

func kindNameUniverse(ctx *passframework.PassContext, kind symbols.DeclKind) []string {
	var names []string
	for _, n := range ctx.Symbols.Names() {
		if sym, ok := ctx.GetSymbol(n); ok && sym.Kind == kind {
			names = append(names, n)
		}
	}
	return names
}

func (r Resolver) resolveType(ctx *passframework.PassContext, t ast.TypeExpr) {
	switch v := t.(type) {
	case nil:
		return
	case *ast.ReferenceType:
		if ctx.Symbols.IsBuiltinPrimitive(v.Name) {
			return
		}
		if _, ok := ctx.GetSymbol(v.Name); ok {
			return
		}
		ctx.Report(r.undefinedTypeDiag(ctx, v))
	case *ast.ListType:
		r.resolveType(ctx, v.Elem)
	case *ast.MapType:
		r.resolveType(ctx, v.Key)
		r.resolveType(ctx, v.Value)
	case *ast.OptionalType:
		r.resolveType(ctx, v.Inner)
	case *ast.ConstrainedType:
		r.resolveType(ctx, v.Base)
		for _, c := range v.Constraints {
			r.resolveExpr(ctx, c)
		}
	case *ast.StructType:
		for _, f := range v.Fields {
			r.resolveType(ctx, f.Type)
		}
	case *ast.UnionType:
		for _, variant := range v.Variants {
			r.resolveType(ctx, variant)
		}
	}
}

func (r Resolver) undefinedTypeDiag(ctx *passframework.PassContext, ref *ast.ReferenceType) *diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.CodeUndefinedType, "resolver", diagnostics.SeverityError,
		locOf(ref), fmt.Sprintf("undefined type %q", ref.Name))
	if cf := suggest.CaseFlip(ref.Name, config.BuiltinPrimitiveNames); cf != "" {
		d.WithHelp(fmt.Sprintf("built-in type names are case-sensitive; write %q", cf))
	} else if s := suggest.For(ref.Name, typeNameUniverse(ctx)); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	return d
}

func typeNameUniverse(ctx *passframework.PassContext) []string {
	var names []string
	for _, n := range ctx.Symbols.Names() {
		if sym, ok := ctx.GetSymbol(n); ok && (sym.Kind == symbols.DeclType || sym.Kind == symbols.DeclBuiltinType) {
			names = append(names, n)
		}
	}
	return names
}

// resolveExpr walks an expression resolving Identifier, QualifiedName,
// and nested types, and recurses into every subexpression.
func (r Resolver) resolveExpr(ctx *passframework.PassContext, e ast.Expression) {
	ast.Walk(e, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Identifier:
			r.resolveIdentifier(ctx, v)
		case *ast.QualifiedName:
			r.resolveQualifiedName(ctx, v)
		case *ast.CallExpr:
			r.resolveCallee(ctx, v)
		case *ast.MemberExpr:
			r.resolveMember(ctx, v)
		case *ast.QuantifierExpr:
			ctx.PushScope()
			ctx.Scopes.Declare(&symbols.Var{Name: v.Var, Kind: symbols.VarQuantifierBound})
			ast.Walk(v.Collection, func(inner ast.Node) bool { r.resolveExpr(ctx, inner.(ast.Expression)); return false })
			ast.Walk(v.Predicate, func(inner ast.Node) bool { r.resolveExpr(ctx, inner.(ast.Expression)); return false })
			ctx.PopScope()
			return false
		case *ast.LambdaExpr:
			ctx.PushScope()
			for _, p := range v.Params {
				ctx.Scopes.Declare(&symbols.Var{Name: p, Kind: symbols.VarLambdaParam})
			}
			r.resolveExpr(ctx, v.Body)
			ctx.PopScope()
			return false
		}
		return true
	})
}

func (r Resolver) resolveIdentifier(ctx *passframework.PassContext, id *ast.Identifier) {
	if _, ok := ctx.Scopes.Lookup(id.Name); ok {
		return
	}
	if _, ok := ctx.GetSymbol(id.Name); ok {
		return
	}
	d := diagnostics.New(diagnostics.CodeUndefinedVariable, "resolver", diagnostics.SeverityError,
		locOf(id), fmt.Sprintf("undefined name %q", id.Name))
	if s := suggest.For(id.Name, localUniverse(ctx)); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	ctx.Report(d)
}

func localUniverse(ctx *passframework.PassContext) []string {
	names := ctx.Symbols.Names()
	if b := ctx.CurrentBehavior(); b != nil {
		names = append(names, b.InputFieldNames()...)
	}
	return names
}

func (r Resolver) resolveQualifiedName(ctx *passframework.PassContext, q *ast.QualifiedName) {
	if len(q.Parts) == 0 {
		return
	}
	head := q.Parts[0]
	if _, ok := ctx.Scopes.Lookup(head); ok {
		return
	}
	if _, ok := ctx.GetSymbol(head); ok {
		return
	}
	ctx.Report(diagnostics.New(diagnostics.CodeUndefinedVariable, "resolver", diagnostics.SeverityError,
		locOf(q), fmt.Sprintf("undefined name %q", head)))
}

// resolveMember checks a field access against the object's statically
// known field set: entity fields, struct-typed declarations, and enum
// variants (for `EnumT.Variant` guards). Objects whose type is not
// statically knowable here — unbound names, primitives, unions — are
// left alone; the object itself is still resolved by the Identifier
// case.
func (r Resolver) resolveMember(ctx *passframework.PassContext, m *ast.MemberExpr) {
	id, ok := m.Object.(*ast.Identifier)
	if !ok {
		return
	}
	if v, bound := ctx.Scopes.Lookup(id.Name); bound {
		r.checkFieldOfType(ctx, m, v.Type)
		return
	}
	sym, ok := ctx.GetSymbol(id.Name)
	if !ok {
		// The undefined object is already E0300; a field complaint on
		// top of it would be noise.
		return
	}
	switch sym.Kind {
	case symbols.DeclEntity:
		entity := sym.Node.(*ast.Entity)
		r.checkField(ctx, m, id.Name, fieldNames(entity.Fields))
	case symbols.DeclType:
		if len(sym.EnumVariants) > 0 {
			if !containsName(sym.EnumVariants, m.Property) {
				d := diagnostics.New(diagnostics.CodeUndefinedField, "resolver", diagnostics.SeverityError,
					locOf(m), fmt.Sprintf("enum %q has no variant %q", id.Name, m.Property))
				if s := suggest.For(m.Property, sym.EnumVariants); s != "" {
					d.WithHelp(fmt.Sprintf("did you mean %q?", s))
				}
				ctx.Report(d)
			}
			return
		}
		if decl, isDecl := sym.Node.(*ast.TypeDecl); isDecl {
			r.checkFieldOfType(ctx, m, decl.Definition)
		}
	}
}

// checkFieldOfType follows a declared type to a field set when one is
// statically knowable (entity/struct references, through Optional).
func (r Resolver) checkFieldOfType(ctx *passframework.PassContext, m *ast.MemberExpr, t ast.TypeExpr) {
	switch v := t.(type) {
	case *ast.StructType:
		r.checkField(ctx, m, "struct", fieldNames(v.Fields))
	case *ast.OptionalType:
		r.checkFieldOfType(ctx, m, v.Inner)
	case *ast.ReferenceType:
		sym, ok := ctx.GetSymbol(v.Name)
		if !ok {
			return
		}
		switch sym.Kind {
		case symbols.DeclEntity:
			entity := sym.Node.(*ast.Entity)
			r.checkField(ctx, m, v.Name, fieldNames(entity.Fields))
		case symbols.DeclType:
			if decl, isDecl := sym.Node.(*ast.TypeDecl); isDecl {
				if st, isStruct := decl.Definition.(*ast.StructType); isStruct {
					r.checkField(ctx, m, v.Name, fieldNames(st.Fields))
				}
			}
		}
	}
}

func (r Resolver) checkField(ctx *passframework.PassContext, m *ast.MemberExpr, owner string, fields []string) {
	if containsName(fields, m.Property) {
		return
	}
	d := diagnostics.New(diagnostics.CodeUndefinedField, "resolver", diagnostics.SeverityError,
		locOf(m), fmt.Sprintf("%q has no field %q", owner, m.Property))
	if s := suggest.For(m.Property, fields); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	ctx.Report(d)
}

func fieldNames(fields []*ast.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (r Resolver) resolveCallee(ctx *passframework.PassContext, call *ast.CallExpr) {
	if IsKnownCallable(call.Callee) {
		return
	}
	if _, ok := ctx.GetSymbol(call.Callee); ok {
		return
	}
	d := diagnostics.New(diagnostics.CodeUndefinedBehavior, "resolver", diagnostics.SeverityError,
		locOf(call), fmt.Sprintf("undefined function %q", call.Callee))
	if s := suggest.For(call.Callee, append(AllKnownCallables(), ctx.Symbols.Names()...)); s != "" {
		d.WithHelp(fmt.Sprintf("did you mean %q?", s))
	}
	ctx.Report(d)
}

func locOf(n ast.Node) diagnostics.Location {
	if n == nil {
		return diagnostics.Location{}
	}
	s := n.Span()
	return diagnostics.Location{File: s.File, Line: s.Line, Column: s.Column, EndLine: s.EndLine, EndColumn: s.EndColumn}
}
