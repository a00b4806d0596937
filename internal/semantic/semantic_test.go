package semantic

import (
	"strings"
	"testing"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diagnostics"
	"github.com/specverify/verifier/internal/passframework"
)

// analyzeDomain runs the four built-in passes over domain and returns
// every diagnostic, in bus order.
func analyzeDomain(d *ast.Domain) []*diagnostics.Diagnostic {
	ctx := passframework.NewContext(d)
	sched := passframework.New()
	sched.Register(Resolver{})
	sched.Register(Purity{})
	sched.Register(Exhaustiveness{})
	sched.Register(Consistency{})
	sched.Run(ctx, false)
	return ctx.Diagnostics.All()
}

// expectDiagnostic asserts exactly one diagnostic with the given code
// and returns it.
func expectDiagnostic(t *testing.T, diags []*diagnostics.Diagnostic, code diagnostics.Code) *diagnostics.Diagnostic {
	t.Helper()
	var found []*diagnostics.Diagnostic
	for _, d := range diags {
		if d.Code == code {
			found = append(found, d)
		}
	}
	if len(found) != 1 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Error())
		}
		t.Fatalf("expected exactly one %s, got %d:\n%s", code, len(found), strings.Join(msgs, "\n"))
	}
	return found[0]
}

// expectNoDiagnostic asserts no diagnostic with the given code exists.
func expectNoDiagnostic(t *testing.T, diags []*diagnostics.Diagnostic, code diagnostics.Code) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			t.Fatalf("expected no %s, got: %s", code, d.Error())
		}
	}
}

func intField(name string) *ast.Field {
	return &ast.Field{Name: name, Type: &ast.PrimitiveType{Name: "Int"}}
}

func spanAt(line, col int) ast.Span {
	return ast.Span{File: "test.spec", Line: line, Column: col, EndLine: line, EndColumn: col + 1}
}

// ---------------------------------------------------------------------------
// E0310 — unsatisfiable numeric bounds
// ---------------------------------------------------------------------------

func TestUnsatisfiableBoundsReported(t *testing.T) {
	amount := func() ast.Expression { return &ast.Identifier{NodeSpan: spanAt(3, 5), Name: "amount"} }
	transfer := &ast.Behavior{
		Name:   "Transfer",
		Input:  []*ast.Field{intField("amount")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{NodeSpan: spanAt(3, 3), Op: ">", Left: amount(), Right: &ast.NumberLiteral{Value: 100}},
			&ast.BinaryExpr{NodeSpan: spanAt(4, 3), Op: "<", Left: amount(), Right: &ast.NumberLiteral{Value: 50}},
		},
	}
	d := &ast.Domain{Name: "Payments", Behaviors: []*ast.Behavior{transfer}}

	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUnsatBounds)
	if !strings.Contains(diag.Message, "amount") {
		t.Errorf("E0310 should name the variable, got: %s", diag.Message)
	}
	if !strings.Contains(diag.Message, "100") || !strings.Contains(diag.Message, "50") {
		t.Errorf("E0310 should cite both bounds, got: %s", diag.Message)
	}
	if len(diag.RelatedLocations) != 1 {
		t.Errorf("E0310 should point at the conflicting bound, got %d related locations", len(diag.RelatedLocations))
	}
}

func TestSatisfiableBoundsNotReported(t *testing.T) {
	amount := func() ast.Expression { return &ast.Identifier{Name: "amount"} }
	b := &ast.Behavior{
		Name:   "Transfer",
		Input:  []*ast.Field{intField("amount")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: ">=", Left: amount(), Right: &ast.NumberLiteral{Value: 50}},
			&ast.BinaryExpr{Op: "<=", Left: amount(), Right: &ast.NumberLiteral{Value: 50}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectNoDiagnostic(t, diags, diagnostics.CodeUnsatBounds)
}

func TestEqualBoundsWithExclusiveSideReported(t *testing.T) {
	x := func() ast.Expression { return &ast.Identifier{Name: "x"} }
	b := &ast.Behavior{
		Name:   "Check",
		Input:  []*ast.Field{intField("x")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: ">", Left: x(), Right: &ast.NumberLiteral{Value: 5}},
			&ast.BinaryExpr{Op: "<=", Left: x(), Right: &ast.NumberLiteral{Value: 5}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeUnsatBounds)
}

// Bounds written literal-first must be flipped before comparison.
func TestBoundsLiteralFirstAreCanonicalized(t *testing.T) {
	x := func() ast.Expression { return &ast.Identifier{Name: "x"} }
	b := &ast.Behavior{
		Name:   "Check",
		Input:  []*ast.Field{intField("x")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			// 100 < x  ≡  x > 100
			&ast.BinaryExpr{Op: "<", Left: &ast.NumberLiteral{Value: 100}, Right: x()},
			&ast.BinaryExpr{Op: "<", Left: x(), Right: &ast.NumberLiteral{Value: 50}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeUnsatBounds)
}

// ---------------------------------------------------------------------------
// E0701/E0702/E0705 — exhaustiveness
// ---------------------------------------------------------------------------

func paymentDomain(preconditions []ast.Expression) *ast.Domain {
	return &ast.Domain{
		Name: "Payments",
		Types: []*ast.TypeDecl{{
			Name: "PaymentStatus",
			Definition: &ast.EnumType{Variants: []string{"Pending", "Processing", "Completed", "Failed", "Refunded"}},
		}},
		Behaviors: []*ast.Behavior{{
			Name:          "Settle",
			Input:         []*ast.Field{{Name: "status", Type: &ast.ReferenceType{Name: "PaymentStatus"}}},
			Output:        ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
			Preconditions: preconditions,
		}},
	}
}

func statusGuard(variant string) ast.Expression {
	return &ast.BinaryExpr{
		Op:   "==",
		Left: &ast.Identifier{Name: "status"},
		Right: &ast.MemberExpr{
			Object:   &ast.Identifier{Name: "PaymentStatus"},
			Property: variant,
		},
	}
}

func TestNonExhaustiveEnumGuardsReported(t *testing.T) {
	d := paymentDomain([]ast.Expression{statusGuard("Pending"), statusGuard("Completed")})
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeMissingVariant)
	for _, missing := range []string{"Failed", "Processing", "Refunded"} {
		if !strings.Contains(diag.Message, missing) {
			t.Errorf("E0701 should list missing variant %q, got: %s", missing, diag.Message)
		}
	}
	for _, covered := range []string{"Pending", "Completed"} {
		if strings.Contains(diag.Message, "missing [") && strings.Contains(diag.Message, covered) {
			t.Errorf("E0701 should not list covered variant %q, got: %s", covered, diag.Message)
		}
	}
}

func TestExhaustiveEnumGuardsClean(t *testing.T) {
	d := paymentDomain([]ast.Expression{
		statusGuard("Pending"), statusGuard("Processing"), statusGuard("Completed"),
		statusGuard("Failed"), statusGuard("Refunded"),
	})
	diags := analyzeDomain(d)
	expectNoDiagnostic(t, diags, diagnostics.CodeMissingVariant)
	expectNoDiagnostic(t, diags, diagnostics.CodeRedundantVariant)
}

func TestDuplicateEnumGuardReported(t *testing.T) {
	d := paymentDomain([]ast.Expression{
		statusGuard("Pending"), statusGuard("Processing"), statusGuard("Completed"),
		statusGuard("Failed"), statusGuard("Refunded"), statusGuard("Pending"),
	})
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeRedundantVariant)
	if !strings.Contains(diag.Message, "Pending") {
		t.Errorf("E0702 should name the duplicated variant, got: %s", diag.Message)
	}
}

func TestConditionalOverLargeEnumSuggestsExhaustiveMatch(t *testing.T) {
	cond := &ast.ConditionalExpr{
		Cond: statusGuard("Pending"),
		Then: &ast.BooleanLiteral{Value: true},
		Else: &ast.BooleanLiteral{Value: false},
	}
	d := paymentDomain([]ast.Expression{cond})
	diags := analyzeDomain(d)
	expectDiagnostic(t, diags, diagnostics.CodeSuggestExhaustive)
}

func TestUncoveredDeclaredErrorsReported(t *testing.T) {
	b := &ast.Behavior{
		Name:  "Charge",
		Input: []*ast.Field{intField("amount")},
		Output: ast.Output{
			Success: &ast.PrimitiveType{Name: "Boolean"},
			Errors: []*ast.ErrorSpec{
				{Name: "InsufficientFunds"},
				{Name: "CardExpired"},
			},
		},
		Postconditions: []*ast.PostconditionBlock{
			{Condition: "success", Predicates: []ast.Expression{&ast.BooleanLiteral{Value: true}}},
			{Condition: "InsufficientFunds", Predicates: []ast.Expression{&ast.BooleanLiteral{Value: true}}},
		},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: ">", Left: &ast.Identifier{Name: "amount"}, Right: &ast.NumberLiteral{Value: 0}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	diag := expectDiagnostic(t, diags, diagnostics.CodeUncoveredError)
	if !strings.Contains(diag.Message, "CardExpired") {
		t.Errorf("E0705 should name the uncovered error, got: %s", diag.Message)
	}
}

func TestAnyErrorBranchCoversAllErrors(t *testing.T) {
	b := &ast.Behavior{
		Name: "Charge",
		Output: ast.Output{
			Success: &ast.PrimitiveType{Name: "Boolean"},
			Errors:  []*ast.ErrorSpec{{Name: "InsufficientFunds"}, {Name: "CardExpired"}},
		},
		Postconditions: []*ast.PostconditionBlock{
			{Condition: "success"},
			{Condition: "any_error"},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectNoDiagnostic(t, diags, diagnostics.CodeUncoveredError)
}

func TestErrorsWithNoPostconditionsReported(t *testing.T) {
	b := &ast.Behavior{
		Name: "Charge",
		Output: ast.Output{
			Success: &ast.PrimitiveType{Name: "Boolean"},
			Errors:  []*ast.ErrorSpec{{Name: "InsufficientFunds"}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeUncoveredError)
}

// ---------------------------------------------------------------------------
// E0311 — result in precondition
// ---------------------------------------------------------------------------

func TestResultInPreconditionReported(t *testing.T) {
	resultNode := &ast.ResultExpr{NodeSpan: spanAt(7, 12), Property: "id"}
	b := &ast.Behavior{
		Name:   "CreateUser",
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "UUID"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{
				NodeSpan: spanAt(7, 3),
				Op:       "!=",
				Left:     resultNode,
				Right:    &ast.NullLiteral{},
			},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	diag := expectDiagnostic(t, diags, diagnostics.CodeResultInPrecond)
	// The location must point at the result node itself, not the whole
	// precondition.
	if diag.Location.Line != 7 || diag.Location.Column != 12 {
		t.Errorf("E0311 location should be the Result node (7:12), got %d:%d", diag.Location.Line, diag.Location.Column)
	}
}

func TestOldInPreconditionReported(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Update",
		Input:  []*ast.Field{intField("n")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Int"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: ">", Left: &ast.OldExpr{Inner: &ast.Identifier{Name: "n"}}, Right: &ast.NumberLiteral{Value: 0}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeOldInPrecondition)
}

func TestOldAndResultLegalInPostcondition(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Increment",
		Input:  []*ast.Field{intField("n")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Int"}},
		Postconditions: []*ast.PostconditionBlock{{
			Condition: "success",
			Predicates: []ast.Expression{
				&ast.BinaryExpr{
					Op:    ">",
					Left:  &ast.ResultExpr{},
					Right: &ast.OldExpr{Inner: &ast.Identifier{Name: "n"}},
				},
			},
		}},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectNoDiagnostic(t, diags, diagnostics.CodeResultInPrecond)
	expectNoDiagnostic(t, diags, diagnostics.CodeOldInPrecondition)
	expectNoDiagnostic(t, diags, diagnostics.CodeOldOutsidePost)
	expectNoDiagnostic(t, diags, diagnostics.CodeResultOutsidePost)
}

func TestResultInInvariantIsWarning(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Check",
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Int"}},
		Invariants: []ast.Expression{
			&ast.BinaryExpr{Op: ">", Left: &ast.ResultExpr{}, Right: &ast.NumberLiteral{Value: 0}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	diag := expectDiagnostic(t, diags, diagnostics.CodeResultInInvariant)
	if diag.Severity != diagnostics.SeverityWarning {
		t.Errorf("W0311 should be a warning, got %s", diag.Severity)
	}
}

// ---------------------------------------------------------------------------
// E0400/E0401/E0402/E0414 — purity
// ---------------------------------------------------------------------------

func TestMutatingCallInPreconditionReported(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Pay",
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.CallExpr{Callee: "save", Args: []ast.Expression{&ast.Identifier{Name: "Pay"}}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeMutatingCall)
}

func TestMutatingCallInInvariantUsesInvariantCode(t *testing.T) {
	b := &ast.Behavior{
		Name:       "Pay",
		Output:     ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Invariants: []ast.Expression{&ast.CallExpr{Callee: "delete"}},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeMutatingInInvariant)
	expectNoDiagnostic(t, diags, diagnostics.CodeMutatingCall)
}

func TestNonDeterministicCallReported(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Stamp",
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Timestamp"}},
		Postconditions: []*ast.PostconditionBlock{{
			Condition: "success",
			Predicates: []ast.Expression{
				&ast.BinaryExpr{Op: "==", Left: &ast.ResultExpr{}, Right: &ast.CallExpr{Callee: "now"}},
			},
		}},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeNonDeterministicCall)
}

func TestAssignmentInClauseReported(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Set",
		Input:  []*ast.Field{intField("x")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: "=", Left: &ast.Identifier{Name: "x"}, Right: &ast.NumberLiteral{Value: 1}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	diag := expectDiagnostic(t, diags, diagnostics.CodeAssignmentInClause)
	if !strings.Contains(diag.Message, "==") {
		t.Errorf("E0414 should suggest ==, got: %s", diag.Message)
	}
}

// ---------------------------------------------------------------------------
// Resolver — undefined names and did-you-mean
// ---------------------------------------------------------------------------

func TestUndefinedTypeSuggestsNearMiss(t *testing.T) {
	d := &ast.Domain{
		Name:  "D",
		Types: []*ast.TypeDecl{{Name: "Email", Definition: &ast.PrimitiveType{Name: "String"}}},
		Behaviors: []*ast.Behavior{{
			Name:   "Register",
			Input:  []*ast.Field{{Name: "email", Type: &ast.ReferenceType{Name: "Emial"}}},
			Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
			Preconditions: []ast.Expression{
				&ast.BinaryExpr{Op: "!=", Left: &ast.Identifier{Name: "email"}, Right: &ast.NullLiteral{}},
			},
		}},
	}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedType)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "Email") {
		t.Errorf("expected did-you-mean Email, got help: %v", diag.Help)
	}
}

func TestCaseFlippedBuiltinGetsDedicatedHelp(t *testing.T) {
	d := &ast.Domain{
		Name: "D",
		Behaviors: []*ast.Behavior{{
			Name:   "Register",
			Input:  []*ast.Field{{Name: "name", Type: &ast.ReferenceType{Name: "string"}}},
			Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		}},
	}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedType)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "String") {
		t.Errorf("expected case-sensitivity help naming String, got: %v", diag.Help)
	}
	if !strings.Contains(diag.Help[0], "case") {
		t.Errorf("expected the dedicated case help line, got: %v", diag.Help)
	}
}

func TestUndefinedVariableReported(t *testing.T) {
	b := &ast.Behavior{
		Name:   "Check",
		Input:  []*ast.Field{intField("amount")},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.BinaryExpr{Op: ">", Left: &ast.Identifier{Name: "ammount"}, Right: &ast.NumberLiteral{Value: 0}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedVariable)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "amount") {
		t.Errorf("expected did-you-mean amount, got help: %v", diag.Help)
	}
}

func TestQuantifierBoundVariableResolves(t *testing.T) {
	b := &ast.Behavior{
		Name:  "All",
		Input: []*ast.Field{{Name: "items", Type: &ast.ListType{Elem: &ast.PrimitiveType{Name: "Int"}}}},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.QuantifierExpr{
				Kind_:      "forall",
				Var:        "item",
				Collection: &ast.Identifier{Name: "items"},
				Predicate:  &ast.BinaryExpr{Op: ">", Left: &ast.Identifier{Name: "item"}, Right: &ast.NumberLiteral{Value: 0}},
			},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedVariable)
}

// After the quantifier scope pops, the bound variable is gone.
func TestQuantifierVariableDoesNotLeak(t *testing.T) {
	b := &ast.Behavior{
		Name:  "All",
		Input: []*ast.Field{{Name: "items", Type: &ast.ListType{Elem: &ast.PrimitiveType{Name: "Int"}}}},
		Output: ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
		Preconditions: []ast.Expression{
			&ast.QuantifierExpr{
				Kind_:      "exists",
				Var:        "item",
				Collection: &ast.Identifier{Name: "items"},
				Predicate:  &ast.BooleanLiteral{Value: true},
			},
			&ast.BinaryExpr{Op: ">", Left: &ast.Identifier{Name: "item"}, Right: &ast.NumberLiteral{Value: 0}},
		},
	}
	diags := analyzeDomain(&ast.Domain{Name: "D", Behaviors: []*ast.Behavior{b}})
	expectDiagnostic(t, diags, diagnostics.CodeUndefinedVariable)
}

// ---------------------------------------------------------------------------
// E0202 — undefined field access
// ---------------------------------------------------------------------------

func grantDomain(pre ast.Expression) *ast.Domain {
	return &ast.Domain{
		Name: "Auth",
		Entities: []*ast.Entity{{
			Name: "AuthorizationGrant",
			Fields: []*ast.Field{
				{Name: "code", Type: &ast.PrimitiveType{Name: "String"}},
				{Name: "used", Type: &ast.PrimitiveType{Name: "Boolean"}},
			},
		}},
		Behaviors: []*ast.Behavior{{
			Name:          "ExchangeCode",
			Output:        ast.Output{Success: &ast.PrimitiveType{Name: "Boolean"}},
			Preconditions: []ast.Expression{pre},
		}},
	}
}

func TestUndefinedEntityFieldAccessReported(t *testing.T) {
	pre := &ast.BinaryExpr{
		Op: "==",
		Left: &ast.MemberExpr{
			NodeSpan: spanAt(4, 5),
			Object:   &ast.Identifier{Name: "AuthorizationGrant"},
			Property: "usedd",
		},
		Right: &ast.BooleanLiteral{Value: false},
	}
	diags := analyzeDomain(grantDomain(pre))
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedField)
	if !strings.Contains(diag.Message, "usedd") {
		t.Errorf("E0202 should name the missing field, got: %s", diag.Message)
	}
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "used") {
		t.Errorf("expected a field-scoped did-you-mean, got help: %v", diag.Help)
	}
}

func TestDefinedEntityFieldAccessClean(t *testing.T) {
	pre := &ast.BinaryExpr{
		Op: "==",
		Left: &ast.MemberExpr{
			Object:   &ast.Identifier{Name: "AuthorizationGrant"},
			Property: "used",
		},
		Right: &ast.BooleanLiteral{Value: false},
	}
	diags := analyzeDomain(grantDomain(pre))
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedField)
}

func TestFieldAccessThroughTypedInputResolves(t *testing.T) {
	d := grantDomain(&ast.BooleanLiteral{Value: true})
	d.Behaviors[0].Input = []*ast.Field{{Name: "grant", Type: &ast.ReferenceType{Name: "AuthorizationGrant"}}}
	d.Behaviors[0].Preconditions = []ast.Expression{
		&ast.BinaryExpr{
			Op: "==",
			Left: &ast.MemberExpr{
				Object:   &ast.Identifier{Name: "grant"},
				Property: "revoked",
			},
			Right: &ast.BooleanLiteral{Value: false},
		},
	}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedField)
	if !strings.Contains(diag.Message, "revoked") {
		t.Errorf("E0202 should flag the typed input's missing field, got: %s", diag.Message)
	}
}

func TestUnknownEnumVariantAccessReported(t *testing.T) {
	d := paymentDomain([]ast.Expression{statusGuard("Pending")})
	d.Behaviors[0].Preconditions = append(d.Behaviors[0].Preconditions,
		&ast.BinaryExpr{
			Op:   "==",
			Left: &ast.Identifier{Name: "status"},
			Right: &ast.MemberExpr{
				Object:   &ast.Identifier{Name: "PaymentStatus"},
				Property: "Pendingg",
			},
		})
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedField)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "Pending") {
		t.Errorf("expected a variant-scoped did-you-mean, got help: %v", diag.Help)
	}
}

// Fields of unbound objects stay silent: the object itself is E0300 and
// a field complaint on top of it would be noise.
func TestFieldAccessOnUnknownObjectOnlyReportsObject(t *testing.T) {
	pre := &ast.BinaryExpr{
		Op: "==",
		Left: &ast.MemberExpr{
			Object:   &ast.Identifier{Name: "nowhere"},
			Property: "anything",
		},
		Right: &ast.BooleanLiteral{Value: false},
	}
	diags := analyzeDomain(grantDomain(pre))
	expectDiagnostic(t, diags, diagnostics.CodeUndefinedVariable)
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedField)
}

// ---------------------------------------------------------------------------
// E0301/E0302 — entity and behavior slots
// ---------------------------------------------------------------------------

func TestViewWithUndefinedSourceReported(t *testing.T) {
	d := grantDomain(&ast.BooleanLiteral{Value: true})
	d.Views = []*ast.View{{Name: "GrantSummary", Source: "AuthorizationGrand"}}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedEntity)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "AuthorizationGrant") {
		t.Errorf("expected an entity-scoped did-you-mean, got help: %v", diag.Help)
	}
}

func TestChaosTargetingUndefinedBehaviorReported(t *testing.T) {
	d := grantDomain(&ast.BooleanLiteral{Value: true})
	d.Chaos = []*ast.ChaosTest{{Name: "drop-db", Target: "ExchangeCodee", Fault: "network_partition"}}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedBehavior)
	if len(diag.Help) == 0 || !strings.Contains(diag.Help[0], "ExchangeCode") {
		t.Errorf("expected a behavior-scoped did-you-mean, got help: %v", diag.Help)
	}
}

func TestViewAndChaosWithValidSlotsClean(t *testing.T) {
	d := grantDomain(&ast.BooleanLiteral{Value: true})
	d.Views = []*ast.View{{Name: "GrantSummary", Source: "AuthorizationGrant"}}
	d.Chaos = []*ast.ChaosTest{{Name: "drop-db", Target: "ExchangeCode", Fault: "network_partition"}}
	diags := analyzeDomain(d)
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedEntity)
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedBehavior)
}

// ---------------------------------------------------------------------------
// E0312 — undefined postcondition field
// ---------------------------------------------------------------------------

func TestUndefinedResultFieldReported(t *testing.T) {
	d := &ast.Domain{
		Name: "D",
		Entities: []*ast.Entity{{
			Name: "OAuthToken",
			Fields: []*ast.Field{
				{Name: "access_token", Type: &ast.PrimitiveType{Name: "String"}},
				{Name: "expires_at", Type: &ast.PrimitiveType{Name: "Timestamp"}},
			},
		}},
		Behaviors: []*ast.Behavior{{
			Name:   "Issue",
			Output: ast.Output{Success: &ast.ReferenceType{Name: "OAuthToken"}},
			Postconditions: []*ast.PostconditionBlock{{
				Condition: "success",
				Predicates: []ast.Expression{
					&ast.BinaryExpr{Op: "!=", Left: &ast.ResultExpr{Property: "refresh_token"}, Right: &ast.NullLiteral{}},
					&ast.BinaryExpr{Op: "!=", Left: &ast.ResultExpr{Property: "access_token"}, Right: &ast.NullLiteral{}},
				},
			}},
		}},
	}
	diags := analyzeDomain(d)
	diag := expectDiagnostic(t, diags, diagnostics.CodeUndefinedPostcondField)
	if !strings.Contains(diag.Message, "refresh_token") {
		t.Errorf("E0312 should name the missing field, got: %s", diag.Message)
	}
	if len(diag.Notes) == 0 || !strings.Contains(diag.Notes[0], "access_token") {
		t.Errorf("E0312 should list available fields, got notes: %v", diag.Notes)
	}
}

// ---------------------------------------------------------------------------
// E0320/E0324 — unused symbols
// ---------------------------------------------------------------------------

func TestUnusedEntityReported(t *testing.T) {
	d := &ast.Domain{
		Name: "D",
		Entities: []*ast.Entity{{
			Name: "Orphan",
			Fields: []*ast.Field{
				{Name: "id", Type: &ast.PrimitiveType{Name: "UUID"}},
				{Name: "payload", Type: &ast.PrimitiveType{Name: "String"}},
			},
		}},
	}
	diags := analyzeDomain(d)
	expectDiagnostic(t, diags, diagnostics.CodeUnusedEntity)
	// "payload" is flagged; the implicit "id" is not.
	fieldDiag := expectDiagnostic(t, diags, diagnostics.CodeUnusedEntityField)
	if !strings.Contains(fieldDiag.Message, "payload") {
		t.Errorf("expected payload flagged, got: %s", fieldDiag.Message)
	}
}

func TestReferencedEntityNotReported(t *testing.T) {
	d := &ast.Domain{
		Name: "D",
		Entities: []*ast.Entity{{
			Name:   "User",
			Fields: []*ast.Field{{Name: "email", Type: &ast.PrimitiveType{Name: "String"}}},
		}},
		Behaviors: []*ast.Behavior{{
			Name:   "Register",
			Input:  []*ast.Field{{Name: "email", Type: &ast.PrimitiveType{Name: "String"}}},
			Output: ast.Output{Success: &ast.ReferenceType{Name: "User"}},
			Preconditions: []ast.Expression{
				&ast.BinaryExpr{Op: "!=", Left: &ast.Identifier{Name: "email"}, Right: &ast.NullLiteral{}},
			},
		}},
	}
	diags := analyzeDomain(d)
	expectNoDiagnostic(t, diags, diagnostics.CodeUnusedEntity)
	expectNoDiagnostic(t, diags, diagnostics.CodeUnusedInputField)
}

// ---------------------------------------------------------------------------
// Scenario B — OAuth exchange stays clean statically
// ---------------------------------------------------------------------------

func TestOAuthExchangeHasNoScopeOrExhaustivenessErrors(t *testing.T) {
	d := &ast.Domain{
		Name: "Auth",
		Entities: []*ast.Entity{
			{Name: "AuthorizationGrant", Fields: []*ast.Field{
				{Name: "code", Type: &ast.PrimitiveType{Name: "String"}},
				{Name: "used", Type: &ast.PrimitiveType{Name: "Boolean"}},
			}},
			{Name: "OAuthToken", Fields: []*ast.Field{
				{Name: "access_token", Type: &ast.PrimitiveType{Name: "String"}},
			}},
		},
		Behaviors: []*ast.Behavior{{
			Name:   "ExchangeCode",
			Input:  []*ast.Field{{Name: "code", Type: &ast.PrimitiveType{Name: "String"}}},
			Output: ast.Output{Success: &ast.ReferenceType{Name: "OAuthToken"}},
			Preconditions: []ast.Expression{
				&ast.CallExpr{Callee: "contains", Args: []ast.Expression{
					&ast.Identifier{Name: "AuthorizationGrant"}, &ast.Identifier{Name: "code"},
				}},
				&ast.BinaryExpr{
					Op:    "==",
					Left:  &ast.MemberExpr{Object: &ast.Identifier{Name: "AuthorizationGrant"}, Property: "used"},
					Right: &ast.BooleanLiteral{Value: false},
				},
			},
			Postconditions: []*ast.PostconditionBlock{{
				Condition: "success",
				Predicates: []ast.Expression{
					&ast.BinaryExpr{Op: "!=", Left: &ast.ResultExpr{Property: "access_token"}, Right: &ast.NullLiteral{}},
				},
			}},
		}},
	}
	diags := analyzeDomain(d)
	expectNoDiagnostic(t, diags, diagnostics.CodeResultInPrecond)
	expectNoDiagnostic(t, diags, diagnostics.CodeUndefinedPostcondField)
	expectNoDiagnostic(t, diags, diagnostics.CodeSuggestExhaustive)
}
