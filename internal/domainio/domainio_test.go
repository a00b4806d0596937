package domainio

import (
	"testing"
	"time"

	"github.com/specverify/verifier/internal/ast"
)

const yamlDomain = `
name: Payments
version: 1.2.0
span: {line: 1, column: 1, endLine: 40, endColumn: 1}
types:
  - name: PaymentStatus
    span: {line: 3, column: 1, endLine: 3, endColumn: 60}
    definition:
      kind: Enum
      span: {line: 3, column: 22, endLine: 3, endColumn: 60}
      variants: [Pending, Processing, Completed, Failed, Refunded]
entities:
  - name: Account
    span: {line: 5, column: 1, endLine: 9, endColumn: 1}
    fields:
      - name: id
        span: {line: 6, column: 3, endLine: 6, endColumn: 12}
        type: UUID
      - name: balance
        span: {line: 7, column: 3, endLine: 7, endColumn: 18}
        type: Int
behaviors:
  - name: Transfer
    span: {line: 11, column: 1, endLine: 20, endColumn: 1}
    input:
      - name: amount
        span: {line: 12, column: 3, endLine: 12, endColumn: 16}
        type: Int
    output:
      success: Boolean
    preconditions:
      - kind: Binary
        span: {line: 14, column: 5, endLine: 14, endColumn: 17}
        op: ">"
        left: {kind: Identifier, span: {line: 14, column: 5, endLine: 14, endColumn: 11}, name: amount}
        right: {kind: NumberLiteral, span: {line: 14, column: 14, endLine: 14, endColumn: 17}, value: 100}
    postconditions:
      - condition: success
        span: {line: 16, column: 5, endLine: 18, endColumn: 1}
        predicates:
          - kind: Binary
            span: {line: 17, column: 7, endLine: 17, endColumn: 30}
            op: ">="
            left: {kind: Member, span: {line: 17, column: 7, endLine: 17, endColumn: 22}, object: {kind: Identifier, span: {line: 17, column: 7, endLine: 17, endColumn: 14}, name: Account}, property: balance}
            right: {kind: NumberLiteral, span: {line: 17, column: 27, endLine: 17, endColumn: 30}, value: 0}
`

func TestParseDomainYAML(t *testing.T) {
	d, decodeErrs, err := ParseDomainYAML([]byte(yamlDomain), "payments.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(decodeErrs) != 0 {
		t.Fatalf("unexpected decode errors: %v", decodeErrs)
	}
	if d.Name != "Payments" || d.Version != "1.2.0" {
		t.Errorf("domain header = %s/%s", d.Name, d.Version)
	}
	if len(d.Types) != 1 {
		t.Fatalf("expected one type, got %d", len(d.Types))
	}
	enum, ok := d.Types[0].Definition.(*ast.EnumType)
	if !ok || len(enum.Variants) != 5 {
		t.Fatalf("expected a 5-variant enum, got %T", d.Types[0].Definition)
	}
	if len(d.Behaviors) != 1 {
		t.Fatalf("expected one behavior, got %d", len(d.Behaviors))
	}
	b := d.Behaviors[0]
	if len(b.Preconditions) != 1 {
		t.Fatalf("expected one precondition, got %d", len(b.Preconditions))
	}
	bin, ok := b.Preconditions[0].(*ast.BinaryExpr)
	if !ok || bin.Op != ">" {
		t.Fatalf("expected a > comparison, got %#v", b.Preconditions[0])
	}
	if bin.Span().Line != 14 || bin.Span().File != "payments.yaml" {
		t.Errorf("precondition span = %+v", bin.Span())
	}
	id, ok := bin.Left.(*ast.Identifier)
	if !ok || id.Name != "amount" {
		t.Errorf("expected identifier amount, got %#v", bin.Left)
	}
	// Bare type names resolve to primitives when builtin, references
	// otherwise.
	if _, ok := b.Input[0].Type.(*ast.PrimitiveType); !ok {
		t.Errorf("Int should decode as a primitive, got %T", b.Input[0].Type)
	}
	member, ok := b.Postconditions[0].Predicates[0].(*ast.BinaryExpr).Left.(*ast.MemberExpr)
	if !ok || member.Property != "balance" {
		t.Errorf("expected Account.balance member, got %#v", member)
	}
}

func TestParseDomainJSON(t *testing.T) {
	jsonDomain := `{
		"name": "Auth",
		"version": "0.1.0",
		"behaviors": [{
			"name": "Login",
			"span": {"line": 2, "column": 1, "endLine": 6, "endColumn": 1},
			"input": [{"name": "password", "type": "String", "span": {"line": 3, "column": 3, "endLine": 3, "endColumn": 20}}],
			"output": {"success": "Boolean"},
			"preconditions": [
				{"kind": "Unary", "op": "!", "span": {"line": 4, "column": 5, "endLine": 4, "endColumn": 25},
				 "operand": {"kind": "Call", "callee": "isEmpty", "span": {"line": 4, "column": 6, "endLine": 4, "endColumn": 25},
				             "args": [{"kind": "Identifier", "name": "password", "span": {"line": 4, "column": 14, "endLine": 4, "endColumn": 24}}]}}
			]
		}]
	}`
	d, decodeErrs, err := ParseDomainJSON([]byte(jsonDomain), "auth.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(decodeErrs) != 0 {
		t.Fatalf("unexpected decode errors: %v", decodeErrs)
	}
	un, ok := d.Behaviors[0].Preconditions[0].(*ast.UnaryExpr)
	if !ok || un.Op != "!" {
		t.Fatalf("expected unary !, got %#v", d.Behaviors[0].Preconditions[0])
	}
	call, ok := un.Operand.(*ast.CallExpr)
	if !ok || call.Callee != "isEmpty" || len(call.Args) != 1 {
		t.Fatalf("expected isEmpty(password), got %#v", un.Operand)
	}
}

func TestParseDomainReportsUnknownKinds(t *testing.T) {
	bad := `
name: Broken
behaviors:
  - name: B
    output: {success: Boolean}
    preconditions:
      - kind: Teleport
        span: {line: 5, column: 1, endLine: 5, endColumn: 9}
`
	_, decodeErrs, err := ParseDomainYAML([]byte(bad), "broken.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(decodeErrs) != 1 {
		t.Fatalf("expected one decode error, got %v", decodeErrs)
	}
	if decodeErrs[0].Path != "behaviors[0].preconditions[0]" {
		t.Errorf("decode error should carry the node path, got %q", decodeErrs[0].Path)
	}
}

func TestParseTracesBareAndWrapped(t *testing.T) {
	bare := `[{"id": "t1", "behavior": "Transfer", "events": [
		{"stateChange": {"path": "account.balance", "oldValue": 10, "newValue": 5}},
		{"check": {"category": "precondition", "expression": "amount > 0", "passed": true}}
	]}]`
	traces, err := ParseTraces([]byte(bare), "traces.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 1 || traces[0].Behavior != "Transfer" {
		t.Fatalf("unexpected traces: %+v", traces)
	}
	if traces[0].Events[0].StateChange.Path != "account.balance" {
		t.Errorf("state change not decoded: %+v", traces[0].Events[0])
	}

	wrapped := `{"traces": ` + bare + `}`
	traces, err = ParseTraces([]byte(wrapped), "traces.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(traces) != 1 {
		t.Fatalf("wrapped form should decode too, got %d traces", len(traces))
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"), "verify.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Solver.Backend != "local" {
		t.Errorf("default backend = %q", cfg.Solver.Backend)
	}
	if cfg.Budgets.TimeoutPerClause != 5*time.Second || cfg.Budgets.GlobalTimeout != 60*time.Second {
		t.Errorf("default budgets = %+v", cfg.Budgets)
	}
	if cfg.Solver.MaxVariables != 200 {
		t.Errorf("default maxVariables = %d", cfg.Solver.MaxVariables)
	}
}

func TestParseConfigValidatesBackend(t *testing.T) {
	if _, err := ParseConfig([]byte("solver:\n  backend: carrier-pigeon\n"), "verify.yaml"); err == nil {
		t.Fatal("expected an unknown-backend error")
	}
	if _, err := ParseConfig([]byte("solver:\n  backend: grpc\n"), "verify.yaml"); err == nil {
		t.Fatal("grpc backend without a target should be rejected")
	}
	cfg, err := ParseConfig([]byte("solver:\n  backend: grpc\n  target: localhost:9090\n"), "verify.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Solver.Target != "localhost:9090" {
		t.Errorf("target = %q", cfg.Solver.Target)
	}
}
