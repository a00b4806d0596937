package diffengine

import (
	"testing"

	"github.com/specverify/verifier/internal/ast"
)

func TestSerializeExprIsFullyParenthesized(t *testing.T) {
	// a + b * c with explicit tree shape: a + (b * c).
	e := &ast.BinaryExpr{
		Op:   "+",
		Left: &ast.Identifier{Name: "a"},
		Right: &ast.BinaryExpr{
			Op:    "*",
			Left:  &ast.Identifier{Name: "b"},
			Right: &ast.Identifier{Name: "c"},
		},
	}
	if got := SerializeExpr(e); got != "(a + (b * c))" {
		t.Errorf("SerializeExpr = %q", got)
	}
}

func TestSerializeExprKeepsOperandOrder(t *testing.T) {
	ab := &ast.BinaryExpr{Op: "+", Left: &ast.Identifier{Name: "a"}, Right: &ast.Identifier{Name: "b"}}
	ba := &ast.BinaryExpr{Op: "+", Left: &ast.Identifier{Name: "b"}, Right: &ast.Identifier{Name: "a"}}
	// Commutativity is deliberately not canonicalized.
	if SerializeExpr(ab) == SerializeExpr(ba) {
		t.Error("a + b and b + a must serialize differently")
	}
}

func TestSerializeExprIsDeterministic(t *testing.T) {
	e := &ast.CallExpr{
		Callee: "contains",
		Args: []ast.Expression{
			&ast.MemberExpr{Object: &ast.Identifier{Name: "grant"}, Property: "used"},
			&ast.StringLiteral{Value: "x"},
		},
	}
	if SerializeExpr(e) != SerializeExpr(e) {
		t.Error("serialization must be deterministic")
	}
}

func TestSerializeType(t *testing.T) {
	cases := []struct {
		t    ast.TypeExpr
		want string
	}{
		{&ast.PrimitiveType{Name: "Int"}, "Int"},
		{&ast.ListType{Elem: &ast.PrimitiveType{Name: "String"}}, "List<String>"},
		{&ast.OptionalType{Inner: &ast.ReferenceType{Name: "User"}}, "Optional<User>"},
		{&ast.MapType{Key: &ast.PrimitiveType{Name: "String"}, Value: &ast.PrimitiveType{Name: "Int"}}, "Map<String,Int>"},
	}
	for _, c := range cases {
		if got := SerializeType(c.t); got != c.want {
			t.Errorf("SerializeType = %q, want %q", got, c.want)
		}
	}
}

func TestVersionOnlyBumpIsCompatibleNotEmpty(t *testing.T) {
	a := &ast.Domain{Name: "D", Version: "1.0.0"}
	b := &ast.Domain{Name: "D", Version: "1.1.0"}
	d := Diff(a, b)
	if d.IsEmpty {
		t.Fatal("a version bump is not an empty diff")
	}
	if !d.VersionChanged || d.OldVersion != "1.0.0" || d.NewVersion != "1.1.0" {
		t.Errorf("version fields = %+v", d)
	}
	if d.Summary.CompatibleChanges != 1 || d.Summary.BreakingChanges != 0 {
		t.Errorf("a pure version bump should tally one compatible change, got %+v", d.Summary)
	}
}
