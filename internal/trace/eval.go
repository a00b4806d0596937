package trace

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/diffengine"
)

// Tri is the three-valued logic result a clause evaluates to.
type Tri string

const (
	TriTrue    Tri = "true"
	TriFalse   Tri = "false"
	TriUnknown Tri = "unknown"
)

func kAnd(a, b Tri) Tri {
	if a == TriFalse || b == TriFalse {
		return TriFalse
	}
	if a == TriTrue && b == TriTrue {
		return TriTrue
	}
	return TriUnknown
}

func kOr(a, b Tri) Tri {
	if a == TriTrue || b == TriTrue {
		return TriTrue
	}
	if a == TriFalse && b == TriFalse {
		return TriFalse
	}
	return TriUnknown
}

func kNot(a Tri) Tri {
	switch a {
	case TriTrue:
		return TriFalse
	case TriFalse:
		return TriTrue
	default:
		return TriUnknown
	}
}

// hashPatterns is the closed list of regexes never_stored_plaintext
// recognizes as "this looks hashed, not plaintext" (spec.md §4.10).
var hashPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\$2[aby]\$\d{2}\$`),        // bcrypt
	regexp.MustCompile(`^[a-fA-F0-9]{64}$`),         // sha-256 hex
	regexp.MustCompile(`^[a-fA-F0-9]{128}$`),        // sha-512 hex
	regexp.MustCompile(`^pbkdf2(:|\$)`),             // pbkdf2
	regexp.MustCompile(`^\$argon2(id|i|d)\$`),       // argon2
}

func looksHashed(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, p := range hashPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// env is the evaluation environment for one clause: the before/after
// state snapshots, a lexical scope for quantifier-bound variables, and
// whether lookups should currently resolve against pre- or post-state
// (flipped inside Old(...)).
type env struct {
	pre, post snapshot
	bound     map[string]interface{}
	usePre    bool
	events    []Event
}

func newEnv(pre, post snapshot, events []Event) *env {
	return &env{pre: pre, post: post, bound: map[string]interface{}{}, events: events}
}

func (e *env) state() snapshot {
	if e.usePre {
		return e.pre
	}
	return e.post
}

func (e *env) withBound(name string, v interface{}) *env {
	cp := &env{pre: e.pre, post: e.post, usePre: e.usePre, events: e.events, bound: map[string]interface{}{}}
	for k, bv := range e.bound {
		cp.bound[k] = bv
	}
	cp.bound[name] = v
	return cp
}

func (e *env) withPre() *env {
	cp := *e
	cp.usePre = true
	return &cp
}

// pathOf returns the dotted state path an expression refers to, when it
// is a simple name/member chain.
func pathOf(e ast.Expression) (string, bool) {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Name, true
	case *ast.QualifiedName:
		return strings.Join(v.Parts, "."), true
	case *ast.MemberExpr:
		base, ok := pathOf(v.Object)
		if !ok {
			return "", false
		}
		return base + "." + v.Property, true
	case *ast.InputExpr:
		if v.Property == "" {
			return "input", true
		}
		return "input." + v.Property, true
	case *ast.ResultExpr:
		if v.Property == "" {
			return "result", true
		}
		return "result." + v.Property, true
	default:
		return "", false
	}
}

// valueOf resolves e to a concrete Go value, when possible; ok is false
// when the trace carries no evidence for e (an unknown leaf).
func valueOf(e ast.Expression, en *env) (interface{}, bool) {
	switch v := e.(type) {
	case *ast.StringLiteral:
		return v.Value, true
	case *ast.NumberLiteral:
		return v.Value, true
	case *ast.BooleanLiteral:
		return v.Value, true
	case *ast.NullLiteral:
		return nil, true
	case *ast.DurationLiteral:
		return v.Value, true
	case *ast.Identifier:
		if bv, ok := en.bound[v.Name]; ok {
			return bv, true
		}
		if sv, ok := en.state()[v.Name]; ok {
			return sv, true
		}
		if sv, ok := en.state()["input."+v.Name]; ok {
			return sv, true
		}
		return nil, false
	case *ast.OldExpr:
		return valueOf(v.Inner, en.withPre())
	case *ast.ListExpr:
		out := make([]interface{}, 0, len(v.Elements))
		for _, el := range v.Elements {
			ev, ok := valueOf(el, en)
			if !ok {
				return nil, false
			}
			out = append(out, ev)
		}
		return out, true
	default:
		if path, ok := pathOf(e); ok {
			if bv, ok := en.bound[path]; ok {
				return bv, true
			}
			if sv, ok := en.state()[path]; ok {
				return sv, true
			}
			return nil, false
		}
		return nil, false
	}
}

// collectionOf resolves a quantifier's collection expression to a slice
// of values; falls back to any state value stored at its path when it
// isn't a literal list.
func collectionOf(e ast.Expression, en *env) ([]interface{}, bool) {
	if lst, ok := e.(*ast.ListExpr); ok {
		out := make([]interface{}, 0, len(lst.Elements))
		for _, el := range lst.Elements {
			v, ok := valueOf(el, en)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	}
	v, ok := valueOf(e, en)
	if !ok {
		return nil, false
	}
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	return nil, false
}

func compare(op string, l, r interface{}) (bool, bool) {
	lf, lok := toNumber(l)
	rf, rok := toNumber(r)
	if lok && rok {
		switch op {
		case "==":
			return lf == rf, true
		case "!=":
			return lf != rf, true
		case "<":
			return lf < rf, true
		case "<=":
			return lf <= rf, true
		case ">":
			return lf > rf, true
		case ">=":
			return lf >= rf, true
		}
	}
	switch op {
	case "==":
		return fmt.Sprint(l) == fmt.Sprint(r), true
	case "!=":
		return fmt.Sprint(l) != fmt.Sprint(r), true
	default:
		return false, false
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// triEval evaluates e against en using strong-Kleene three-valued logic
// (spec.md §4.10). Opaque predicates (anything not directly interpreted
// below) are resolved by matching a recorded check event whose
// Expression equals e's canonical serialized form.
func triEval(e ast.Expression, en *env) Tri {
	switch v := e.(type) {
	case *ast.BooleanLiteral:
		if v.Value {
			return TriTrue
		}
		return TriFalse
	case *ast.UnaryExpr:
		if v.Op == "!" {
			return kNot(triEval(v.Operand, en))
		}
	case *ast.BinaryExpr:
		switch v.Op {
		case "&&":
			return kAnd(triEval(v.Left, en), triEval(v.Right, en))
		case "||":
			return kOr(triEval(v.Left, en), triEval(v.Right, en))
		case "=>":
			return kOr(kNot(triEval(v.Left, en)), triEval(v.Right, en))
		case "==", "!=", "<", "<=", ">", ">=":
			l, lok := valueOf(v.Left, en)
			r, rok := valueOf(v.Right, en)
			if !lok || !rok {
				return matchCheckEvent(e, en)
			}
			res, ok := compare(v.Op, l, r)
			if !ok {
				return matchCheckEvent(e, en)
			}
			if res {
				return TriTrue
			}
			return TriFalse
		}
	case *ast.QuantifierExpr:
		return triEvalQuantifier(v, en)
	case *ast.CallExpr:
		switch v.Callee {
		case "never_logged":
			return neverLogged(v, en)
		case "never_stored_plaintext":
			return neverStoredPlaintext(v, en)
		}
	}
	return matchCheckEvent(e, en)
}

func triEvalQuantifier(v *ast.QuantifierExpr, en *env) Tri {
	items, ok := collectionOf(v.Collection, en)
	if !ok {
		return matchCheckEvent(v, en)
	}
	if len(items) == 0 {
		if v.Kind_ == "exists" {
			return TriFalse
		}
		return TriTrue
	}
	sawFalse := false
	sawTrue := false
	sawUnknown := false
	for _, item := range items {
		sub := en.withBound(v.Var, item)
		r := triEval(v.Predicate, sub)
		switch r {
		case TriFalse:
			sawFalse = true
		case TriTrue:
			sawTrue = true
		default:
			sawUnknown = true
		}
	}
	if v.Kind_ == "exists" {
		if sawTrue {
			return TriTrue
		}
		if sawUnknown {
			return TriUnknown
		}
		return TriFalse
	}
	// forall: false wins even over unknown; unknown only with no false seen.
	if sawFalse {
		return TriFalse
	}
	if sawUnknown {
		return TriUnknown
	}
	return TriTrue
}

// matchCheckEvent resolves an otherwise-opaque clause by looking for a
// recorded check event whose expression text equals e's canonical
// serialized form (spec.md §4.10: "check {category, expression, passed}").
func matchCheckEvent(e ast.Expression, en *env) Tri {
	canonical := diffengine.SerializeExpr(e)
	for _, evt := range Flatten(en.events) {
		if evt.Check == nil {
			continue
		}
		if evt.Check.Expression == canonical {
			if evt.Check.Passed {
				return TriTrue
			}
			return TriFalse
		}
	}
	return TriUnknown
}

// neverLogged implements spec.md §4.10's never_logged(field) predicate.
func neverLogged(call *ast.CallExpr, en *env) Tri {
	field := fieldArg(call)
	if field == "" {
		return TriUnknown
	}
	foundFailing := false
	foundPassing := false
	for _, evt := range Flatten(en.events) {
		if evt.Check == nil || !strings.Contains(evt.Check.Expression, field) {
			continue
		}
		if evt.Check.Passed {
			foundPassing = true
		} else {
			foundFailing = true
		}
	}
	switch {
	case foundFailing:
		return TriTrue
	case foundPassing:
		return TriFalse
	default:
		return TriUnknown
	}
}

// neverStoredPlaintext implements spec.md §4.10's
// never_stored_plaintext(field) predicate.
func neverStoredPlaintext(call *ast.CallExpr, en *env) Tri {
	field := fieldArg(call)
	if field == "" {
		return TriUnknown
	}
	found := false
	violated := false
	for _, evt := range Flatten(en.events) {
		if evt.StateChange == nil || !strings.Contains(evt.StateChange.Path, field) {
			continue
		}
		found = true
		if !looksHashed(evt.StateChange.NewValue) {
			violated = true
		}
	}
	if !found {
		return TriUnknown
	}
	if violated {
		return TriFalse
	}
	return TriTrue
}

func fieldArg(call *ast.CallExpr) string {
	if len(call.Args) == 0 {
		return ""
	}
	if path, ok := pathOf(call.Args[0]); ok {
		return path
	}
	if s, ok := call.Args[0].(*ast.StringLiteral); ok {
		return s.Value
	}
	return ""
}
