// Package domainio loads and saves the verifier's external data shapes:
// parsed domain trees, execution traces, run configuration, and reports.
// Domains arrive as JSON (the external parser's native output) or YAML
// (hand-authored fixtures); both decode through the same generic-value
// builder, so a structural defect is reported identically regardless of
// the container format.
package domainio

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specverify/verifier/internal/ast"
	"github.com/specverify/verifier/internal/config"
)

// DecodeError records one structural defect found while building the
// AST from decoded input. These become I0001 diagnostics: the external
// parser is specified never to emit such nodes, so their presence means
// the input is not genuine parser output.
type DecodeError struct {
	Path    string
	Message string
}

func (e DecodeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// LoadDomain reads and decodes a domain file, picking the decoder by
// extension (.json via encoding/json, .yaml/.yml via yaml.v3).
func LoadDomain(path string) (*ast.Domain, []DecodeError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading domain %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".json") {
		return ParseDomainJSON(data, path)
	}
	if !config.HasDomainExt(path) {
		return nil, nil, fmt.Errorf("unrecognized domain file extension: %s", path)
	}
	return ParseDomainYAML(data, path)
}

// ParseDomainJSON decodes JSON parser output. The path argument is used
// only for error messages and node spans.
func ParseDomainJSON(data []byte, path string) (*ast.Domain, []DecodeError, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing domain %s: %w", path, err)
	}
	return buildDomain(raw, path)
}

// ParseDomainYAML decodes a YAML domain fixture.
func ParseDomainYAML(data []byte, path string) (*ast.Domain, []DecodeError, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing domain %s: %w", path, err)
	}
	return buildDomain(raw, path)
}

// builder carries the mutable state of one decode: the file name stamped
// into spans and the structural errors accumulated so far.
type builder struct {
	file string
	errs []DecodeError
}

func (b *builder) fail(path, format string, args ...interface{}) {
	b.errs = append(b.errs, DecodeError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func buildDomain(raw interface{}, path string) (*ast.Domain, []DecodeError, error) {
	root, ok := asMap(raw)
	if !ok {
		return nil, nil, fmt.Errorf("domain %s: top-level value is not an object", path)
	}
	b := &builder{file: path}

	d := &ast.Domain{
		NodeSpan: b.span(root, "domain"),
		Name:     str(root, "name"),
		Version:  str(root, "version"),
		Imports:  strList(root, "imports"),
	}
	if d.Name == "" {
		b.fail("domain", "missing name")
	}
	for i, item := range list(root, "types") {
		d.Types = append(d.Types, b.typeDecl(item, fmt.Sprintf("types[%d]", i)))
	}
	for i, item := range list(root, "entities") {
		d.Entities = append(d.Entities, b.entity(item, fmt.Sprintf("entities[%d]", i)))
	}
	for i, item := range list(root, "behaviors") {
		d.Behaviors = append(d.Behaviors, b.behavior(item, fmt.Sprintf("behaviors[%d]", i)))
	}
	for i, item := range list(root, "invariants") {
		d.Invariants = append(d.Invariants, b.expr(item, fmt.Sprintf("invariants[%d]", i)))
	}
	for i, item := range list(root, "policies") {
		d.Policies = append(d.Policies, b.policy(item, fmt.Sprintf("policies[%d]", i)))
	}
	for i, item := range list(root, "views") {
		d.Views = append(d.Views, b.view(item, fmt.Sprintf("views[%d]", i)))
	}
	for i, item := range list(root, "scenarios") {
		d.Scenarios = append(d.Scenarios, b.scenario(item, fmt.Sprintf("scenarios[%d]", i)))
	}
	for i, item := range list(root, "chaos") {
		d.Chaos = append(d.Chaos, b.chaosTest(item, fmt.Sprintf("chaos[%d]", i)))
	}
	return d, b.errs, nil
}

func (b *builder) span(m map[string]interface{}, _ string) ast.Span {
	raw, ok := asMap(m["span"])
	if !ok {
		return ast.Span{File: b.file}
	}
	return ast.Span{
		File:       b.file,
		Line:       num(raw, "line"),
		Column:     num(raw, "column"),
		EndLine:    num(raw, "endLine"),
		EndColumn:  num(raw, "endColumn"),
		ByteOffset: num(raw, "byteOffset"),
	}
}

func (b *builder) typeDecl(raw interface{}, path string) *ast.TypeDecl {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "type declaration is not an object")
		return &ast.TypeDecl{}
	}
	return &ast.TypeDecl{
		NodeSpan:   b.span(m, path),
		Name:       str(m, "name"),
		Definition: b.typeExpr(m["definition"], path+".definition"),
	}
}

func (b *builder) typeExpr(raw interface{}, path string) ast.TypeExpr {
	if raw == nil {
		return nil
	}
	// A bare string is shorthand for a primitive or reference by name.
	if s, ok := raw.(string); ok {
		return b.namedType(s, ast.Span{File: b.file})
	}
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "type is neither a name nor an object")
		return nil
	}
	span := b.span(m, path)
	switch kind := str(m, "kind"); kind {
	case "Primitive":
		return &ast.PrimitiveType{NodeSpan: span, Name: str(m, "name")}
	case "Reference":
		return &ast.ReferenceType{NodeSpan: span, Name: str(m, "name")}
	case "List":
		return &ast.ListType{NodeSpan: span, Elem: b.typeExpr(m["inner"], path+".inner")}
	case "Map":
		return &ast.MapType{
			NodeSpan: span,
			Key:      b.typeExpr(m["key"], path+".key"),
			Value:    b.typeExpr(m["value"], path+".value"),
		}
	case "Optional":
		return &ast.OptionalType{NodeSpan: span, Inner: b.typeExpr(m["inner"], path+".inner")}
	case "Constrained":
		ct := &ast.ConstrainedType{NodeSpan: span, Base: b.typeExpr(m["base"], path+".base")}
		for i, c := range list(m, "constraints") {
			ct.Constraints = append(ct.Constraints, b.expr(c, fmt.Sprintf("%s.constraints[%d]", path, i)))
		}
		return ct
	case "Struct":
		st := &ast.StructType{NodeSpan: span}
		for i, f := range list(m, "fields") {
			st.Fields = append(st.Fields, b.field(f, fmt.Sprintf("%s.fields[%d]", path, i)))
		}
		return st
	case "Union":
		ut := &ast.UnionType{NodeSpan: span}
		for i, v := range list(m, "variants") {
			ut.Variants = append(ut.Variants, b.typeExpr(v, fmt.Sprintf("%s.variants[%d]", path, i)))
		}
		return ut
	case "Enum":
		return &ast.EnumType{NodeSpan: span, Variants: strList(m, "variants")}
	default:
		b.fail(path, "unknown type kind %q", kind)
		return nil
	}
}

// namedType resolves a bare type name to PrimitiveType when it is a
// known builtin, ReferenceType otherwise.
func (b *builder) namedType(name string, span ast.Span) ast.TypeExpr {
	for _, p := range config.BuiltinPrimitiveNames {
		if p == name {
			return &ast.PrimitiveType{NodeSpan: span, Name: name}
		}
	}
	return &ast.ReferenceType{NodeSpan: span, Name: name}
}

func (b *builder) field(raw interface{}, path string) *ast.Field {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "field is not an object")
		return &ast.Field{}
	}
	return &ast.Field{
		NodeSpan:    b.span(m, path),
		Name:        str(m, "name"),
		Type:        b.typeExpr(m["type"], path+".type"),
		Optional:    boolean(m, "optional"),
		Annotations: strList(m, "annotations"),
	}
}

func (b *builder) entity(raw interface{}, path string) *ast.Entity {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "entity is not an object")
		return &ast.Entity{}
	}
	e := &ast.Entity{NodeSpan: b.span(m, path), Name: str(m, "name")}
	for i, f := range list(m, "fields") {
		e.Fields = append(e.Fields, b.field(f, fmt.Sprintf("%s.fields[%d]", path, i)))
	}
	for i, inv := range list(m, "invariants") {
		e.Invariants = append(e.Invariants, b.expr(inv, fmt.Sprintf("%s.invariants[%d]", path, i)))
	}
	return e
}

func (b *builder) behavior(raw interface{}, path string) *ast.Behavior {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "behavior is not an object")
		return &ast.Behavior{}
	}
	bh := &ast.Behavior{
		NodeSpan:    b.span(m, path),
		Name:        str(m, "name"),
		Description: str(m, "description"),
		Actors:      strList(m, "actors"),
	}
	for i, f := range list(m, "input") {
		bh.Input = append(bh.Input, b.field(f, fmt.Sprintf("%s.input[%d]", path, i)))
	}
	if out, ok := asMap(m["output"]); ok {
		bh.Output.Success = b.typeExpr(out["success"], path+".output.success")
		for i, e := range list(out, "errors") {
			bh.Output.Errors = append(bh.Output.Errors, b.errorSpec(e, fmt.Sprintf("%s.output.errors[%d]", path, i)))
		}
	}
	for i, pre := range list(m, "preconditions") {
		bh.Preconditions = append(bh.Preconditions, b.expr(pre, fmt.Sprintf("%s.preconditions[%d]", path, i)))
	}
	for i, pb := range list(m, "postconditions") {
		bh.Postconditions = append(bh.Postconditions, b.postBlock(pb, fmt.Sprintf("%s.postconditions[%d]", path, i)))
	}
	for i, inv := range list(m, "invariants") {
		bh.Invariants = append(bh.Invariants, b.expr(inv, fmt.Sprintf("%s.invariants[%d]", path, i)))
	}
	for i, e := range list(m, "temporal") {
		bh.Temporal = append(bh.Temporal, b.expr(e, fmt.Sprintf("%s.temporal[%d]", path, i)))
	}
	for i, e := range list(m, "security") {
		bh.Security = append(bh.Security, b.expr(e, fmt.Sprintf("%s.security[%d]", path, i)))
	}
	for i, e := range list(m, "compliance") {
		bh.Compliance = append(bh.Compliance, b.expr(e, fmt.Sprintf("%s.compliance[%d]", path, i)))
	}
	return bh
}

func (b *builder) errorSpec(raw interface{}, path string) *ast.ErrorSpec {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "error spec is not an object")
		return &ast.ErrorSpec{}
	}
	es := &ast.ErrorSpec{NodeSpan: b.span(m, path), Name: str(m, "name")}
	for i, f := range list(m, "fields") {
		es.Fields = append(es.Fields, b.field(f, fmt.Sprintf("%s.fields[%d]", path, i)))
	}
	return es
}

func (b *builder) postBlock(raw interface{}, path string) *ast.PostconditionBlock {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "postcondition block is not an object")
		return &ast.PostconditionBlock{}
	}
	pb := &ast.PostconditionBlock{NodeSpan: b.span(m, path), Condition: str(m, "condition")}
	for i, p := range list(m, "predicates") {
		pb.Predicates = append(pb.Predicates, b.expr(p, fmt.Sprintf("%s.predicates[%d]", path, i)))
	}
	return pb
}

func (b *builder) policy(raw interface{}, path string) *ast.Policy {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "policy is not an object")
		return &ast.Policy{}
	}
	p := &ast.Policy{NodeSpan: b.span(m, path), Name: str(m, "name")}
	for i, r := range list(m, "rules") {
		p.Rules = append(p.Rules, b.expr(r, fmt.Sprintf("%s.rules[%d]", path, i)))
	}
	return p
}

func (b *builder) view(raw interface{}, path string) *ast.View {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "view is not an object")
		return &ast.View{}
	}
	v := &ast.View{NodeSpan: b.span(m, path), Name: str(m, "name"), Source: str(m, "source")}
	for i, f := range list(m, "fields") {
		v.Fields = append(v.Fields, b.field(f, fmt.Sprintf("%s.fields[%d]", path, i)))
	}
	return v
}

func (b *builder) scenario(raw interface{}, path string) *ast.Scenario {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "scenario is not an object")
		return &ast.Scenario{}
	}
	s := &ast.Scenario{NodeSpan: b.span(m, path), Name: str(m, "name")}
	for i, g := range list(m, "given") {
		s.Given = append(s.Given, b.field(g, fmt.Sprintf("%s.given[%d]", path, i)))
	}
	if m["when"] != nil {
		s.When = b.expr(m["when"], path+".when")
	}
	for i, t := range list(m, "then") {
		s.Then = append(s.Then, b.expr(t, fmt.Sprintf("%s.then[%d]", path, i)))
	}
	return s
}

func (b *builder) chaosTest(raw interface{}, path string) *ast.ChaosTest {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "chaos test is not an object")
		return &ast.ChaosTest{}
	}
	c := &ast.ChaosTest{
		NodeSpan: b.span(m, path),
		Name:     str(m, "name"),
		Target:   str(m, "target"),
		Fault:    str(m, "fault"),
	}
	for i, e := range list(m, "expect") {
		c.Expect = append(c.Expect, b.expr(e, fmt.Sprintf("%s.expect[%d]", path, i)))
	}
	return c
}

func (b *builder) expr(raw interface{}, path string) ast.Expression {
	m, ok := asMap(raw)
	if !ok {
		b.fail(path, "expression is not an object")
		return &ast.NullLiteral{NodeSpan: ast.Span{File: b.file}}
	}
	span := b.span(m, path)
	switch kind := str(m, "kind"); kind {
	case "Identifier":
		return &ast.Identifier{NodeSpan: span, Name: str(m, "name")}
	case "QualifiedName":
		return &ast.QualifiedName{NodeSpan: span, Parts: strList(m, "parts")}
	case "StringLiteral":
		return &ast.StringLiteral{NodeSpan: span, Value: str(m, "value")}
	case "NumberLiteral":
		return &ast.NumberLiteral{NodeSpan: span, Value: float(m, "value"), IsFloat: boolean(m, "isFloat")}
	case "BooleanLiteral":
		return &ast.BooleanLiteral{NodeSpan: span, Value: boolean(m, "value")}
	case "NullLiteral":
		return &ast.NullLiteral{NodeSpan: span}
	case "DurationLiteral":
		return &ast.DurationLiteral{NodeSpan: span, Value: float(m, "value"), Unit: str(m, "unit")}
	case "RegexLiteral":
		return &ast.RegexLiteral{NodeSpan: span, Pattern: str(m, "pattern")}
	case "Binary":
		return &ast.BinaryExpr{
			NodeSpan: span,
			Op:       str(m, "op"),
			Left:     b.expr(m["left"], path+".left"),
			Right:    b.expr(m["right"], path+".right"),
		}
	case "Unary":
		return &ast.UnaryExpr{NodeSpan: span, Op: str(m, "op"), Operand: b.expr(m["operand"], path+".operand")}
	case "Call":
		c := &ast.CallExpr{NodeSpan: span, Callee: str(m, "callee")}
		for i, a := range list(m, "args") {
			c.Args = append(c.Args, b.expr(a, fmt.Sprintf("%s.args[%d]", path, i)))
		}
		return c
	case "Member":
		return &ast.MemberExpr{NodeSpan: span, Object: b.expr(m["object"], path+".object"), Property: str(m, "property")}
	case "Index":
		return &ast.IndexExpr{NodeSpan: span, Object: b.expr(m["object"], path+".object"), Index: b.expr(m["index"], path+".index")}
	case "Quantifier":
		return &ast.QuantifierExpr{
			NodeSpan:   span,
			Kind_:      str(m, "quantifier"),
			Var:        str(m, "var"),
			Collection: b.expr(m["collection"], path+".collection"),
			Predicate:  b.expr(m["predicate"], path+".predicate"),
		}
	case "Conditional":
		return &ast.ConditionalExpr{
			NodeSpan: span,
			Cond:     b.expr(m["cond"], path+".cond"),
			Then:     b.expr(m["then"], path+".then"),
			Else:     b.expr(m["else"], path+".else"),
		}
	case "Old":
		return &ast.OldExpr{NodeSpan: span, Inner: b.expr(m["inner"], path+".inner")}
	case "Result":
		return &ast.ResultExpr{NodeSpan: span, Property: str(m, "property")}
	case "Input":
		return &ast.InputExpr{NodeSpan: span, Property: str(m, "property")}
	case "Lambda":
		return &ast.LambdaExpr{NodeSpan: span, Params: strList(m, "params"), Body: b.expr(m["body"], path+".body")}
	case "List":
		l := &ast.ListExpr{NodeSpan: span}
		for i, e := range list(m, "elements") {
			l.Elements = append(l.Elements, b.expr(e, fmt.Sprintf("%s.elements[%d]", path, i)))
		}
		return l
	case "Map":
		mp := &ast.MapExpr{NodeSpan: span}
		for i, e := range list(m, "entries") {
			em, ok := asMap(e)
			if !ok {
				b.fail(fmt.Sprintf("%s.entries[%d]", path, i), "map entry is not an object")
				continue
			}
			mp.Entries = append(mp.Entries, ast.MapEntry{
				Key:   b.expr(em["key"], fmt.Sprintf("%s.entries[%d].key", path, i)),
				Value: b.expr(em["value"], fmt.Sprintf("%s.entries[%d].value", path, i)),
			})
		}
		return mp
	default:
		b.fail(path, "unknown expression kind %q", kind)
		return &ast.NullLiteral{NodeSpan: span}
	}
}

// asMap normalizes the two map shapes the generic decoders produce:
// encoding/json and yaml.v3 both give map[string]interface{} for
// string-keyed objects, but yaml.v3 falls back to map[interface{}]
// interface{} for exotic keys.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// float converts the numeric shapes both decoders produce: float64 from
// encoding/json; int, int64, or float64 from yaml.v3.
func float(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func num(m map[string]interface{}, key string) int {
	return int(float(m, key))
}

func list(m map[string]interface{}, key string) []interface{} {
	l, _ := m[key].([]interface{})
	return l
}

func strList(m map[string]interface{}, key string) []string {
	var out []string
	for _, v := range list(m, key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
