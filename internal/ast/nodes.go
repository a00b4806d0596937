package ast

// Node is the interface implemented by every AST variant. Per the design
// notes in spec.md §9, this package deliberately avoids a
// visitor-interface-per-node; passes pattern-match on concrete types via
// Walk (see walk.go) against the capability set their PassContext exposes.
type Node interface {
	Span() Span
	Kind() string
}

// Domain is the root node of every parsed specification.
type Domain struct {
	NodeSpan  Span       `json:"-"`
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Imports   []string   `json:"imports,omitempty"`
	Types     []*TypeDecl `json:"types,omitempty"`
	Entities  []*Entity  `json:"entities,omitempty"`
	Behaviors []*Behavior `json:"behaviors,omitempty"`
	Invariants []Expression `json:"invariants,omitempty"`
	Policies  []*Policy  `json:"policies,omitempty"`
	Views     []*View    `json:"views,omitempty"`
	Scenarios []*Scenario `json:"scenarios,omitempty"`
	Chaos     []*ChaosTest `json:"chaos,omitempty"`
}

func (d *Domain) Span() Span   { return d.NodeSpan }
func (d *Domain) Kind() string { return "Domain" }

// TypeDecl binds a name to a type definition at domain scope.
type TypeDecl struct {
	NodeSpan   Span     `json:"-"`
	Name       string   `json:"name"`
	Definition TypeExpr `json:"definition"`
}

func (t *TypeDecl) Span() Span   { return t.NodeSpan }
func (t *TypeDecl) Kind() string { return "TypeDecl" }

// Field is a named, typed slot in a struct type, entity, or behavior
// input/output.
type Field struct {
	NodeSpan    Span     `json:"-"`
	Name        string   `json:"name"`
	Type        TypeExpr `json:"fieldType"`
	Optional    bool     `json:"optional,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
}

func (f *Field) Span() Span   { return f.NodeSpan }
func (f *Field) Kind() string { return "Field" }

// Entity models a domain entity: a named record with fields and optional
// entity-scoped invariants.
type Entity struct {
	NodeSpan   Span         `json:"-"`
	Name       string       `json:"name"`
	Fields     []*Field     `json:"fields,omitempty"`
	Invariants []Expression `json:"invariants,omitempty"`
}

func (e *Entity) Span() Span   { return e.NodeSpan }
func (e *Entity) Kind() string { return "Entity" }

// ErrorSpec declares one named error variant of a behavior's output.
type ErrorSpec struct {
	NodeSpan Span     `json:"-"`
	Name     string   `json:"name"`
	Fields   []*Field `json:"fields,omitempty"`
}

func (e *ErrorSpec) Span() Span   { return e.NodeSpan }
func (e *ErrorSpec) Kind() string { return "ErrorSpec" }

// Output describes a behavior's success type and declared error variants.
type Output struct {
	Success TypeExpr     `json:"success"`
	Errors  []*ErrorSpec `json:"errors,omitempty"`
}

// PostconditionBlock groups predicates under a branch condition: the
// literal "success", the literal "any_error", or an identifier equal to
// one of the behavior's declared error names (spec.md §3).
type PostconditionBlock struct {
	NodeSpan   Span         `json:"-"`
	Condition  string       `json:"condition"`
	Predicates []Expression `json:"predicates,omitempty"`
}

func (p *PostconditionBlock) Span() Span   { return p.NodeSpan }
func (p *PostconditionBlock) Kind() string { return "PostconditionBlock" }

// IsSuccess reports whether this block covers the success branch.
func (p *PostconditionBlock) IsSuccess() bool { return p.Condition == "success" }

// IsAnyError reports whether this block is the catch-all error branch.
func (p *PostconditionBlock) IsAnyError() bool { return p.Condition == "any_error" }

// Behavior is the central unit of contract: typed input/output plus
// declarative pre/post/invariant/temporal/security/compliance clauses.
type Behavior struct {
	NodeSpan       Span                   `json:"-"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Actors         []string               `json:"actors,omitempty"`
	Input          []*Field               `json:"input,omitempty"`
	Output         Output                 `json:"output"`
	Preconditions  []Expression           `json:"preconditions,omitempty"`
	Postconditions []*PostconditionBlock  `json:"postconditions,omitempty"`
	Invariants     []Expression           `json:"invariants,omitempty"`
	Temporal       []Expression           `json:"temporal,omitempty"`
	Security       []Expression           `json:"security,omitempty"`
	Compliance     []Expression           `json:"compliance,omitempty"`
}

func (b *Behavior) Span() Span   { return b.NodeSpan }
func (b *Behavior) Kind() string { return "Behavior" }

// InputFieldNames returns the behavior's declared input field names, in
// declaration order; used by the resolver's identifier precedence rule.
func (b *Behavior) InputFieldNames() []string {
	names := make([]string, len(b.Input))
	for i, f := range b.Input {
		names[i] = f.Name
	}
	return names
}

// Policy is a named named group of declarative rules that apply across
// behaviors (e.g. rate limits, data-residency rules).
type Policy struct {
	NodeSpan Span         `json:"-"`
	Name     string       `json:"name"`
	Rules    []Expression `json:"rules,omitempty"`
}

func (p *Policy) Span() Span   { return p.NodeSpan }
func (p *Policy) Kind() string { return "Policy" }

// View is a read-model derived from one or more entities.
type View struct {
	NodeSpan Span     `json:"-"`
	Name     string   `json:"name"`
	Source   string   `json:"source,omitempty"`
	Fields   []*Field `json:"fields,omitempty"`
}

func (v *View) Span() Span   { return v.NodeSpan }
func (v *View) Kind() string { return "View" }

// Scenario binds sample data ("given") and asserts behavior ("when"/"then").
type Scenario struct {
	NodeSpan Span         `json:"-"`
	Name     string       `json:"name"`
	Given    []*Field     `json:"given,omitempty"`
	When     Expression   `json:"when,omitempty"`
	Then     []Expression `json:"then,omitempty"`
}

func (s *Scenario) Span() Span   { return s.NodeSpan }
func (s *Scenario) Kind() string { return "Scenario" }

// ChaosTest declares a fault to inject against a target behavior and the
// expectations that must still hold.
type ChaosTest struct {
	NodeSpan Span         `json:"-"`
	Name     string       `json:"name"`
	Target   string       `json:"target"`
	Fault    string       `json:"fault"`
	Expect   []Expression `json:"expect,omitempty"`
}

func (c *ChaosTest) Span() Span   { return c.NodeSpan }
func (c *ChaosTest) Kind() string { return "ChaosTest" }
