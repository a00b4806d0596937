package symbols

import "github.com/specverify/verifier/internal/ast"

// VarKind classifies a locally-scoped binding, as opposed to the
// domain-wide declarations held in Table.
type VarKind int

const (
	VarInputField VarKind = iota
	VarEntityField
	VarQuantifierBound
	VarLambdaParam
)

// Var is one locally-scoped binding: a behavior's input field, the
// current entity's field, or a name bound by a quantifier or lambda.
type Var struct {
	Name string
	Kind VarKind
	Type ast.TypeExpr
}

// scope is one nested lexical frame.
type scope struct {
	vars map[string]*Var
}

// ScopeStack is the resolver's local-name stack (spec.md §9's
// pushScope/popScope capability). Lookups search from the innermost
// frame outward, so a quantifier-bound variable shadows an input field
// of the same name.
type ScopeStack struct {
	frames []*scope
}

// NewScopeStack returns an empty stack.
func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

// Push opens a new, empty frame.
func (s *ScopeStack) Push() {
	s.frames = append(s.frames, &scope{vars: make(map[string]*Var)})
}

// Pop closes the innermost frame. Popping an empty stack is a no-op; the
// caller (a pass) is responsible for balanced push/pop pairs.
func (s *ScopeStack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Declare binds name in the innermost frame, shadowing any outer
// binding of the same name. Declaring into an empty stack is a no-op.
func (s *ScopeStack) Declare(v *Var) {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1].vars[v.Name] = v
}

// Lookup searches from the innermost frame outward.
func (s *ScopeStack) Lookup(name string) (*Var, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Depth reports how many frames are currently open.
func (s *ScopeStack) Depth() int {
	return len(s.frames)
}
