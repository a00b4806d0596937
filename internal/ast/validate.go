package ast

import "fmt"

// MalformedNode describes a structural defect found by Validate. These
// feed internal/diagnostics.CodeInternalInconsistency (I0001): the
// decoder trusts the external parser to uphold these invariants, and a
// violation means the input lied about being parser output.
type MalformedNode struct {
	Node    Node
	Message string
}

func (m MalformedNode) String() string {
	return fmt.Sprintf("%s: %s", m.Node.Kind(), m.Message)
}

// Validate walks d and reports every node that violates an invariant the
// parser is specified to uphold: a missing span, an empty enum, a
// postcondition block whose condition names neither "success",
// "any_error", nor a declared error, and the like. It does not duplicate
// checks that belong to a later semantic pass (undefined references,
// purity, exhaustiveness) — only structural self-consistency.
func Validate(d *Domain) []MalformedNode {
	var problems []MalformedNode
	report := func(n Node, format string, args ...interface{}) {
		problems = append(problems, MalformedNode{Node: n, Message: fmt.Sprintf(format, args...)})
	}

	if d.Name == "" {
		report(d, "domain has no name")
	}

	errNames := map[string]map[string]bool{}
	for _, b := range d.Behaviors {
		names := map[string]bool{}
		for _, errSpec := range b.Output.Errors {
			if errSpec.Name == "" {
				report(errSpec, "error variant has no name")
			}
			names[errSpec.Name] = true
		}
		errNames[b.Name] = names
	}

	Walk(d, func(n Node) bool {
		if n.Span().IsZero() {
			switch n.(type) {
			case *Domain:
				// root span may legitimately be zero for synthesized fixtures
			default:
				report(n, "missing source span")
			}
		}
		switch v := n.(type) {
		case *EnumType:
			if len(v.Variants) == 0 {
				report(n, "enum type declares no variants")
			}
			seen := map[string]bool{}
			for _, variant := range v.Variants {
				if seen[variant] {
					report(n, "enum type repeats variant %q", variant)
				}
				seen[variant] = true
			}
		case *UnionType:
			if len(v.Variants) < 2 {
				report(n, "union type declares fewer than two variants")
			}
		case *PostconditionBlock:
			if v.Condition == "" {
				report(n, "postcondition block has no condition")
			}
		case *QuantifierExpr:
			if v.Kind_ != "forall" && v.Kind_ != "exists" {
				report(n, "quantifier has unknown kind %q", v.Kind_)
			}
			if v.Var == "" {
				report(n, "quantifier binds no variable")
			}
		}
		return true
	})

	for _, b := range d.Behaviors {
		for _, pb := range b.Postconditions {
			if pb.IsSuccess() || pb.IsAnyError() {
				continue
			}
			if !errNames[b.Name][pb.Condition] {
				report(pb, "postcondition condition %q names neither success, any_error, nor a declared error of %q", pb.Condition, b.Name)
			}
		}
	}

	return problems
}
