package ast

// Visit is called once per node in pre-order, left-to-right. Returning
// false skips the node's children (but not its siblings).
type Visit func(n Node) bool

// Walk performs a deterministic pre-order traversal of n, matching
// spec.md §9's guidance against a visitor-interface-per-node: every case
// here is a plain type switch, and the pass layer (internal/semantic)
// supplies its own capability set (report/getSymbol/pushScope/popScope)
// rather than a per-node Accept method.
func Walk(n Node, visit Visit) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case *Domain:
		for _, t := range v.Types {
			Walk(t, visit)
		}
		for _, e := range v.Entities {
			Walk(e, visit)
		}
		for _, b := range v.Behaviors {
			Walk(b, visit)
		}
		walkExprs(v.Invariants, visit)
		for _, p := range v.Policies {
			Walk(p, visit)
		}
		for _, w := range v.Views {
			Walk(w, visit)
		}
		for _, s := range v.Scenarios {
			Walk(s, visit)
		}
		for _, c := range v.Chaos {
			Walk(c, visit)
		}
	case *TypeDecl:
		walkType(v.Definition, visit)
	case *Field:
		walkType(v.Type, visit)
	case *Entity:
		for _, f := range v.Fields {
			Walk(f, visit)
		}
		walkExprs(v.Invariants, visit)
	case *ErrorSpec:
		for _, f := range v.Fields {
			Walk(f, visit)
		}
	case *PostconditionBlock:
		walkExprs(v.Predicates, visit)
	case *Behavior:
		for _, f := range v.Input {
			Walk(f, visit)
		}
		walkType(v.Output.Success, visit)
		for _, errSpec := range v.Output.Errors {
			Walk(errSpec, visit)
		}
		walkExprs(v.Preconditions, visit)
		for _, pb := range v.Postconditions {
			Walk(pb, visit)
		}
		walkExprs(v.Invariants, visit)
		walkExprs(v.Temporal, visit)
		walkExprs(v.Security, visit)
		walkExprs(v.Compliance, visit)
	case *Policy:
		walkExprs(v.Rules, visit)
	case *View:
		for _, f := range v.Fields {
			Walk(f, visit)
		}
	case *Scenario:
		for _, f := range v.Given {
			Walk(f, visit)
		}
		if v.When != nil {
			Walk(v.When, visit)
		}
		walkExprs(v.Then, visit)
	case *ChaosTest:
		walkExprs(v.Expect, visit)

	case *ListType:
		walkType(v.Elem, visit)
	case *MapType:
		walkType(v.Key, visit)
		walkType(v.Value, visit)
	case *OptionalType:
		walkType(v.Inner, visit)
	case *ConstrainedType:
		walkType(v.Base, visit)
		walkExprs(v.Constraints, visit)
	case *StructType:
		for _, f := range v.Fields {
			Walk(f, visit)
		}
	case *UnionType:
		for _, variant := range v.Variants {
			walkType(variant, visit)
		}
	case *PrimitiveType, *ReferenceType, *EnumType:
		// leaves

	case *BinaryExpr:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *UnaryExpr:
		Walk(v.Operand, visit)
	case *CallExpr:
		walkExprs(v.Args, visit)
	case *MemberExpr:
		Walk(v.Object, visit)
	case *IndexExpr:
		Walk(v.Object, visit)
		Walk(v.Index, visit)
	case *QuantifierExpr:
		Walk(v.Collection, visit)
		Walk(v.Predicate, visit)
	case *ConditionalExpr:
		Walk(v.Cond, visit)
		Walk(v.Then, visit)
		Walk(v.Else, visit)
	case *OldExpr:
		Walk(v.Inner, visit)
	case *LambdaExpr:
		Walk(v.Body, visit)
	case *ListExpr:
		walkExprs(v.Elements, visit)
	case *MapExpr:
		for _, entry := range v.Entries {
			Walk(entry.Key, visit)
			Walk(entry.Value, visit)
		}
	case *Identifier, *QualifiedName, *StringLiteral, *NumberLiteral,
		*BooleanLiteral, *NullLiteral, *DurationLiteral, *RegexLiteral,
		*ResultExpr, *InputExpr:
		// leaves
	}
}

func walkExprs(exprs []Expression, visit Visit) {
	for _, e := range exprs {
		Walk(e, visit)
	}
}

func walkType(t TypeExpr, visit Visit) {
	if t == nil {
		return
	}
	Walk(t, visit)
}
