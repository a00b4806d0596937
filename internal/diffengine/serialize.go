package diffengine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/specverify/verifier/internal/ast"
)

// SerializeExpr renders e to the canonical, fully parenthesized string form
// spec.md §4.9 compares expressions by. Whitespace is collapsed to single
// spaces; commutative operators are NOT reordered (a + b and b + a compare
// different, matching the source).
func SerializeExpr(e ast.Expression) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e ast.Expression) {
	switch v := e.(type) {
	case nil:
		b.WriteString("null")
	case *ast.Identifier:
		b.WriteString(v.Name)
	case *ast.QualifiedName:
		b.WriteString(strings.Join(v.Parts, "."))
	case *ast.StringLiteral:
		b.WriteString(strconv.Quote(v.Value))
	case *ast.NumberLiteral:
		if v.IsFloat {
			b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
		} else {
			b.WriteString(strconv.FormatInt(int64(v.Value), 10))
		}
	case *ast.BooleanLiteral:
		if v.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *ast.NullLiteral:
		b.WriteString("null")
	case *ast.DurationLiteral:
		b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
		b.WriteString(v.Unit)
	case *ast.RegexLiteral:
		b.WriteString("/")
		b.WriteString(v.Pattern)
		b.WriteString("/")
	case *ast.BinaryExpr:
		b.WriteString("(")
		writeExpr(b, v.Left)
		b.WriteString(" ")
		b.WriteString(v.Op)
		b.WriteString(" ")
		writeExpr(b, v.Right)
		b.WriteString(")")
	case *ast.UnaryExpr:
		b.WriteString("(")
		b.WriteString(v.Op)
		writeExpr(b, v.Operand)
		b.WriteString(")")
	case *ast.CallExpr:
		b.WriteString(v.Callee)
		b.WriteString("(")
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
		b.WriteString(")")
	case *ast.MemberExpr:
		b.WriteString("(")
		writeExpr(b, v.Object)
		b.WriteString(".")
		b.WriteString(v.Property)
		b.WriteString(")")
	case *ast.IndexExpr:
		b.WriteString("(")
		writeExpr(b, v.Object)
		b.WriteString("[")
		writeExpr(b, v.Index)
		b.WriteString("])")
	case *ast.QuantifierExpr:
		b.WriteString("(")
		b.WriteString(v.Kind_)
		b.WriteString(" ")
		b.WriteString(v.Var)
		b.WriteString(" in ")
		writeExpr(b, v.Collection)
		b.WriteString(" => ")
		writeExpr(b, v.Predicate)
		b.WriteString(")")
	case *ast.ConditionalExpr:
		b.WriteString("(")
		writeExpr(b, v.Cond)
		b.WriteString(" ? ")
		writeExpr(b, v.Then)
		b.WriteString(" : ")
		writeExpr(b, v.Else)
		b.WriteString(")")
	case *ast.OldExpr:
		b.WriteString("old(")
		writeExpr(b, v.Inner)
		b.WriteString(")")
	case *ast.ResultExpr:
		b.WriteString("result")
		if v.Property != "" {
			b.WriteString(".")
			b.WriteString(v.Property)
		}
	case *ast.InputExpr:
		b.WriteString("input")
		if v.Property != "" {
			b.WriteString(".")
			b.WriteString(v.Property)
		}
	case *ast.LambdaExpr:
		b.WriteString("(")
		b.WriteString(strings.Join(v.Params, ", "))
		b.WriteString(" => ")
		writeExpr(b, v.Body)
		b.WriteString(")")
	case *ast.ListExpr:
		b.WriteString("[")
		for i, el := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, el)
		}
		b.WriteString("]")
	case *ast.MapExpr:
		b.WriteString("{")
		for i, entry := range v.Entries {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, entry.Key)
			b.WriteString(": ")
			writeExpr(b, entry.Value)
		}
		b.WriteString("}")
	default:
		fmt.Fprintf(b, "<unsupported:%T>", e)
	}
}

// SerializeType renders a TypeExpr to a canonical string used to detect
// field/type changes.
func SerializeType(t ast.TypeExpr) string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func writeType(b *strings.Builder, t ast.TypeExpr) {
	switch v := t.(type) {
	case nil:
		b.WriteString("void")
	case *ast.PrimitiveType:
		b.WriteString(v.Name)
	case *ast.ReferenceType:
		b.WriteString(v.Name)
	case *ast.ListType:
		b.WriteString("List<")
		writeType(b, v.Elem)
		b.WriteString(">")
	case *ast.MapType:
		b.WriteString("Map<")
		writeType(b, v.Key)
		b.WriteString(",")
		writeType(b, v.Value)
		b.WriteString(">")
	case *ast.OptionalType:
		b.WriteString("Optional<")
		writeType(b, v.Inner)
		b.WriteString(">")
	case *ast.ConstrainedType:
		b.WriteString("Constrained<")
		writeType(b, v.Base)
		for _, c := range v.Constraints {
			b.WriteString(";")
			b.WriteString(SerializeExpr(c))
		}
		b.WriteString(">")
	case *ast.StructType:
		b.WriteString("{")
		fields := append([]*ast.Field{}, v.Fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		for i, f := range fields {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(f.Name)
			b.WriteString(":")
			writeType(b, f.Type)
			if f.Optional {
				b.WriteString("?")
			}
		}
		b.WriteString("}")
	case *ast.UnionType:
		b.WriteString("Union<")
		parts := make([]string, len(v.Variants))
		for i, vt := range v.Variants {
			parts[i] = SerializeType(vt)
		}
		sort.Strings(parts)
		b.WriteString(strings.Join(parts, "|"))
		b.WriteString(">")
	case *ast.EnumType:
		variants := append([]string{}, v.Variants...)
		sort.Strings(variants)
		b.WriteString("Enum<")
		b.WriteString(strings.Join(variants, ","))
		b.WriteString(">")
	default:
		fmt.Fprintf(b, "<unsupported:%T>", t)
	}
}
