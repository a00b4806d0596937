// Package smt implements the expression encoder (C9), the safe solver
// wrapper (C10), and the SMT diagnostics engine (C11). It deliberately
// does not depend on any particular SMT vendor's Go bindings — none
// appear anywhere in the retrieval pack — and instead defines a small
// internal term IR that is (a) rendered to an auditable SMT-LIB 2
// script per spec.md §6 and (b) discharged by a bounded, deterministic
// decision procedure (localEngine) or, in production, proxied to an
// external solver process via internal/solverrpc.
package smt

import "github.com/specverify/verifier/internal/ast"

// Sort is the SMT-LIB sort a DSL type encodes to, per spec.md §4.6.
type Sort int

const (
	SortBool Sort = iota
	SortInt
	SortReal
	SortString
	SortUninterpreted
	SortOptional
	SortSeq
)

func (s Sort) String() string {
	switch s {
	case SortBool:
		return "Bool"
	case SortInt:
		return "Int"
	case SortReal:
		return "Real"
	case SortString:
		return "String"
	case SortUninterpreted:
		return "U"
	case SortOptional:
		return "Optional"
	case SortSeq:
		return "Seq"
	default:
		return "?"
	}
}

// SortExpr carries enough of a compound sort to distinguish e.g.
// List<Int> from List<UUID> without a full type-system dependency.
type SortExpr struct {
	Base Sort
	// Elem is populated for SortSeq and SortOptional.
	Elem *SortExpr
	// Name disambiguates distinct uninterpreted sorts (one per declared
	// enum, entity, or scalar reference type) and distinct struct field
	// selector families.
	Name string
}

func (s SortExpr) String() string {
	switch s.Base {
	case SortSeq:
		if s.Elem != nil {
			return "(Seq " + s.Elem.String() + ")"
		}
		return "(Seq U)"
	case SortOptional:
		if s.Elem != nil {
			return "(Optional " + s.Elem.String() + ")"
		}
		return "(Optional U)"
	case SortUninterpreted:
		if s.Name != "" {
			return s.Name
		}
		return "U"
	default:
		return s.Base.String()
	}
}

// SortOf maps a DSL type to its SMT sort, per the table in spec.md
// §4.6: Int/Decimal/Boolean/String map directly; UUID, Timestamp, and
// enum references become named uninterpreted sorts; List<T> and
// Optional<T> carry their element sort; everything else (Map, Struct,
// Union) becomes an uninterpreted sort named by its declared type.
func SortOf(t ast.TypeExpr) SortExpr {
	switch v := t.(type) {
	case nil:
		return SortExpr{Base: SortUninterpreted, Name: "Unknown"}
	case *ast.PrimitiveType:
		switch v.Name {
		case "Int":
			return SortExpr{Base: SortInt}
		case "Decimal":
			return SortExpr{Base: SortReal}
		case "Boolean":
			return SortExpr{Base: SortBool}
		case "String":
			return SortExpr{Base: SortString}
		default:
			return SortExpr{Base: SortUninterpreted, Name: v.Name}
		}
	case *ast.ReferenceType:
		return SortExpr{Base: SortUninterpreted, Name: v.Name}
	case *ast.ListType:
		elem := SortOf(v.Elem)
		return SortExpr{Base: SortSeq, Elem: &elem}
	case *ast.OptionalType:
		elem := SortOf(v.Inner)
		return SortExpr{Base: SortOptional, Elem: &elem}
	case *ast.ConstrainedType:
		return SortOf(v.Base)
	case *ast.MapType:
		return SortExpr{Base: SortUninterpreted, Name: "Map"}
	case *ast.StructType:
		return SortExpr{Base: SortUninterpreted, Name: "Struct"}
	case *ast.UnionType:
		return SortExpr{Base: SortUninterpreted, Name: "Union"}
	case *ast.EnumType:
		return SortExpr{Base: SortUninterpreted, Name: "Enum"}
	default:
		return SortExpr{Base: SortUninterpreted, Name: "Unknown"}
	}
}
