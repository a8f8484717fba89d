// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"fmt"
	"go/types"

	"github.com/dave/dst"

	"github.com/lltap/lltap/internal/astutil"
)

// slot is one parameter or result slot of a callee's signature, expanded
// to a single synthesized name regardless of how the original source
// grouped or named it ("a, b int" becomes two slots, each with its own
// type clone).
type slot struct {
	name string
	typ  dst.Expr
}

// expandParams expands fn's parameter list into one slot per parameter,
// named p1..pn to match the synthesized trampoline's internal slots.
func expandParams(list *dst.FieldList) []slot {
	if list == nil {
		return nil
	}
	var slots []slot
	n := 0
	for _, field := range list.List {
		count := len(field.Names)
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			n++
			slots = append(slots, slot{
				name: fmt.Sprintf("p%d", n),
				typ:  dst.Clone(field.Type).(dst.Expr),
			})
		}
	}
	return slots
}

// expandResult returns the single result slot of fn, named "ret", or nil
// if fn returns nothing. Callees with more than one result value are not
// eligible for trampoline synthesis (see Synthesize).
func expandResult(list *dst.FieldList) *slot {
	if list == nil || len(list.List) == 0 {
		return nil
	}
	return &slot{name: "ret", typ: dst.Clone(list.List[0].Type).(dst.Expr)}
}

func paramIdents(slots []slot) []dst.Expr {
	idents := make([]dst.Expr, len(slots))
	for i, s := range slots {
		idents[i] = astutil.Ident(s.name)
	}
	return idents
}

func paramFields(slots []slot) []*dst.Field {
	fields := make([]*dst.Field, len(slots))
	for i, s := range slots {
		fields[i] = astutil.Field(s.name, s.typ)
	}
	return fields
}

func pointerFields(slots []slot) []*dst.Field {
	fields := make([]*dst.Field, len(slots))
	for i, s := range slots {
		fields[i] = &dst.Field{Type: astutil.DereferenceOf(s.typ)}
	}
	return fields
}

func valueFields(slots []slot) []*dst.Field {
	fields := make([]*dst.Field, len(slots))
	for i, s := range slots {
		fields[i] = &dst.Field{Type: dst.Clone(s.typ).(dst.Expr)}
	}
	return fields
}

// funcType builds an unnamed `func(...)...` type expression from
// parameter and (optional) result fields, used for the type-assertion a
// trampoline performs on a looked-up HookPointer.
func funcType(params []*dst.Field, result *dst.Field) *dst.FuncType {
	ft := &dst.FuncType{Params: &dst.FieldList{List: params}}
	if result != nil {
		ft.Results = &dst.FieldList{List: []*dst.Field{result}}
	}
	return ft
}

// typeExprFromGoType converts a resolved go/types.Type back into source
// text via types.TypeString, then into a dst type expression via
// astutil.ParseTypeExpr. Every foreign package TypeString has to qualify
// (anything not a basic type or already local to the unit being compiled)
// is recorded into used, since the generated trampoline's own file will
// need that package imported for the rendered identifier to resolve.
func typeExprFromGoType(t types.Type, used *[]string) (dst.Expr, error) {
	qualifier := func(pkg *types.Package) string {
		*used = append(*used, pkg.Path())
		return pkg.Name()
	}
	return astutil.ParseTypeExpr(types.TypeString(t, qualifier))
}

// slotsFromSignature expands a resolved go/types.Signature — the shape
// of an externally declared callee, resolved via PackageResolver rather
// than from a local *dst.FuncDecl — into the same []slot/*slot shape
// expandParams/expandResult produce for a local declaration, so Synthesize
// and SynthesizeExternal can share one trampoline body builder. used
// collects every foreign package path referenced by a parameter or result
// type, for the caller to import alongside the callee's own package.
func slotsFromSignature(sig *types.Signature, used *[]string) (params []slot, result *slot, err error) {
	n := sig.Params().Len()
	for i := 0; i < n; i++ {
		typ := sig.Params().At(i).Type()
		if sig.Variadic() && i == n-1 {
			if sl, ok := typ.(*types.Slice); ok {
				typ = sl.Elem()
			}
		}
		expr, err := typeExprFromGoType(typ, used)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, slot{name: fmt.Sprintf("p%d", i+1), typ: expr})
	}

	if sig.Results().Len() == 1 {
		expr, err := typeExprFromGoType(sig.Results().At(0).Type(), used)
		if err != nil {
			return nil, nil, err
		}
		result = &slot{name: "ret", typ: expr}
	}
	return params, result, nil
}
