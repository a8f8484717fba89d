// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package astutil

import (
	"fmt"
	"go/token"
	"strconv"

	"github.com/dave/dst"
)

func Ident(name string) *dst.Ident { return &dst.Ident{Name: name} }

func AddressOf(expr dst.Expr) *dst.UnaryExpr {
	return &dst.UnaryExpr{Op: token.AND, X: dst.Clone(expr).(dst.Expr)}
}

// DereferenceOf builds *expr. Like AddressOf, it clones its operand: dst
// trees reject a node reachable from two parents, and the operand usually
// also appears in the signature the caller is deriving the pointer type
// from.
func DereferenceOf(expr dst.Expr) *dst.StarExpr {
	return &dst.StarExpr{X: dst.Clone(expr).(dst.Expr)}
}

func CallTo(name string, args []dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{Fun: &dst.Ident{Name: name}, Args: args}
}

func StringLit(value string) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.STRING, Value: fmt.Sprintf("%q", value)}
}

func IntLit(value int) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(value)}
}

func Block(stmts ...dst.Stmt) *dst.BlockStmt {
	return &dst.BlockStmt{List: stmts}
}

func ExprStmt(expr dst.Expr) *dst.ExprStmt { return &dst.ExprStmt{X: expr} }

func ReturnStmt(exprs ...dst.Expr) *dst.ReturnStmt { return &dst.ReturnStmt{Results: exprs} }

func IfStmt(cond dst.Expr, body *dst.BlockStmt, els dst.Stmt) *dst.IfStmt {
	return &dst.IfStmt{Cond: cond, Body: body, Else: els}
}

func SelectorExpr(x dst.Expr, sel string) *dst.SelectorExpr {
	return &dst.SelectorExpr{X: x, Sel: Ident(sel)}
}

func TypeAssertExpr(x dst.Expr, t dst.Expr) *dst.TypeAssertExpr {
	return &dst.TypeAssertExpr{X: x, Type: t}
}

func AssignStmt(lhs, rhs dst.Expr) *dst.AssignStmt {
	return &dst.AssignStmt{Lhs: []dst.Expr{lhs}, Tok: token.ASSIGN, Rhs: []dst.Expr{rhs}}
}

func DefineStmt(lhs, rhs dst.Expr) *dst.AssignStmt {
	return &dst.AssignStmt{Lhs: []dst.Expr{lhs}, Tok: token.DEFINE, Rhs: []dst.Expr{rhs}}
}

func Field(name string, typ dst.Expr) *dst.Field {
	return &dst.Field{Names: []*dst.Ident{Ident(name)}, Type: typ}
}

func IsEllipsis(typ dst.Expr) bool {
	_, ok := typ.(*dst.Ellipsis)
	return ok
}
