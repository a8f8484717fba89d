// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package astutil

import "github.com/dave/dst"

func ListFuncDecls(root *dst.File) []*dst.FuncDecl {
	decls := make([]*dst.FuncDecl, 0)
	for _, decl := range root.Decls {
		if fn, ok := decl.(*dst.FuncDecl); ok {
			decls = append(decls, fn)
		}
	}
	return decls
}

// FindFuncDecl finds a top-level, receiver-less function declaration by
// name.
func FindFuncDecl(root *dst.File, name string) *dst.FuncDecl {
	for _, fn := range ListFuncDecls(root) {
		if fn.Name.Name == name && !HasReceiver(fn) {
			return fn
		}
	}
	return nil
}

func HasReceiver(fn *dst.FuncDecl) bool {
	return fn.Recv != nil && len(fn.Recv.List) > 0
}

// IsVariadic reports whether fn's last parameter is a `...T` parameter.
func IsVariadic(fn *dst.FuncDecl) bool {
	params := fn.Type.Params.List
	if len(params) == 0 {
		return false
	}
	return IsEllipsis(params[len(params)-1].Type)
}

// ResultCount returns the number of result values (0 for a func
// returning nothing).
func ResultCount(fn *dst.FuncDecl) int {
	if fn.Type.Results == nil {
		return 0
	}
	n := 0
	for _, field := range fn.Type.Results.List {
		if len(field.Names) == 0 {
			n++
			continue
		}
		n += len(field.Names)
	}
	return n
}
