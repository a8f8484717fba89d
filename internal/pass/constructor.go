// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dave/dst"

	"github.com/lltap/lltap/internal/astutil"
)

// ConstructorName returns the name of the per-file registration
// constructor for the file identified by moduleID (a short, stable hash
// of the file's import path and name, since Go package-level init
// functions need not be unique by name but a predictable one keeps
// generated code legible and idempotent across re-runs).
func ConstructorName(moduleID string) string {
	return "__lltap_init_" + moduleID
}

// ModuleID derives a short, deterministic identifier for a file from its
// package import path and base name.
func ModuleID(importPath, fileName string) string {
	sum := sha256.Sum256([]byte(importPath + "/" + fileName))
	return hex.EncodeToString(sum[:])[:12]
}

// Constructor accumulates AddTarget registrations for every callee
// touched while instrumenting one file, emitting one registration per
// callee name (an in-memory dedupe set kept while the pass walks the
// file) into a single func init() appended to the file.
type Constructor struct {
	moduleID string
	seen     map[string]bool
	stmts    []dst.Stmt
}

// NewConstructor starts a fresh constructor builder for moduleID.
func NewConstructor(moduleID string) *Constructor {
	return &Constructor{moduleID: moduleID, seen: make(map[string]bool)}
}

// AddTarget records hookedName as a callee to register, skipping names
// already recorded so the registration is emitted at most once even if
// AddTarget is called for the same name more than once while walking the
// file (e.g. a callee used at several call sites).
func (c *Constructor) AddTarget(hookedName string) {
	if c.seen[hookedName] {
		return
	}
	c.seen[hookedName] = true
	c.stmts = append(c.stmts, astutil.ExprStmt(runtimeCall("AddTarget", astutil.StringLit(hookedName))))
}

// Empty reports whether no callee was ever registered, in which case the
// caller should skip emitting a constructor entirely.
func (c *Constructor) Empty() bool {
	return len(c.stmts) == 0
}

// Decl builds the func init() declaration Go itself runs at program
// start, satisfying the ordering guarantee that registration happens
// before any user code can observe a hook for these callees. Go's
// language-level guarantee that init functions run before main gives
// this directly, without an explicit priority-ordered constructor list.
// Go requires the function itself to be named init, so the per-file
// constructor identity lives in a leading comment instead.
func (c *Constructor) Decl() *dst.FuncDecl {
	decl := &dst.FuncDecl{
		Name: astutil.Ident("init"),
		Type: &dst.FuncType{Params: &dst.FieldList{}},
		Body: &dst.BlockStmt{List: append([]dst.Stmt(nil), c.stmts...)},
	}
	decl.Decs.Before = dst.EmptyLine
	decl.Decs.Start.Append("// " + ConstructorName(c.moduleID) + ": generated hook-target registration.")
	return decl
}
