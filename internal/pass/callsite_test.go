// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"testing"

	"github.com/dave/dst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lltap/lltap/internal/astutil"
	"github.com/lltap/lltap/internal/policy"
)

func TestRewriteCallSitesRetargetsDirectCalls(t *testing.T) {
	root := parseSample(t, `package sample

func Add(a, b int) int { return a + b }

func Caller() int {
	return Add(1, 2)
}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)
	targets, _ := SelectTargets(root, pol)

	byName := make(map[string]Target)
	for _, tgt := range targets {
		byName[tgt.Name] = tgt
	}

	_, constructed := RewriteCallSites(root, byName, nil, nil, nil)
	assert.Contains(t, constructed, "Add")

	caller := findFunc(t, root, "Caller")
	ret := caller.Body.List[0].(*dst.ReturnStmt)
	call := ret.Results[0].(*dst.CallExpr)
	ident := call.Fun.(*dst.Ident)
	assert.Equal(t, "__lltap_hook_Add", ident.Name)
}

func TestRewriteCallSitesLeavesUnrelatedCallsAlone(t *testing.T) {
	root := parseSample(t, `package sample

func Add(a, b int) int { return a + b }

func Caller() int {
	return len([]int{Add(1, 2)})
}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)
	targets, _ := SelectTargets(root, pol)
	byName := map[string]Target{targets[0].Name: targets[0]}

	_, constructed := RewriteCallSites(root, byName, nil, nil, nil)
	require.Contains(t, constructed, "Add")

	caller := findFunc(t, root, "Caller")
	outer := caller.Body.List[0].(*dst.ReturnStmt).Results[0].(*dst.CallExpr)
	assert.Equal(t, "len", outer.Fun.(*dst.Ident).Name)
}

func TestRewriteCallSitesVariadicUsesMangledName(t *testing.T) {
	root := parseSample(t, `package sample

func Printf(format string, args ...any) {}

func Caller() {
	Printf("x=%d", 1)
}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)
	variadic := VariadicTargets(root, pol)

	extra, constructed := RewriteCallSites(root, nil, variadic, nil, nil)
	require.Len(t, extra, 1)
	assert.Contains(t, constructed, "Printf")

	caller := findFunc(t, root, "Caller")
	exprStmt := caller.Body.List[0].(*dst.ExprStmt)
	call := exprStmt.X.(*dst.CallExpr)
	ident := call.Fun.(*dst.Ident)
	assert.Equal(t, extra[0].Name.Name, ident.Name)
}

// TestRewriteCallSitesDistinctRealArgTypesGetDistinctTrampolines exercises
// inferArgTypes/realArgTypesFor at the call-site level (not by hand-
// building argType slices and calling SynthesizeVariadic directly): two
// call sites to the same variadic callee, arity-identical but carrying
// different real argument types, must not collapse onto one mangled
// trampoline. realArgTypes here stands in for what callSiteArgTypes would
// resolve via go/types at toolexec time.
func TestRewriteCallSitesDistinctRealArgTypesGetDistinctTrampolines(t *testing.T) {
	root := parseSample(t, `package sample

func Printf(format string, args ...any) {}

func CallerInt() {
	Printf("x=%d", 1)
}

func CallerStr() {
	Printf("x=%s", "hi")
}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)
	variadic := VariadicTargets(root, pol)

	formatType := dst.NewIdent("string")
	realArgTypes := map[string][][]dst.Expr{
		"Printf": {
			{formatType, dst.NewIdent("int")},
			{formatType, dst.NewIdent("string")},
		},
	}

	extra, constructed := RewriteCallSites(root, nil, variadic, nil, realArgTypes)
	require.Len(t, extra, 2, "differently-typed call sites to the same variadic callee must synthesize distinct trampolines")
	assert.NotEqual(t, extra[0].Name.Name, extra[1].Name.Name)
	assert.Contains(t, constructed, "Printf")

	callInt := findFunc(t, root, "CallerInt").Body.List[0].(*dst.ExprStmt).X.(*dst.CallExpr)
	callStr := findFunc(t, root, "CallerStr").Body.List[0].(*dst.ExprStmt).X.(*dst.CallExpr)
	identInt := callInt.Fun.(*dst.Ident)
	identStr := callStr.Fun.(*dst.Ident)
	assert.NotEqual(t, identInt.Name, identStr.Name)
}

func TestRewriteCallSitesRetargetsExternalSelectorCalls(t *testing.T) {
	root := parseSample(t, `package sample

import "example.com/vendor"

func Caller() int {
	return vendor.Compute(1, 2)
}
`)
	target := ExternalTarget{
		Callee:     astutil.SelectorExpr(astutil.Ident("vendor"), "Compute"),
		ImportPath: "example.com/vendor",
		FuncName:   "Compute",
		HookedName: "Compute",
	}
	externalTargets := map[string]ExternalTarget{"example.com/vendor.Compute": target}

	_, constructed := RewriteCallSites(root, nil, nil, externalTargets, nil)
	require.Contains(t, constructed, "Compute")

	caller := findFunc(t, root, "Caller")
	ret := caller.Body.List[0].(*dst.ReturnStmt)
	call := ret.Results[0].(*dst.CallExpr)
	ident := call.Fun.(*dst.Ident)
	assert.Equal(t, "__lltap_hook_Compute", ident.Name)
}
