// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package lltap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive the registry through a trampoline written by hand in
// exactly the shape the instrumentation pass generates, so the dispatch
// contracts hold end to end: pre-hooks see arguments by pointer, a
// replace-hook suppresses the callee, and a post-hook can overwrite the
// return value through its pointer.

var greetCalls []string

func greet(name string) string {
	greetCalls = append(greetCalls, name)
	return "Hello, " + name
}

func greetTrampoline(p1 string) string {
	var ret string
	bm := HasHooks("greet")
	if bm&int(Pre) != 0 {
		h := GetHook("greet", Pre)
		h.(func(*string))(&p1)
	}
	if bm&int(Replace) != 0 {
		h := GetHook("greet", Replace)
		ret = h.(func(string) string)(p1)
	} else {
		ret = greet(p1)
	}
	if bm&int(Post) != 0 {
		h := GetHook("greet", Post)
		h.(func(*string, string))(&ret, p1)
	}
	return ret
}

func setupGreet(t *testing.T) {
	t.Helper()
	Default.Reset()
	t.Cleanup(Default.Reset)
	greetCalls = nil
	AddTarget("greet")
}

func TestDispatchNoHooksMatchesDirectCall(t *testing.T) {
	setupGreet(t)

	assert.Equal(t, "Hello, World", greetTrampoline("World"))
	assert.Equal(t, []string{"World"}, greetCalls)
}

func TestDispatchPreHookMutatesArgumentBeforeCallee(t *testing.T) {
	setupGreet(t)

	require.True(t, RegisterHook("greet", func(name *string) {
		*name = "dlroW"
	}, Pre))

	assert.Equal(t, "Hello, dlroW", greetTrampoline("World"))
	assert.Equal(t, []string{"dlroW"}, greetCalls)
}

func TestDispatchReplaceHookSuppressesCallee(t *testing.T) {
	setupGreet(t)

	require.True(t, RegisterHook("greet", func(name string) string {
		return "intercepted " + name
	}, Replace))

	assert.Equal(t, "intercepted World", greetTrampoline("World"))
	assert.Empty(t, greetCalls, "the original callee must not run while a replace-hook is installed")
}

func TestDispatchReplaceHookCanDeregisterItself(t *testing.T) {
	setupGreet(t)

	require.True(t, RegisterHook("greet", func(name string) string {
		DeregisterHook("greet", Replace)
		return "once"
	}, Replace))

	assert.Equal(t, "once", greetTrampoline("World"))
	assert.Equal(t, "Hello, World", greetTrampoline("World"))
	assert.Equal(t, []string{"World"}, greetCalls)
}

func TestDispatchPostHookOverwritesReturn(t *testing.T) {
	setupGreet(t)

	require.True(t, RegisterHook("greet", func(ret *string, name string) {
		*ret = "overwritten"
	}, Post))

	assert.Equal(t, "overwritten", greetTrampoline("World"))
	assert.Equal(t, []string{"World"}, greetCalls, "post-hook runs after, not instead of, the callee")
}

func TestDispatchPrePostComposeAroundCallee(t *testing.T) {
	setupGreet(t)

	var order []string
	require.True(t, RegisterHook("greet", func(name *string) {
		order = append(order, "pre")
	}, Pre))
	require.True(t, RegisterHook("greet", func(ret *string, name string) {
		order = append(order, "post")
	}, Post))

	greetTrampoline("World")
	assert.Equal(t, []string{"pre", "post"}, order)
	assert.Equal(t, []string{"World"}, greetCalls)
}
