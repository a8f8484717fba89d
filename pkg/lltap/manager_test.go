// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package lltap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapIsBitwiseOrOfInstalledKinds(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")

	assert.Equal(t, 0, m.GetHookBitmap("f"))

	m.RegisterHook("f", func() {}, Pre)
	assert.Equal(t, int(Pre), m.GetHookBitmap("f"))

	m.RegisterHook("f", func() {}, Post)
	assert.Equal(t, int(Pre|Post), m.GetHookBitmap("f"))

	m.RegisterHook("f", func() {}, Replace)
	assert.Equal(t, int(Pre|Replace|Post), m.GetHookBitmap("f"))
}

func TestRegisterThenGetReturnsSameHook(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")

	hook := func(x *int) { *x = 7 }
	ok := m.RegisterHook("f", hook, Pre)
	require.True(t, ok)

	got := m.GetHook("f", Pre)
	require.NotNil(t, got)
	assert.Equal(t, 1, int(Pre)) // sanity on bit value
	x := 0
	got.(func(*int))(&x)
	assert.Equal(t, 7, x)

	m.DeregisterHook("f", Pre)
	assert.Nil(t, m.GetHook("f", Pre))
	assert.Equal(t, 0, m.GetHookBitmap("f"))
}

func TestRegisterOverwritesPriorHookOfSameKind(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")

	var calls []string
	m.RegisterHook("f", func() { calls = append(calls, "first") }, Replace)
	m.RegisterHook("f", func() { calls = append(calls, "second") }, Replace)

	hook := m.GetHook("f", Replace).(func())
	hook()
	assert.Equal(t, []string{"second"}, calls)
}

func TestRegisterOnUnknownNameIsNoopAndLeavesBitmapZero(t *testing.T) {
	m := NewManager()

	ok := m.RegisterHook("ghost", func() {}, Pre)
	assert.False(t, ok)
	assert.Equal(t, 0, m.GetHookBitmap("ghost"))
	assert.Equal(t, 0, m.GetHookBitmap("anything-else"))
}

func TestRegisterWithInvalidHookTypeFails(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")

	ok := m.RegisterHook("f", func() {}, HookType(99))
	assert.False(t, ok)
	assert.Equal(t, 0, m.GetHookBitmap("f"))
}

func TestDeregisterUnknownNameIsNoop(t *testing.T) {
	m := NewManager()
	assert.NotPanics(t, func() { m.DeregisterHook("ghost", Pre) })
}

func TestRegisterHooksBulkStopsAtSentinel(t *testing.T) {
	m := NewManager()
	m.AddTarget("a")
	m.AddTarget("b")
	m.AddTarget("c")
	m.AddTarget("d")

	infos := []HookInfo{
		{TargetName: "a", Hook: func() {}, Type: Pre},
		{TargetName: "b", Hook: func() {}, Type: Replace},
		{TargetName: "c", Hook: func() {}, Type: Post},
		{}, // sentinel
		{TargetName: "d", Hook: func() {}, Type: Pre},
	}
	m.RegisterHooks(infos)

	assert.Equal(t, int(Pre), m.GetHookBitmap("a"))
	assert.Equal(t, int(Replace), m.GetHookBitmap("b"))
	assert.Equal(t, int(Post), m.GetHookBitmap("c"))
	assert.Equal(t, 0, m.GetHookBitmap("d"))
}

func TestHookTypeIsValid(t *testing.T) {
	assert.True(t, Pre.IsValid())
	assert.True(t, Replace.IsValid())
	assert.True(t, Post.IsValid())
	assert.False(t, HookType(0).IsValid())
	assert.False(t, HookType(3).IsValid())
}

func TestResetClearsState(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")
	m.RegisterHook("f", func() {}, Pre)

	m.Reset()

	assert.Equal(t, 0, m.GetHookBitmap("f"))
	assert.False(t, m.RegisterHook("f", func() {}, Pre))
}

func TestDefaultManagerPackageWrappers(t *testing.T) {
	Default.Reset()
	t.Cleanup(Default.Reset)

	AddTarget("pkgfn")
	assert.True(t, RegisterHook("pkgfn", func() {}, Pre))
	assert.Equal(t, int(Pre), HasHooks("pkgfn"))
	assert.NotNil(t, GetHook("pkgfn", Pre))
	DeregisterHook("pkgfn", Pre)
	assert.Equal(t, 0, HasHooks("pkgfn"))
}

func TestRegisterHookInfo(t *testing.T) {
	m := NewManager()
	m.AddTarget("f")
	ok := m.RegisterHookInfo(HookInfo{TargetName: "f", Hook: func() {}, Type: Post})
	assert.True(t, ok)
	assert.Equal(t, int(Post), m.GetHookBitmap("f"))
}
