// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package lltap

// This file is the package-level runtime API that both user code and
// pass-generated trampolines/constructors call against the Default
// manager. RegisterHook, RegisterHookInfo, RegisterHooks, and
// DeregisterHook are the user-facing surface; AddTarget, GetHook, and
// HasHooks are the three entry points generated code references. Go
// function values are already opaque, GC-tracked descriptors, so a
// callee is identified everywhere by its registered name (see Manager's
// doc comment for why).

// RegisterHook installs hook as the kind-hook for the callee registered
// under name. User-facing install.
func RegisterHook(name string, hook HookPointer, kind HookType) bool {
	return Default.RegisterHook(name, hook, kind)
}

// RegisterHookInfo installs a single HookInfo entry.
func RegisterHookInfo(info HookInfo) bool {
	return Default.RegisterHookInfo(info)
}

// RegisterHooks bulk-installs hooks from a slice, typically called from
// an init function so a package's hooks are installed before main runs.
func RegisterHooks(infos []HookInfo) {
	Default.RegisterHooks(infos)
}

// DeregisterHook clears the kind-slot for the callee registered under
// name.
func DeregisterHook(name string, kind HookType) {
	Default.DeregisterHook(name, kind)
}

// AddTarget records name as a known, instrumented callee. Called
// exclusively from pass-emitted package constructors.
func AddTarget(name string) {
	Default.AddTarget(name)
}

// GetHook returns the installed kind-hook for name, called from
// trampolines after HasHooks indicates it is present.
func GetHook(name string, kind HookType) HookPointer {
	return Default.GetHook(name, kind)
}

// HasHooks returns the bitmap of installed hook kinds for name; a
// trampoline's fast-path check.
func HasHooks(name string) int {
	return Default.GetHookBitmap(name)
}
