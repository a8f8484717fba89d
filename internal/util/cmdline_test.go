// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package util

import "testing"

func TestIsCompileArgs(t *testing.T) {
	args := []string{"/usr/lib/go/pkg/tool/linux_amd64/compile", "-o", "out.a", "-p", "main", "-buildid", "abc"}
	if !IsCompileArgs(args) {
		t.Fatal("expected compile args to match")
	}
	if IsCompileArgs(append(args, "-pgoprofile", "x")) {
		t.Fatal("pgo compile pass should not match")
	}
	if IsCompileArgs([]string{"/usr/bin/echo", "-o", "x"}) {
		t.Fatal("non-compiler tool should not match")
	}
}

func TestIsLinkArgs(t *testing.T) {
	args := []string{"/usr/lib/go/pkg/tool/linux_amd64/link", "-o", "out", "-buildid", "abc", "-importcfg", "cfg"}
	if !IsLinkArgs(args) {
		t.Fatal("expected link args to match")
	}
	if IsLinkArgs([]string{"/usr/lib/go/pkg/tool/linux_amd64/compile", "-o", "out"}) {
		t.Fatal("compiler should not match link")
	}
}

func TestFindFlagValue(t *testing.T) {
	args := []string{"-o", "out.a", "-p=main", "-x"}
	if FindFlagValue(args, "-o") != "out.a" {
		t.Fatal("space-separated flag not found")
	}
	if FindFlagValue(args, "-p") != "main" {
		t.Fatal("equals-separated flag not found")
	}
	if FindFlagValue(args, "-missing") != "" {
		t.Fatal("missing flag should return empty string")
	}
}
