// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"strings"
	"testing"

	"github.com/dave/dst"
	"gotest.tools/v3/assert"

	"github.com/lltap/lltap/internal/astutil"
)

// printDecl renders a single synthesized declaration as a complete,
// throwaway Go file, so its printed source can be checked the way a
// generated-code review would: by the literal fragments that must appear
// in the right order, rather than a byte-for-byte fixture comparison that
// would be brittle against the printer's own formatting choices.
func printDecl(t *testing.T, decl dst.Decl) string {
	t.Helper()
	root := &dst.File{Name: astutil.Ident("sample"), Decls: []dst.Decl{decl}}
	out, err := astutil.PrintFile(root)
	assert.NilError(t, err)
	return out
}

// assertContainsInOrder checks that each of want appears in got, in that
// relative order, a simple string-diff-style check over generated source
// that avoids depending on a golden fixture directory outside the module.
func assertContainsInOrder(t *testing.T, got string, want ...string) {
	t.Helper()
	rest := got
	for _, w := range want {
		idx := strings.Index(rest, w)
		assert.Assert(t, idx >= 0, "expected to find %q in remaining source:\n%s", w, rest)
		rest = rest[idx+len(w):]
	}
}

func TestTrampolineSourceMatchesNineBlockSkeleton(t *testing.T) {
	root := parseSample(t, sampleSource)
	add := findFunc(t, root, "Add")

	got := printDecl(t, Synthesize(add, "Add"))

	assertContainsInOrder(t, got,
		"func __lltap_hook_Add(",
		`bm := lltap.HasHooks("Add")`,
		"bm&int(lltap.Pre)",
		`lltap.GetHook("Add", lltap.Pre)`,
		"bm&int(lltap.Replace)",
		`lltap.GetHook("Add", lltap.Replace)`,
		"Add(p1, p2)",
		"bm&int(lltap.Post)",
		`lltap.GetHook("Add", lltap.Post)`,
		"return ret",
	)
}

func TestVoidTrampolineSourceHasNoReturnSlot(t *testing.T) {
	root := parseSample(t, sampleSource)
	logFn := findFunc(t, root, "Log")

	got := printDecl(t, Synthesize(logFn, "Log"))

	assert.Assert(t, !strings.Contains(got, "&ret"), "void callee trampoline must not declare a return slot:\n%s", got)
	assert.Assert(t, !strings.Contains(got, "ret ="), "void callee trampoline must not assign a return slot:\n%s", got)
	assertContainsInOrder(t, got,
		"func __lltap_hook_Log(",
		`bm := lltap.HasHooks("Log")`,
		"Log(p1)",
		"return",
	)
}

func TestReplaceHookSuppressesOriginalCallInSource(t *testing.T) {
	root := parseSample(t, sampleSource)
	add := findFunc(t, root, "Add")

	got := printDecl(t, Synthesize(add, "Add"))

	// The only unconditional call to the original callee must live in the
	// call_orig else-branch; it must not also appear unconditionally ahead
	// of the replace-hook's own type-asserted call.
	origIdx := strings.Index(got, "} else {\n\t\tret = Add(p1, p2)")
	assert.Assert(t, origIdx >= 0, "expected call_orig in the replace-hook's else branch:\n%s", got)
}
