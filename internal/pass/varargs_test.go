// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"testing"

	"github.com/dave/dst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lltap/lltap/internal/astutil"
)

func TestMangleTypeSubstitutions(t *testing.T) {
	root := parseSample(t, `package sample

func F(a *int, b []string, c map[string]int) {}
`)
	fn := findFunc(t, root, "F")
	params := expandParams(fn.Type.Params)

	assert.Equal(t, "pint", MangleType(params[0].typ))
	assert.Equal(t, "string", MangleType(params[1].typ))
	assert.Equal(t, "mapstringint", MangleType(params[2].typ))
}

func TestMangledTrampolineNameConcatenatesInOrder(t *testing.T) {
	root := parseSample(t, `package sample

func F(a *int, b string) {}
`)
	fn := findFunc(t, root, "F")
	params := expandParams(fn.Type.Params)

	argTypes := []dst.Expr{params[0].typ, params[1].typ}
	name := MangledTrampolineName("F", argTypes)
	assert.Equal(t, "__lltap_hook_F_pintstring", name)
}

func TestSynthesizeVariadicDistinctShapesGetDistinctNames(t *testing.T) {
	root := parseSample(t, `package sample

func Printf(format string, args ...any) {}
`)
	fn := findFunc(t, root, "Printf")
	require.True(t, astutil.IsVariadic(fn))

	helpers := parseSample(t, `package sample
func helperInt(a int) {}
func helperStr(a string) {}
`)
	intArg := findFunc(t, helpers, "helperInt").Type.Params.List[0].Type
	strArg := findFunc(t, helpers, "helperStr").Type.Params.List[0].Type
	formatType := fn.Type.Params.List[0].Type

	trampA := SynthesizeVariadic(fn, "Printf", []dst.Expr{formatType, intArg})
	trampB := SynthesizeVariadic(fn, "Printf", []dst.Expr{formatType, strArg})

	assert.NotEqual(t, trampA.Name.Name, trampB.Name.Name)
	assert.Len(t, trampA.Type.Params.List, 2)
}
