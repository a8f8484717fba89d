// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lltap/lltap/internal/policy"
)

func mustPolicy(t *testing.T, instFuncs, noInstFuncs []string, mode policy.Mode) *policy.Policy {
	t.Helper()
	p, err := policy.New(instFuncs, nil, noInstFuncs, nil, mode, false, "")
	require.NoError(t, err)
	return p
}

func TestSelectTargetsSkipsLltapAndMethods(t *testing.T) {
	root := parseSample(t, `package sample

func malloc(n int) int { return n }

func lltapInternal() {}

type T struct{}
func (T) Method() {}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)

	targets, _ := SelectTargets(root, pol)
	require.Len(t, targets, 1)
	assert.Equal(t, "malloc", targets[0].Name)
}

func TestSelectTargetsAppliesHookNamespace(t *testing.T) {
	root := parseSample(t, sampleSource)
	pol, err := policy.New(nil, nil, nil, nil, policy.ModeBoth, false, "myapp")
	require.NoError(t, err)

	targets, _ := SelectTargets(root, pol)
	for _, target := range targets {
		assert.Equal(t, "myapp_"+target.Name, target.HookedName)
	}
}

func TestSelectTargetsSkipsBlacklisted(t *testing.T) {
	root := parseSample(t, sampleSource)
	pol := mustPolicy(t, nil, []string{"Add"}, policy.ModeBoth)

	targets, _ := SelectTargets(root, pol)
	for _, target := range targets {
		assert.NotEqual(t, "Add", target.Name)
	}
}

func TestVariadicTargetsExcludesFixedArity(t *testing.T) {
	root := parseSample(t, `package sample

func Printf(format string, args ...any) {}

func Fixed(a int) {}
`)
	pol := mustPolicy(t, nil, nil, policy.ModeBoth)

	variadic := VariadicTargets(root, pol)
	_, hasPrintf := variadic["Printf"]
	_, hasFixed := variadic["Fixed"]
	assert.True(t, hasPrintf)
	assert.False(t, hasFixed)
}
