// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorDedupesRegistrations(t *testing.T) {
	c := NewConstructor(ModuleID("example.com/pkg", "file.go"))
	assert.True(t, c.Empty())

	c.AddTarget("Add")
	c.AddTarget("Add")
	c.AddTarget("Sub")

	assert.False(t, c.Empty())
	decl := c.Decl()
	assert.Equal(t, "init", decl.Name.Name)
	assert.Len(t, decl.Body.List, 2)
}

func TestModuleIDDeterministic(t *testing.T) {
	a := ModuleID("example.com/pkg", "file.go")
	b := ModuleID("example.com/pkg", "file.go")
	c := ModuleID("example.com/pkg", "other.go")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 12)
}
