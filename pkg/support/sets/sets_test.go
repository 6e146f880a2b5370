// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := Make[int](10)
	assert.Len(t, s, 0)

	// Check inserting and recovery.
	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7)
	assert.Len(t, s2, 2)
	assert.False(t, s2.Has(3))

	delete(s, 7)
	assert.True(t, s.Equal(MakeWith(3)))
	assert.False(t, s.Equal(s2))
	assert.False(t, s.Equal(MakeWith(-3)))
}

func TestUnion(t *testing.T) {
	a := MakeWith(1, 2)
	b := MakeWith(2, 3)
	u := a.Union(b, MakeWith(5))
	assert.Equal(t, []int{1, 2, 3, 5}, Sorted(u))

	// Operands are not modified.
	assert.Equal(t, []int{1, 2}, Sorted(a))
	assert.Equal(t, []int{2, 3}, Sorted(b))

	// Chaining inserts.
	assert.Equal(t, []int{0, 1, 2}, Sorted(a.Union().Insert(0)))
	assert.Empty(t, Sorted(Make[int]()))
}
