package klog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentReturnsInOrder(t *testing.T) {
	SetCapacity(4)
	Logf("one")
	Logf("two")
	Logf("three")

	got := Recent(2)
	require.Equal(t, []string{"two", "three"}, got)
}

func TestRingOverwritesOldest(t *testing.T) {
	SetCapacity(2)
	Logf("a")
	Logf("b")
	Logf("c")

	got := Recent(2)
	require.Equal(t, []string{"b", "c"}, got)
}
