package hashtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetThenGetRoundTrip(t *testing.T) {
	ht := MkHash(8)
	v, inserted := ht.Set("a", 1)
	require.True(t, inserted)
	require.Equal(t, 1, v)

	got, ok := ht.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, got)
}

func TestSetExistingKeyDoesNotOverwrite(t *testing.T) {
	ht := MkHash(8)
	ht.Set("a", 1)
	old, inserted := ht.Set("a", 2)
	require.False(t, inserted)
	require.Equal(t, 1, old)

	got, _ := ht.Get("a")
	require.Equal(t, 1, got)
}

func TestDelRemovesKey(t *testing.T) {
	ht := MkHash(8)
	ht.Set("a", 1)
	ht.Del("a")

	_, ok := ht.Get("a")
	require.False(t, ok)
}

func TestDelOfMissingKeyPanics(t *testing.T) {
	ht := MkHash(8)
	require.Panics(t, func() { ht.Del("missing") })
}

func TestSizeCountsAllBuckets(t *testing.T) {
	ht := MkHash(4)
	ht.Set("a", 1)
	ht.Set("b", 2)
	ht.Set("c", 3)
	require.Equal(t, 3, ht.Size())
}

func TestIntKeysWork(t *testing.T) {
	ht := MkHash(8)
	ht.Set(42, "answer")
	got, ok := ht.Get(42)
	require.True(t, ok)
	require.Equal(t, "answer", got)
}
