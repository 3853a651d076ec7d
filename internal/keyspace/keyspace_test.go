package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive(NamespaceIdentity, "alice")
	b := Derive(NamespaceIdentity, "alice")
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), KeyLen*2)
}

func TestDeriveSeparatesNamespaces(t *testing.T) {
	a := Derive(NamespaceIdentity, "alice")
	b := Derive(NamespacePoints, "alice")
	assert.NotEqual(t, a, b)
}

func TestDeriveSeparatesParts(t *testing.T) {
	t.Run("different tuples differ", func(t *testing.T) {
		a := Derive(NamespaceMapping, "alice", "wallet")
		b := Derive(NamespaceMapping, "alice", "donation")
		assert.NotEqual(t, a, b)
	})

	t.Run("part boundaries are unambiguous", func(t *testing.T) {
		// Without length prefixes these would hash the same byte stream.
		a := Derive(NamespaceMapping, "ab", "c")
		b := Derive(NamespaceMapping, "a", "bc")
		assert.NotEqual(t, a, b)
	})

	t.Run("arity matters", func(t *testing.T) {
		a := Derive(NamespaceMapping, "alice")
		b := Derive(NamespaceMapping, "alice", "")
		assert.NotEqual(t, a, b)
	})
}
