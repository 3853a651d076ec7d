// Package keyspace derives canonical storage keys from a namespace tag and a
// tuple of identifying parts. Records across the system are addressed by these
// keys instead of ad-hoc composite strings, so the same (namespace, parts)
// tuple always lands on the same slot and distinct tuples cannot collide.
package keyspace

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Namespace tags. Each record family lives in its own namespace so identical
// part tuples in different families derive different keys.
const (
	NamespaceIdentity = "identity"
	NamespaceMapping  = "mapping"
	NamespaceReverse  = "reverse"
	NamespacePoints   = "points"
	NamespaceSession  = "session"
)

// KeyLen is the raw byte length of a derived key.
const KeyLen = 32

// Key is a derived storage key.
type Key [KeyLen]byte

// String returns the canonical lowercase-hex form, used as the primary key
// column in Postgres and the map key in memory stores.
func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Derive computes the key for (namespace, parts...). Parts are length-prefixed
// before hashing so ("ab","c") and ("a","bc") cannot produce the same digest.
func Derive(namespace string, parts ...string) Key {
	h, _ := blake2b.New256(nil)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(namespace)))
	h.Write(lenBuf[:])
	h.Write([]byte(namespace))

	for _, p := range parts {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p)))
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}
