package types

import (
	"strconv"
	"strings"
)

/*
QueryKey identifies one cached collection or entity, for example
["events", "all", "character", "<uuid>"].

Two keys are equal when their parts are equal. The pointer or slice identity
never matters, which is why the cache stores entries under String().
*/
type QueryKey []string

// Key builds a QueryKey from its parts.
func Key(parts ...string) QueryKey {
	k := make(QueryKey, len(parts))
	copy(k, parts)
	return k
}

/*
String returns the canonical encoding of the key.

Every part is quoted, so ["a,b"] and ["a", "b"] never collide.
*/
func (k QueryKey) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range k {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p))
	}
	b.WriteByte(']')
	return b.String()
}

// Equal reports whether both keys have the same parts in the same order.
func (k QueryKey) Equal(o QueryKey) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

/*
HasPrefix reports whether p is a leading part of k.

Invalidation matches by prefix: invalidating ["character", id] reaches every
key that starts with those two parts. A key is a prefix of itself.
*/
func (k QueryKey) HasPrefix(p QueryKey) bool {
	if len(p) > len(k) {
		return false
	}
	return k[:len(p)].Equal(p)
}

// Clone returns a copy that does not share the backing array.
func (k QueryKey) Clone() QueryKey {
	return Key(k...)
}
