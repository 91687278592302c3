package shard

import "hash/fnv"

// Selector decides which shard owns a canonical key string.
type Selector interface {
	Select(string, []*Shard) *Shard
}

// HashSelector assigns keys by FNV-1a hash, so a key always lands on the same shard.
type HashSelector struct{}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (HashSelector) Select(key string, shards []*Shard) *Shard {
	return shards[int(hash(key)%uint32(len(shards)))]
}
