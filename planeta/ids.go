package planeta

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Dense handles into the skeleton's arena arrays. Freed ids are recycled;
// structures hold ids, never pointers, so they stay valid across resizes.

type SkVrtxId uint32

type SkTriId uint32

// SkTriGroupId identifies the four sibling triangles created by one
// subdivision. Triangle ids are group ids with the sibling index packed
// into the low two bits.
type SkTriGroupId uint32

const (
	SkVrtxNone     = ^SkVrtxId(0)
	SkTriNone      = ^SkTriId(0)
	SkTriGroupNone = ^SkTriGroupId(0)
)

func TriGroupIdOf(tri SkTriId) SkTriGroupId { return SkTriGroupId(tri >> 2) }

func TriSiblingIndex(tri SkTriId) int { return int(tri & 3) }

func TriIdOf(group SkTriGroupId, sibling int) SkTriId {
	return SkTriId(group)<<2 | SkTriId(sibling)
}

// MaybeNewId is a vertex id plus whether this request created it, so
// callers know which midpoints need positions computed.
type MaybeNewId struct {
	Id    SkVrtxId
	IsNew bool
}

// IdRegistry is a dense id allocator. Capacity is the high-water mark;
// arrays indexed by these ids are sized to it.
type IdRegistry struct {
	alive *bitset.BitSet
	free  []uint32
	next  uint32
}

func (r *IdRegistry) Create() uint32 {
	if r.alive == nil {
		r.alive = bitset.New(64)
	}
	var id uint32
	if n := len(r.free); n != 0 {
		id = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		id = r.next
		r.next++
	}
	r.alive.Set(uint(id))
	return id
}

func (r *IdRegistry) Remove(id uint32) {
	if !r.Exists(id) {
		panic(fmt.Sprintf("planeta: removing dead id %d", id))
	}
	r.alive.Clear(uint(id))
	r.free = append(r.free, id)
}

func (r *IdRegistry) Exists(id uint32) bool {
	return r.alive != nil && r.alive.Test(uint(id))
}

func (r *IdRegistry) Capacity() uint32 { return r.next }

func (r *IdRegistry) Count() uint {
	if r.alive == nil {
		return 0
	}
	return r.alive.Count()
}
