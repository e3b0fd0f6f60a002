package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeap_Pop(t *testing.T) {
	h := Heap[uint64]{}
	for i := uint64(0); i < 64; i++ {
		h.Push(i ^ 17)
	}
	for i := uint64(0); i < 64; i++ {
		assert.Equal(t, i, h.Pop())
	}
}

func TestHeap_PopUint32(t *testing.T) {
	h := Heap[uint32]{}
	for _, v := range []uint32{9, 3, 7, 1, 8, 2} {
		h.Push(v)
	}
	got := make([]uint32, 0, h.Len())
	for h.Len() > 0 {
		got = append(got, h.Pop())
	}
	assert.Equal(t, []uint32{1, 2, 3, 7, 8, 9}, got)
}
