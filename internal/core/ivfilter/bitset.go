package ivfilter

import "sync/atomic"

// bitset 是一个按位原子操作的定长位数组，供 decayingBloom 的每一代使用
type bitset struct {
	words []atomic.Uint64
	m     uint64 // 位数
}

func newBitset(m uint64) *bitset {
	if m == 0 {
		m = 1
	}
	return &bitset{
		words: make([]atomic.Uint64, (m+63)/64),
		m:     m,
	}
}

// testAndSet 原子地置位 bit 并返回该位此前是否已被置位
func (b *bitset) testAndSet(bit uint64) (wasSet bool) {
	word := bit / 64
	mask := uint64(1) << (bit % 64)
	for {
		old := b.words[word].Load()
		if old&mask != 0 {
			return true
		}
		if b.words[word].CompareAndSwap(old, old|mask) {
			return false
		}
	}
}

// test 返回 bit 是否已被置位，不产生副作用
func (b *bitset) test(bit uint64) bool {
	word := bit / 64
	mask := uint64(1) << (bit % 64)
	return b.words[word].Load()&mask != 0
}
