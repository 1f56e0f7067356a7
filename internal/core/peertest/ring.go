package peertest

import (
	"sync"

	"github.com/anonoverlay/peertest/pkg/types"
)

// RingSize 是 Charlie-nonce 环形缓冲区的固定槽位数（spec.md §3「Charlie-nonce
// ring」：「fixed-size circular buffer of 64 recent nonces」）
const RingSize = 64

// charlieRing 记录本节点被某个 Bob 招募为 Charlie 的近期 nonce
//
// spec.md §9 的 Open Question 指出：Java 源码用 binarySearch 在一个按环形写入
// 而非排序的缓冲区上查找，几乎可以肯定是一个 bug；本实现按 spec 要求对槽位做
// 线性扫描。
type charlieRing struct {
	mu    sync.Mutex
	slots [RingSize]ringSlot
	next  int
}

type ringSlot struct {
	nonce    types.Nonce
	occupied bool
}

func newCharlieRing() *charlieRing {
	return &charlieRing{}
}

// Insert 把 nonce 写入下一个槽位，返回写入的槽位下标，供调用方安排该槽位的
// 定时驱逐事件（spec.md §4.2a）
func (r *charlieRing) Insert(nonce types.Nonce) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.next
	r.slots[slot] = ringSlot{nonce: nonce, occupied: true}
	r.next = (slot + 1) % RingSize
	return slot
}

// Contains 线性扫描所有槽位，报告 nonce 是否在环中（spec.md §9：mandates
// linear scan of the ring）
func (r *charlieRing) Contains(nonce types.Nonce) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.occupied && s.nonce == nonce {
			return true
		}
	}
	return false
}

// Evict 清除 slot，但仅当它仍保存着 nonce 时才清除——防止一个过期的定时器
// 驱逐了因槽位复用而写入的新租户（spec.md §3「Invariant (Charlie ring)」）
func (r *charlieRing) Evict(nonce types.Nonce, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[slot].occupied && r.slots[slot].nonce == nonce {
		r.slots[slot] = ringSlot{}
	}
}
