// Package netdb 提供 interfaces.NetDB 与 interfaces.PeerSelector 的默认实现：
// 一个有界的、按最近使用淘汰的本地路由器描述缓存。
//
// 真实的 netDB 索引与网络发现不属于对端可达性测试子系统范畴（spec.md
// Non-goals），本包只提供查找面：调用方（或后台同步任务）负责填充缓存。
package netdb

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

var log = logger.Logger("netdb")

// DefaultCacheSize 是路由器描述缓存的默认容量
const DefaultCacheSize = 4096

// LocalCache 是 interfaces.NetDB 的默认实现：一个有界 LRU 缓存
type LocalCache struct {
	cache *lru.Cache[types.NodeID, interfaces.RouterInfo]
}

// NewLocalCache 构建一个容量为 size 的本地路由器描述缓存
func NewLocalCache(size int) *LocalCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[types.NodeID, interfaces.RouterInfo](size)
	if err != nil {
		// 只有 size<=0 才会出错，上面已经兜底，理论上不可达
		panic(err)
	}
	return &LocalCache{cache: c}
}

// LookupLocal 实现 interfaces.NetDB
func (l *LocalCache) LookupLocal(nodeID types.NodeID) (interfaces.RouterInfo, bool) {
	info, ok := l.cache.Get(nodeID)
	if !ok {
		log.Debug("netdb miss", "nodeID", nodeID)
	}
	return info, ok
}

// Put 插入或刷新一条路由器描述，供后台同步任务调用
func (l *LocalCache) Put(info interfaces.RouterInfo) {
	l.cache.Add(info.NodeID, info)
}

// Remove 从缓存中移除一条路由器描述
func (l *LocalCache) Remove(nodeID types.NodeID) {
	l.cache.Remove(nodeID)
}

// Len 返回缓存中当前的条目数
func (l *LocalCache) Len() int {
	return l.cache.Len()
}

// CapableSelector 是 interfaces.PeerSelector 的默认实现：在一组已建立会话的
// 对端中，挑选广告了指定能力的对端（spec.md §4.2b「Bob picks Charlie」）。
//
// 挑选策略是简单轮询：round-robin 分散负载，避免同一个对端持续被选为
// Charlie。
type CapableSelector struct {
	mu   sync.Mutex
	next int
	byCap map[types.Capability][]interfaces.PeerState
}

// NewCapableSelector 构建一个空的 CapableSelector
func NewCapableSelector() *CapableSelector {
	return &CapableSelector{
		byCap: make(map[types.Capability][]interfaces.PeerState),
	}
}

// SetPeers 替换某个能力标签下的候选对端列表，供会话管理层在对端上下线时调用
func (s *CapableSelector) SetPeers(capability types.Capability, peers []interfaces.PeerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]interfaces.PeerState, len(peers))
	copy(cp, peers)
	s.byCap[capability] = cp
}

// GetPeerState 实现 interfaces.PeerSelector
func (s *CapableSelector) GetPeerState(capability types.Capability) (interfaces.PeerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := s.byCap[capability]
	if len(peers) == 0 {
		return interfaces.PeerState{}, false
	}
	s.next = (s.next + 1) % len(peers)
	return peers[s.next], true
}
