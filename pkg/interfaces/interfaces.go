// Package interfaces 定义对端可达性测试子系统依赖的外部协作方契约
//
// 这些接口对应 spec.md §6 中列出的协作方：UDP 收发、netDB 查询、定时器与时钟。
// 本包只声明契约，具体实现（会话建立、分片、netDB 索引等）不属于本子系统范畴。
package interfaces

import (
	"context"
	"time"

	"github.com/anonoverlay/peertest/pkg/types"
)

// OutboundPacket 是提交给 Transport 发送的一次性数据报
type OutboundPacket struct {
	// Dest 是目的端点
	Dest types.RemoteHostId

	// Payload 是已编码的测试消息负载（未加密）
	Payload []byte

	// EnvelopeKey 是用于加密该数据报的对称密钥
	//
	// 对 TestToCharlie 消息，调用方传入的是已建立会话的 cipher/MAC 密钥而非
	// Intro Key；Transport 的加密选择基于 EnvelopeKeyKind。
	EnvelopeKey []byte

	// EnvelopeKeyKind 说明 EnvelopeKey 的类型
	EnvelopeKeyKind EnvelopeKeyKind
}

// EnvelopeKeyKind 区分数据报使用的信封加密方式
type EnvelopeKeyKind int

const (
	// EnvelopeIntroKey 使用接收方的 32 字节 Intro Key 加密（未经协商的对端）
	EnvelopeIntroKey EnvelopeKeyKind = iota
	// EnvelopeSessionKeys 使用已建立会话的 cipher+MAC 密钥加密（已认证对端）
	EnvelopeSessionKeys
)

// Transport 是 spec.md §6 中 transport.send / transport.get_intro_key 的契约
type Transport interface {
	// Send 非阻塞地将数据报排队发送
	Send(ctx context.Context, pkt OutboundPacket) error

	// IntroKey 返回本地节点的 Intro Key
	IntroKey() types.IntroKey
}

// PeerState 描述一个已建立会话的对端，供 Bob 挑选 Charlie 时使用
type PeerState struct {
	RemotePeer types.NodeID
	Endpoint   types.RemoteHostId
	CipherKey  []byte
	MACKey     []byte
}

// PeerSelector 是 spec.md §6 中 transport.get_peer_state 的契约
type PeerSelector interface {
	// GetPeerState 选择一个广告了指定能力的、已建立会话的对端
	GetPeerState(capability types.Capability) (PeerState, bool)
}

// RouterInfo 是本地 netDB 中一个路由器描述条目的可达性相关字段
type RouterInfo struct {
	NodeID   types.NodeID
	IP       []byte
	Port     int
	IntroKey types.IntroKey
}

// NetDB 是 spec.md §6 中 netdb.lookup_local 的契约
type NetDB interface {
	// LookupLocal 在本地缓存中查找路由器描述，不发起网络查询
	LookupLocal(nodeID types.NodeID) (RouterInfo, bool)
}

// CancelFunc 取消一次已调度的定时事件；对已触发或已取消的事件调用是安全的空操作
type CancelFunc func()

// TimerService 是 spec.md §6 中 timer.schedule 的契约
//
// 实现必须保证所有到期回调在单一执行序列上依次触发（spec.md §5「单线程调度」）。
type TimerService interface {
	// Schedule 在 delay 之后单次触发 fn
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// Clock 是 spec.md §6 中 clock.now() 的契约，允许测试注入可控时钟
type Clock interface {
	Now() time.Time
}

// RandomSource 是 spec.md §6 中 random.next_long(max) 的契约，特化为 32 位 nonce 范围
type RandomSource interface {
	// Uint32 返回 [0, 2^32-1] 上均匀分布的随机数
	Uint32() uint32
}
