package peertest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anonoverlay/peertest/internal/core/peertest/packet"
	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"

	"go.uber.org/multierr"
)

var responderLog = logger.Logger("peertest.responder")

// Responder 分派入站测试数据报到本地节点可能扮演的三种角色：Bob 被 Alice
// 直接测试（spec.md §4.2b）、Charlie 被 Bob 招募（spec.md §4.2a）、Charlie
// 被 Alice 直接联系（spec.md §4.2c）
type Responder struct {
	transport interfaces.Transport
	selector  interfaces.PeerSelector
	netdb     interfaces.NetDB
	timer     interfaces.TimerService
	clock     interfaces.Clock
	cfg       Config

	ring     *charlieRing
	metrics  *responderMetrics
	initiator *Initiator
}

// NewResponder 构建一个 TestResponder
func NewResponder(
	transport interfaces.Transport,
	selector interfaces.PeerSelector,
	netdb interfaces.NetDB,
	timer interfaces.TimerService,
	clk interfaces.Clock,
	initiator *Initiator,
	cfg Config,
	reg prometheus.Registerer,
) *Responder {
	cfg.Validate()
	return &Responder{
		transport: transport,
		selector:  selector,
		netdb:     netdb,
		timer:     timer,
		clock:     clk,
		cfg:       cfg,
		ring:      newCharlieRing(),
		metrics:   newResponderMetrics(reg),
		initiator: initiator,
	}
}

// ReceiveTest 是入站测试数据报的唯一入口（spec.md §4「Message dispatch」）
//
// 除去已被 Initiator 消费的回复外，剩下两种负载形状对应结构化的角色判定
// （no explicit role tag on the wire）：
//  1. payload 携带了非空的 (ip,port)（ip_size>0）且该地址（规范化后）与
//     发送方地址不同：这只可能是 Bob 转发给 Charlie 的 TestToCharlie——
//     负载里嵌的是 Alice 的地址，发送方是 Bob——本节点是被招募的 Charlie。
//     spec.md §4.2/§9 要求这一比较按字节精确进行（IPv4-mapped IPv6 先
//     规范化），不能只看 payload 端点是否非零。
//  2. payload 未携带地址，或携带的地址（规范化后）与发送方相同
//     （TestFromAlice 的形状）：既可能是 Alice 对 Bob 的初次接触，也可能
//     是 Alice 对已招募 Charlie 的直连确认探测，用 Charlie 环的 nonce
//     成员关系区分两者。
func (r *Responder) ReceiveTest(from types.RemoteHostId, raw []byte) {
	payload, err := packet.Decode(raw)
	if err != nil {
		responderLog.Debug("dropping malformed test payload", "from", from, "err", err)
		return
	}

	if r.initiator != nil && r.initiator.hasNonce(payload.Nonce) {
		r.initiator.receiveReply(from, payload)
		return
	}

	payloadEndpoint := types.RemoteHostId{IP: payload.IP, Port: int(payload.Port)}
	if !payloadEndpoint.IsZero() && !payloadEndpoint.Equal(from) {
		r.actAsCharlieRecruitedByBob(from, payloadEndpoint, payload)
		return
	}

	if r.ring.Contains(payload.Nonce) {
		r.actAsCharlieForAlice(from, payload)
		return
	}
	r.actAsBobForAlice(from, payload)
}

// actAsBobForAlice 处理 spec.md §4.2b：本节点被 Alice 选为 Bob
//
// Bob 挑选一个广告了 testing 能力的已建立会话对端作为 Charlie，把 Alice 的
// (ip,port,introKey) 转发给它（TestToCharlie），同时把 Charlie 的 Intro Key
// 回复给 Alice（TestToAlice）。若找不到可用 Charlie，按 spec.md §7 直接
// 丢弃，不回复 Alice。
func (r *Responder) actAsBobForAlice(aliceFrom types.RemoteHostId, payload packet.Payload) {
	charlie, ok := r.selector.GetPeerState(types.CapabilityTesting)
	if !ok {
		responderLog.Debug("no usable charlie, dropping test from alice", "alice", aliceFrom, "nonce", payload.Nonce)
		r.metrics.observe("bob_no_charlie")
		return
	}

	toCharlie, err := packet.BuildToCharlie(charlie.Endpoint, charlie.CipherKey, charlie.MACKey, aliceFrom, payload.IntroKey, payload.Nonce)
	if err != nil {
		responderLog.Warn("failed to build TestToCharlie", "err", err)
		return
	}

	toAlice, err := packet.BuildToAlice(aliceFrom, payload.IntroKey, r.charlieIntroKey(charlie), payload.Nonce)
	if err != nil {
		responderLog.Warn("failed to build TestToAlice(bob)", "err", err)
		return
	}

	sendErr := multierr.Combine(
		r.transport.Send(noCtx, toCharlie),
		r.transport.Send(noCtx, toAlice),
	)
	if sendErr != nil {
		responderLog.Debug("bob dual-send encountered errors", "err", sendErr)
	}
	r.metrics.observe("bob_forwarded")
}

// charlieIntroKey 返回 Bob 转发给 Alice 的 TestToAlice 负载中应携带的"第三方"
// Intro Key：Bob 自己挑选出的 Charlie 的 Intro Key。PeerState 本身只携带会话
// 密钥，Intro Key 需要从本地 netDB 按 Charlie 的 NodeID 查询；查不到时退化为
// 本地 Intro Key。本模块的 Initiator 不读取 Bob 回复里的 Intro Key，而是从
// Charlie 首条回复的负载中取得 Charlie 的 Intro Key，因此这一退化不改变
// Alice 侧的完成分类。
func (r *Responder) charlieIntroKey(charlie interfaces.PeerState) types.IntroKey {
	if info, ok := r.netdb.LookupLocal(charlie.RemotePeer); ok {
		return info.IntroKey
	}
	return r.transport.IntroKey()
}

// actAsCharlieRecruitedByBob 处理 spec.md §4.2a：本节点被 Bob 招募为
// Charlie，收到 Bob 转发的 Alice 信息，直接向 Alice 发送 TestToAlice，并把
// nonce 记入环以便后续 Alice 的直连测试能识别出这是同一次测试。
//
// spec.md §4.2a/§7：payload_ip 非空且 payload_port > 0 是进入本角色前必须
// 成立的前提，否则视为畸形数据报，记警告并丢弃，绝不写入环或安排驱逐
// （对应原始 Java PeerTestManager.receiveFromBobAsCharlie 里 fromPort<=0
// 时的提前 return）。
func (r *Responder) actAsCharlieRecruitedByBob(bobFrom, aliceEndpoint types.RemoteHostId, payload packet.Payload) {
	if aliceEndpoint.IP == nil || len(aliceEndpoint.IP) == 0 || aliceEndpoint.Port <= 0 {
		responderLog.Warn("dropping malformed TestToCharlie: invalid alice endpoint", "bob", bobFrom, "alice", aliceEndpoint, "nonce", payload.Nonce)
		r.metrics.observe("charlie_recruited_malformed")
		return
	}

	slot := r.ring.Insert(payload.Nonce)
	r.timer.Schedule(r.cfg.CharlieLifetime, func() {
		r.ring.Evict(payload.Nonce, slot)
	})

	toAlice, err := packet.BuildToAlice(aliceEndpoint, payload.IntroKey, r.transport.IntroKey(), payload.Nonce)
	if err != nil {
		responderLog.Warn("failed to build TestToAlice(charlie-via-bob)", "err", err)
		return
	}
	if err := r.transport.Send(noCtx, toAlice); err != nil {
		responderLog.Debug("charlie(recruited) send to alice failed", "err", err)
	}
	r.metrics.observe("charlie_recruited")
}

// actAsCharlieForAlice 处理 spec.md §4.2c：本节点是被 Alice 直接联系的
// Charlie（Alice 在收到 Bob 的介绍后直连做确认探测）；调用方已经确认 nonce
// 命中了 Charlie 环，说明本节点确实是先前被 Bob 招募过的那个 Charlie。
func (r *Responder) actAsCharlieForAlice(from types.RemoteHostId, payload packet.Payload) {
	toAlice, err := packet.BuildToAlice(from, payload.IntroKey, r.transport.IntroKey(), payload.Nonce)
	if err != nil {
		responderLog.Warn("failed to build TestToAlice(charlie-direct)", "err", err)
		return
	}
	if err := r.transport.Send(noCtx, toAlice); err != nil {
		responderLog.Debug("charlie(direct) send to alice failed", "err", err)
	}
	r.metrics.observe("charlie_direct")
}
