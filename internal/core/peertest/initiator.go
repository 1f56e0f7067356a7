// Package peertest 实现对端可达性测试状态机：TestInitiator（Alice 角色）、
// TestResponder（Bob/Charlie 角色分派）与它们共用的 Charlie-nonce 环。
//
// 语义完全对应 spec.md §4.1/§4.2 及 I2P 原始实现
// （net.i2p.router.transport.udp.PeerTestManager），字段命名改为 Go 习惯写法。
package peertest

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anonoverlay/peertest/internal/core/peertest/packet"
	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

var log = logger.Logger("peertest")

// noCtx 是发往 Transport.Send 的背景上下文：本状态机自身的生命周期由
// TimerService 的调度节拍控制，单次发送不需要可取消的上下文。
var noCtx = context.Background()

// Initiator 驱动本地节点作为 Alice 的对端可达性测试（spec.md §4.1）
//
// spec.md §9「Single-in-flight initiator」：设计上只允许同时存在一个 Alice
// 角色测试，所有状态字段是平坦的，不按 nonce 建索引。
type Initiator struct {
	transport interfaces.Transport
	timer     interfaces.TimerService
	clock     interfaces.Clock
	random    interfaces.RandomSource
	onOutcome OutcomeFunc
	cfg       Config
	metrics   *metrics

	mu     sync.Mutex
	active bool
	testID uuid.UUID
	nonce  types.Nonce

	bobEndpoint types.RemoteHostId
	bobIntroKey types.IntroKey

	charlieEndpoint types.RemoteHostId
	charlieIntroKey types.IntroKey

	testBegin time.Time
	lastSend  time.Time

	bobReplyTimeSet bool
	bobReplyTime    time.Time
	bobReplyPortSet bool
	bobReplyPort    uint16

	charlieReplyTimeSet bool
	charlieReplyTime    time.Time
	charlieReplyPortSet bool
	charlieReplyPort    uint16
}

// NewInitiator 构建一个 TestInitiator
func NewInitiator(
	transport interfaces.Transport,
	timer interfaces.TimerService,
	clk interfaces.Clock,
	random interfaces.RandomSource,
	onOutcome OutcomeFunc,
	cfg Config,
	reg prometheus.Registerer,
) *Initiator {
	cfg.Validate()
	return &Initiator{
		transport: transport,
		timer:     timer,
		clock:     clk,
		random:    random,
		onOutcome: onOutcome,
		cfg:       cfg,
		metrics:   newMetrics(reg),
	}
}

// RunTest 发起一次对端可达性测试（spec.md §4.1「run_test」）
//
// 前置条件：当前没有在途测试，否则返回 ErrBusy 且不产生任何副作用
// （spec.md §7「Busy initiator」）。
func (in *Initiator) RunTest(bobIP net.IP, bobPort int, bobIntroKey types.IntroKey) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.active {
		return ErrBusy
	}

	now := in.clock.Now()

	in.active = true
	in.testID = uuid.New()
	in.nonce = types.Nonce(in.random.Uint32())
	in.bobEndpoint = types.RemoteHostId{IP: bobIP, Port: bobPort}
	in.bobIntroKey = bobIntroKey
	in.charlieEndpoint = types.RemoteHostId{}
	in.charlieIntroKey = types.IntroKey{}
	in.testBegin = now
	in.lastSend = now
	in.bobReplyTimeSet = false
	in.bobReplyPortSet = false
	in.charlieReplyTimeSet = false
	in.charlieReplyPortSet = false

	log.Info("test started", "testID", in.testID, "nonce", in.nonce, "bob", in.bobEndpoint)

	in.sendToBobLocked()
	in.timer.Schedule(in.cfg.RetransmitInterval, in.continueTest)

	return nil
}

// hasNonce 报告 nonce 是否是当前在途测试的 nonce（供 Responder 判定是否应当
// 把入站数据报转发到 receiveReply 而不是走角色分派）
func (in *Initiator) hasNonce(nonce types.Nonce) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.active && in.nonce == nonce
}

// continueTest 是重传节拍的执行体（spec.md §4.1「Retransmission ladder」）
func (in *Initiator) continueTest() {
	in.mu.Lock()

	if !in.active {
		// 测试已经完成，这次节拍是空操作
		in.mu.Unlock()
		return
	}

	now := in.clock.Now()
	if now.After(in.testBegin.Add(in.cfg.TestTimeout)) {
		outcome := in.completeLocked()
		in.mu.Unlock()
		in.deliver(outcome)
		return
	}

	switch {
	case !in.bobReplyTimeSet:
		in.sendToBobLocked()
	case !in.charlieReplyTimeSet:
		// 已收到 Bob 回复但 Charlie 还没来信，再戳一次 Bob 让它继续招募 Charlie
		in.sendToBobLocked()
	case !in.charlieReplyPortSet:
		in.sendToCharlieLocked()
	}
	in.lastSend = now

	in.timer.Schedule(in.cfg.RetransmitInterval, in.continueTest)
	in.mu.Unlock()
}

// receiveReply 处理一条 nonce 与当前在途测试匹配的入站数据报
// （spec.md §4.1「Reply correlation」）
func (in *Initiator) receiveReply(from types.RemoteHostId, payload packet.Payload) {
	in.mu.Lock()

	if !in.active || payload.Nonce != in.nonce {
		in.mu.Unlock()
		return
	}

	now := in.clock.Now()

	if from.Normalize().IP.Equal(in.bobEndpoint.Normalize().IP) {
		in.bobReplyTimeSet = true
		in.bobReplyTime = now
		in.bobReplyPortSet = true
		in.bobReplyPort = payload.Port
		in.mu.Unlock()
		return
	}

	// 发送方不是 Bob，必然是 Charlie
	if !in.charlieReplyTimeSet {
		in.charlieReplyTimeSet = true
		in.charlieReplyTime = now
		in.charlieEndpoint = from
		in.charlieIntroKey = payload.IntroKey
		in.sendToCharlieLocked()
		in.lastSend = now
		in.mu.Unlock()
		return
	}

	// 这是第二条 Charlie 消息：测试完成
	in.charlieReplyPortSet = true
	in.charlieReplyPort = payload.Port
	outcome := in.completeLocked()
	in.mu.Unlock()
	in.deliver(outcome)
}

// completeLocked 对在途测试分类终态、重置所有 Alice 字段，调用方必须持有 mu
func (in *Initiator) completeLocked() Outcome {
	var status Status
	switch {
	case in.charlieReplyPortSet && in.bobReplyPort == in.charlieReplyPort:
		status = StatusReachableOK
	case in.charlieReplyPortSet:
		status = StatusReachableDifferent
	case in.charlieReplyTimeSet:
		status = StatusCharlieDied
	case in.bobReplyTimeSet:
		status = StatusRejectUnsolicited
	default:
		status = StatusBobUnresponsive
	}

	outcome := Outcome{
		TestID:      in.testID,
		Nonce:       in.nonce,
		Status:      status,
		BobPort:     in.bobReplyPort,
		CharliePort: in.charlieReplyPort,
		Elapsed:     in.clock.Now().Sub(in.testBegin),
	}

	in.active = false
	in.nonce = 0
	in.bobEndpoint = types.RemoteHostId{}
	in.bobIntroKey = types.IntroKey{}
	in.charlieEndpoint = types.RemoteHostId{}
	in.charlieIntroKey = types.IntroKey{}
	in.testBegin = time.Time{}
	in.lastSend = time.Time{}
	in.bobReplyTimeSet = false
	in.bobReplyPortSet = false
	in.charlieReplyTimeSet = false
	in.charlieReplyPortSet = false

	return outcome
}

func (in *Initiator) deliver(outcome Outcome) {
	log.Info("test completed", "testID", outcome.TestID, "nonce", outcome.Nonce,
		"status", outcome.Status, "elapsed", outcome.Elapsed)
	in.metrics.observe(outcome.Status)
	if in.onOutcome != nil {
		in.onOutcome(outcome)
	}
}

// sendToBobLocked 重新/首次发送 TestFromAlice 到 Bob，调用方必须持有 mu
func (in *Initiator) sendToBobLocked() {
	pkt, err := packet.BuildFromAlice(in.bobEndpoint, in.bobIntroKey, in.transport.IntroKey(), in.nonce)
	if err != nil {
		log.Warn("build TestFromAlice(bob) failed", "err", err)
		return
	}
	if err := in.transport.Send(noCtx, pkt); err != nil {
		log.Debug("send TestFromAlice to bob failed", "err", err)
	}
}

// sendToCharlieLocked 直接向 Charlie 发送 TestFromAlice，调用方必须持有 mu
//
// spec.md §7「Invalid Charlie address parsing」：若 charlieEndpoint 的地址
// 无法编码，记录日志并跳过这次直连发送；测试仍会通过超时完成。
func (in *Initiator) sendToCharlieLocked() {
	pkt, err := packet.BuildFromAlice(in.charlieEndpoint, in.charlieIntroKey, in.transport.IntroKey(), in.nonce)
	if err != nil {
		log.Warn("invalid charlie address, skipping direct send", "charlie", in.charlieEndpoint, "err", err)
		return
	}
	if err := in.transport.Send(noCtx, pkt); err != nil {
		log.Debug("send TestFromAlice to charlie failed", "err", err)
	}
}
