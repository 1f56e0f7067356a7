package peertest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/anonoverlay/peertest/internal/core/peertest/packet"
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

func testPayload(introKey types.IntroKey, port uint16, nonce types.Nonce) packet.Payload {
	return packet.Payload{
		IntroKey: introKey,
		Port:     port,
		Nonce:    nonce,
	}
}

// fakeTransport 记录所有发出的数据报，供测试断言
type fakeTransport struct {
	mu       sync.Mutex
	introKey types.IntroKey
	sent     []interfaces.OutboundPacket
}

func (f *fakeTransport) Send(_ context.Context, pkt interfaces.OutboundPacket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pkt)
	return nil
}

func (f *fakeTransport) IntroKey() types.IntroKey { return f.introKey }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeTimerService 用被测系统共享的 mock 时钟驱动定时器，与 timersvc.Service
// 的实现方式一致，但避免了包间循环依赖，方便测试直接引用私有字段。
type fakeTimerService struct {
	clk *clock.Mock
}

func (f *fakeTimerService) Schedule(delay time.Duration, fn func()) interfaces.CancelFunc {
	timer := f.clk.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}

type fixedRandom struct{ n uint32 }

func (f fixedRandom) Uint32() uint32 { return f.n }

func newTestInitiator(t *testing.T, mock *clock.Mock) (*Initiator, *fakeTransport, chan Outcome) {
	t.Helper()
	tr := &fakeTransport{introKey: mustIntroKey(0xAA)}
	timer := &fakeTimerService{clk: mock}
	outcomes := make(chan Outcome, 4)

	in := NewInitiator(tr, timer, mock, fixedRandom{n: 12345}, func(o Outcome) {
		outcomes <- o
	}, DefaultConfig(), nil)

	return in, tr, outcomes
}

func mustIntroKey(b byte) types.IntroKey {
	var k types.IntroKey
	for i := range k {
		k[i] = b
	}
	return k
}

func waitOutcome(t *testing.T, ch chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestInitiator_RunTest_BusyWhileInFlight(t *testing.T) {
	mock := clock.NewMock()
	in, _, _ := newTestInitiator(t, mock)

	bobIP := net.ParseIP("203.0.113.1")
	require := func(err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require(in.RunTest(bobIP, 4000, mustIntroKey(1)))

	if err := in.RunTest(bobIP, 4000, mustIntroKey(1)); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestInitiator_ReachableOK(t *testing.T) {
	mock := clock.NewMock()
	in, tr, outcomes := newTestInitiator(t, mock)

	bob := types.RemoteHostId{IP: net.ParseIP("203.0.113.1"), Port: 4000}
	charlie := types.RemoteHostId{IP: net.ParseIP("203.0.113.2"), Port: 4001}

	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if got := tr.sentCount(); got != 1 {
		t.Fatalf("expected 1 packet sent to bob, got %d", got)
	}

	// Bob replies with the external port it observed for Alice.
	in.receiveReply(bob, testPayload(mustIntroKey(2), 5555, in.nonce))

	// Charlie's first message: introduces itself, initiator should send a direct probe.
	in.receiveReply(charlie, testPayload(mustIntroKey(3), 0, in.nonce))
	if got := tr.sentCount(); got != 2 {
		t.Fatalf("expected direct probe to charlie, got %d packets", got)
	}

	// Charlie's second message: reports the port it observed, matching Bob's.
	in.receiveReply(charlie, testPayload(mustIntroKey(3), 5555, in.nonce))

	outcome := waitOutcome(t, outcomes)
	if outcome.Status != StatusReachableOK {
		t.Fatalf("expected StatusReachableOK, got %v", outcome.Status)
	}
	if outcome.BobPort != 5555 || outcome.CharliePort != 5555 {
		t.Fatalf("unexpected ports: bob=%d charlie=%d", outcome.BobPort, outcome.CharliePort)
	}
}

func TestInitiator_ReachableDifferent(t *testing.T) {
	mock := clock.NewMock()
	in, _, outcomes := newTestInitiator(t, mock)

	bob := types.RemoteHostId{IP: net.ParseIP("203.0.113.1"), Port: 4000}
	charlie := types.RemoteHostId{IP: net.ParseIP("203.0.113.2"), Port: 4001}

	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("RunTest: %v", err)
	}

	in.receiveReply(bob, testPayload(mustIntroKey(2), 5555, in.nonce))
	in.receiveReply(charlie, testPayload(mustIntroKey(3), 0, in.nonce))
	in.receiveReply(charlie, testPayload(mustIntroKey(3), 6666, in.nonce))

	outcome := waitOutcome(t, outcomes)
	if outcome.Status != StatusReachableDifferent {
		t.Fatalf("expected StatusReachableDifferent, got %v", outcome.Status)
	}
}

func TestInitiator_CharlieDiedOnTimeout(t *testing.T) {
	mock := clock.NewMock()
	in, _, outcomes := newTestInitiator(t, mock)

	bob := types.RemoteHostId{IP: net.ParseIP("203.0.113.1"), Port: 4000}
	charlie := types.RemoteHostId{IP: net.ParseIP("203.0.113.2"), Port: 4001}

	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	in.receiveReply(bob, testPayload(mustIntroKey(2), 5555, in.nonce))
	in.receiveReply(charlie, testPayload(mustIntroKey(3), 0, in.nonce))

	mock.Add(DefaultConfig().TestTimeout + DefaultConfig().RetransmitInterval)
	time.Sleep(20 * time.Millisecond)

	outcome := waitOutcome(t, outcomes)
	if outcome.Status != StatusCharlieDied {
		t.Fatalf("expected StatusCharlieDied, got %v", outcome.Status)
	}
}

func TestInitiator_BobUnresponsiveOnTimeout(t *testing.T) {
	mock := clock.NewMock()
	in, _, outcomes := newTestInitiator(t, mock)

	bob := types.RemoteHostId{IP: net.ParseIP("203.0.113.1"), Port: 4000}
	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("RunTest: %v", err)
	}

	mock.Add(DefaultConfig().TestTimeout + DefaultConfig().RetransmitInterval)
	time.Sleep(20 * time.Millisecond)

	outcome := waitOutcome(t, outcomes)
	if outcome.Status != StatusBobUnresponsive {
		t.Fatalf("expected StatusBobUnresponsive, got %v", outcome.Status)
	}
}

func TestInitiator_AfterCompletionBecomesAvailable(t *testing.T) {
	mock := clock.NewMock()
	in, _, outcomes := newTestInitiator(t, mock)

	bob := types.RemoteHostId{IP: net.ParseIP("203.0.113.1"), Port: 4000}
	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	mock.Add(DefaultConfig().TestTimeout + DefaultConfig().RetransmitInterval)
	time.Sleep(20 * time.Millisecond)
	waitOutcome(t, outcomes)

	if in.active {
		t.Fatal("expected initiator to be inactive after completion")
	}
	if err := in.RunTest(bob.IP, bob.Port, mustIntroKey(1)); err != nil {
		t.Fatalf("expected RunTest to succeed after completion, got %v", err)
	}
}
