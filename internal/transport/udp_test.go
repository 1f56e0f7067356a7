package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

// TestMain 用 goleak 确认 UDPTransport.Close 真正终止了 readLoop goroutine，
// 不会在测试间累积泄漏。
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestUDPTransport_SendAndReceive(t *testing.T) {
	received := make(chan types.RemoteHostId, 1)
	server, err := Listen("127.0.0.1:0", types.IntroKey{}, func(from types.RemoteHostId, payload []byte) {
		if len(payload) != 3 {
			t.Errorf("unexpected payload length %d", len(payload))
		}
		received <- from
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()

	client, err := Listen("127.0.0.1:0", types.IntroKey{}, nil)
	if err != nil {
		t.Fatalf("Listen(client): %v", err)
	}
	defer client.Close()

	serverAddr := server.LocalAddr().(*net.UDPAddr)
	dest := types.RemoteHostId{IP: serverAddr.IP, Port: serverAddr.Port}

	err = client.Send(context.Background(), interfaces.OutboundPacket{
		Dest:    dest,
		Payload: []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server to receive datagram")
	}
}

func TestUDPTransport_IntroKey(t *testing.T) {
	key := types.IntroKey{}
	key[0] = 0xAB
	tr, err := Listen("127.0.0.1:0", key, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer tr.Close()

	if got := tr.IntroKey(); got != key {
		t.Fatalf("IntroKey mismatch: got %v want %v", got, key)
	}
}

func TestUDPTransport_SendRespectsContextCancellation(t *testing.T) {
	tr, err := Listen("127.0.0.1:0", types.IntroKey{}, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = tr.Send(ctx, interfaces.OutboundPacket{
		Dest:    types.RemoteHostId{IP: tr.LocalAddr().(*net.UDPAddr).IP, Port: 1},
		Payload: []byte{1},
	})
	if err == nil {
		t.Fatal("expected cancelled context to produce an error")
	}
}
