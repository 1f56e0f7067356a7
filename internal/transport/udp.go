// Package transport 提供 interfaces.Transport 的默认实现：一个裸 UDP 收发器。
//
// spec.md §1 明确把加密会话建立列为子系统外部的协作方；本包因此只负责把
// packet.Payload 字节送上线，不做信封加密——真实部署会在这里插入会话层，
// 对本子系统而言 EnvelopeKey/EnvelopeKeyKind 只是需要透传给下层的元数据。
package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

var log = logger.Logger("transport")

// ReceiveFunc 处理一个已解封的入站数据报，通常是 Responder.ReceiveTest
type ReceiveFunc func(from types.RemoteHostId, payload []byte)

// UDPTransport 是 interfaces.Transport 的默认实现
type UDPTransport struct {
	conn     *net.UDPConn
	introKey types.IntroKey
	onRecv   ReceiveFunc

	closed chan struct{}
}

// Listen 在 laddr 上打开一个 UDP 监听套接字
func Listen(laddr string, introKey types.IntroKey, onRecv ReceiveFunc) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", laddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", laddr, err)
	}

	t := &UDPTransport{
		conn:     conn,
		introKey: introKey,
		onRecv:   onRecv,
		closed:   make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// Send 实现 interfaces.Transport
//
// 数据报最大长度受限于 spec.md §6 负载布局（最长 1 + 16 + 2 + 32 + 4 = 55
// 字节），远小于 UDP MTU，因此不需要分片。
func (t *UDPTransport) Send(ctx context.Context, pkt interfaces.OutboundPacket) error {
	dest := &net.UDPAddr{IP: pkt.Dest.IP, Port: pkt.Dest.Port}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := t.conn.WriteToUDP(pkt.Payload, dest)
	if err != nil {
		return fmt.Errorf("transport: write to %s: %w", dest, err)
	}
	return nil
}

// IntroKey 实现 interfaces.Transport
func (t *UDPTransport) IntroKey() types.IntroKey {
	return t.introKey
}

// LocalAddr 返回本地监听地址
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close 关闭底层套接字，停止读取循环
func (t *UDPTransport) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}
	return t.conn.Close()
}

func (t *UDPTransport) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				log.Debug("udp read error", "err", err)
				continue
			}
		}

		host := types.RemoteHostId{IP: from.IP, Port: from.Port}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		if t.onRecv != nil {
			t.onRecv(host, payload)
		}
	}
}
