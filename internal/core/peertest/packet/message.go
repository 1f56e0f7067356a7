// Package packet 实现对端可达性测试四种线上消息形态的编解码
//
// 四种消息（TestFromAlice、两种 TestToAlice、TestToCharlie）共享同一个负载
// 布局（spec.md §6），仅信封加密密钥与负载中携带的 (ip,port,intro_key) 归属
// 不同；编解码因此只需一套 Payload 结构体加一层按场景取材/校验的构建函数。
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/anonoverlay/peertest/pkg/types"
)

// 合法的 ip_size 取值（spec.md §6 / §8「Boundary behaviors」）
const (
	ipSizeAbsent = 0
	ipSizeV4     = 4
	ipSizeV6     = 16
)

var (
	// ErrMalformedPayload 表示负载字节不符合 spec.md §6 的布局
	ErrMalformedPayload = errors.New("peertest: malformed payload")
	// ErrInvalidIPSize 表示 ip_size 不是 {0,4,16} 之一
	ErrInvalidIPSize = errors.New("peertest: invalid ip_size")
)

// Payload 是四种消息共享的负载结构（spec.md §6 第 1-5 字段）
type Payload struct {
	// IP 是携带的对端外部可见地址；nil 表示 ip_size 为 0（缺省）
	IP net.IP
	// Port 是携带的端口号
	Port uint16
	// IntroKey 是"第三方" Intro Key：Bob 对 Charlie 说话时是 Alice 的，
	// Bob 回复 Alice 时是 Charlie 的，等等（spec.md §6 表格）
	IntroKey types.IntroKey
	// Nonce 标识该测试实例，贯穿所有四条消息腿
	Nonce types.Nonce
}

// minPayloadLen 是 ip_size 字段(1) + port(2) + intro_key(32) + nonce(4)，ip 本身可变长
const minPayloadLen = 1 + 2 + types.IntroKeySize + 4

// Encode 按 spec.md §6 的字节布局序列化负载
func (p Payload) Encode() ([]byte, error) {
	var ipBytes []byte
	switch {
	case p.IP == nil:
		ipBytes = nil
	case p.IP.To4() != nil:
		ipBytes = p.IP.To4()
	case len(p.IP) == net.IPv6len:
		ipBytes = p.IP.To16()
	default:
		return nil, fmt.Errorf("%w: unsupported IP length %d", ErrInvalidIPSize, len(p.IP))
	}

	buf := make([]byte, 1+len(ipBytes)+2+types.IntroKeySize+4)
	i := 0
	buf[i] = byte(len(ipBytes))
	i++
	i += copy(buf[i:], ipBytes)
	binary.BigEndian.PutUint16(buf[i:], p.Port)
	i += 2
	i += copy(buf[i:], p.IntroKey[:])
	binary.BigEndian.PutUint32(buf[i:], uint32(p.Nonce))

	return buf, nil
}

// Decode 解析一段负载字节，严格校验 spec.md §8 列出的边界条件
func Decode(data []byte) (Payload, error) {
	if len(data) < 1 {
		return Payload{}, ErrMalformedPayload
	}

	ipSize := int(data[0])
	switch ipSize {
	case ipSizeAbsent, ipSizeV4, ipSizeV6:
	default:
		return Payload{}, fmt.Errorf("%w: %d", ErrInvalidIPSize, ipSize)
	}

	need := 1 + ipSize + 2 + types.IntroKeySize + 4
	if len(data) < need {
		return Payload{}, ErrMalformedPayload
	}

	i := 1
	var ip net.IP
	if ipSize > 0 {
		ip = make(net.IP, ipSize)
		copy(ip, data[i:i+ipSize])
	}
	i += ipSize

	port := binary.BigEndian.Uint16(data[i : i+2])
	i += 2

	var introKey types.IntroKey
	copy(introKey[:], data[i:i+types.IntroKeySize])
	i += types.IntroKeySize

	nonce := binary.BigEndian.Uint32(data[i : i+4])

	return Payload{
		IP:       ip,
		Port:     port,
		IntroKey: introKey,
		Nonce:    types.Nonce(nonce),
	}, nil
}
