// Package types 定义对端可达性测试子系统共用的基础数据类型
//
// Nonce、IntroKey、RemoteHostId 的语义与线上协议一一对应，详见
// internal/core/peertest/packet 中的编解码实现。
package types

import (
	"fmt"
	"net"
)

// Nonce 是一次对端可达性测试的端到端标识，均匀分布于 [0, 2^32-1]
type Nonce uint32

// IntroKeySize 是 Intro Key 的字节长度
const IntroKeySize = 32

// IntroKey 是与某个 UDP 端点关联的 32 字节对称密钥
//
// 用于加密未经协商的对端测试数据报；其内容对本子系统不透明。
type IntroKey [IntroKeySize]byte

// RemoteHostId 标识一个 UDP 对端的 (IP, 端口)
//
// IP 在比较前必须被规范化（例如 IPv4-mapped IPv6 需先展开为 4 字节形式），
// 否则合法的回复可能被错误分类为角色不明的发送方。
type RemoteHostId struct {
	IP   net.IP
	Port int
}

// String 实现 fmt.Stringer
func (h RemoteHostId) String() string {
	return fmt.Sprintf("%s:%d", h.IP, h.Port)
}

// Normalize 返回规范化后的副本：IPv4-mapped IPv6 地址被折叠为 4 字节形式
func (h RemoteHostId) Normalize() RemoteHostId {
	ip := h.IP
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return RemoteHostId{IP: ip, Port: h.Port}
}

// Equal 在规范化后比较两个 RemoteHostId 是否一致
func (h RemoteHostId) Equal(other RemoteHostId) bool {
	a, b := h.Normalize(), other.Normalize()
	return a.IP.Equal(b.IP) && a.Port == b.Port
}

// IsZero 报告该值是否为零值（未设置）
func (h RemoteHostId) IsZero() bool {
	return h.IP == nil && h.Port == 0
}

// NodeID 标识 netDB 中的一个路由器描述条目
type NodeID string

// Capability 标记一个对端在其能力集中广告的功能
type Capability string

// CapabilityTesting 是 Bob 挑选 Charlie 时要求对端广告的能力
const CapabilityTesting Capability = "testing"
