package packet

import (
	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

// BuildFromAlice 构建 TestFromAlice 消息（spec.md §6 表格第一行）：
// 发给 Bob 或 Charlie，用接收方的 Intro Key 加密信封，负载内不携带地址信息
// （ip_size=0），只携带 Alice 自己的 Intro Key 与 nonce。
func BuildFromAlice(dest types.RemoteHostId, destIntroKey types.IntroKey, aliceIntroKey types.IntroKey, nonce types.Nonce) (interfaces.OutboundPacket, error) {
	payload := Payload{
		IP:       nil,
		Port:     0,
		IntroKey: aliceIntroKey,
		Nonce:    nonce,
	}
	data, err := payload.Encode()
	if err != nil {
		return interfaces.OutboundPacket{}, err
	}
	return interfaces.OutboundPacket{
		Dest:            dest,
		Payload:         data,
		EnvelopeKey:     destIntroKey[:],
		EnvelopeKeyKind: interfaces.EnvelopeIntroKey,
	}, nil
}

// BuildToAlice 构建 TestToAlice 消息（来自 Bob 或 Charlie，spec.md §6 表格
// 第二、三行）：发给 Alice，用 Alice 的 Intro Key 加密信封，负载携带 Alice 的
// (ip,port)（由发送方观察到的）与"第三方" Intro Key（Bob 发时是 Charlie 的，
// Charlie 发时是自己的）。
func BuildToAlice(aliceEndpoint types.RemoteHostId, aliceIntroKey types.IntroKey, thirdPartyIntroKey types.IntroKey, nonce types.Nonce) (interfaces.OutboundPacket, error) {
	payload := Payload{
		IP:       aliceEndpoint.IP,
		Port:     uint16(aliceEndpoint.Port),
		IntroKey: thirdPartyIntroKey,
		Nonce:    nonce,
	}
	data, err := payload.Encode()
	if err != nil {
		return interfaces.OutboundPacket{}, err
	}
	return interfaces.OutboundPacket{
		Dest:            aliceEndpoint,
		Payload:         data,
		EnvelopeKey:     aliceIntroKey[:],
		EnvelopeKeyKind: interfaces.EnvelopeIntroKey,
	}, nil
}

// BuildToCharlie 构建 TestToCharlie 消息（spec.md §6 表格第四行）：Bob 发给
// 已建立会话的 Charlie，用会话的 cipher+MAC 密钥加密信封（Charlie 是已认证
// 对端，不需要 Intro Key），负载携带 Alice 的 (ip,port,introKey)。
func BuildToCharlie(charlieEndpoint types.RemoteHostId, sessionCipherKey, sessionMACKey []byte, aliceEndpoint types.RemoteHostId, aliceIntroKey types.IntroKey, nonce types.Nonce) (interfaces.OutboundPacket, error) {
	payload := Payload{
		IP:       aliceEndpoint.IP,
		Port:     uint16(aliceEndpoint.Port),
		IntroKey: aliceIntroKey,
		Nonce:    nonce,
	}
	data, err := payload.Encode()
	if err != nil {
		return interfaces.OutboundPacket{}, err
	}
	envelopeKey := make([]byte, 0, len(sessionCipherKey)+len(sessionMACKey))
	envelopeKey = append(envelopeKey, sessionCipherKey...)
	envelopeKey = append(envelopeKey, sessionMACKey...)
	return interfaces.OutboundPacket{
		Dest:            charlieEndpoint,
		Payload:         data,
		EnvelopeKey:     envelopeKey,
		EnvelopeKeyKind: interfaces.EnvelopeSessionKeys,
	}, nil
}
