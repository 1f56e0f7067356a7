package peertest

import "errors"

// 对端可达性测试相关错误（spec.md §7）
var (
	// ErrBusy 表示 RunTest 被调用时已有一个测试在途（spec.md §4.1 前置条件）
	ErrBusy = errors.New("peertest: initiator busy")

	// ErrMalformedPayload 表示收到的负载无法按 spec.md §6 的布局解析
	ErrMalformedPayload = errors.New("peertest: malformed payload")

	// ErrUnresolvableCharlie 表示 Bob 角色找不到可用的 Charlie（无广告
	// testing 能力的对端，或本地 netDB 未命中），spec.md §7「Unresolvable Charlie」
	ErrUnresolvableCharlie = errors.New("peertest: no usable charlie")
)
