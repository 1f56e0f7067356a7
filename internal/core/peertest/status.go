package peertest

import (
	"time"

	"github.com/google/uuid"

	"github.com/anonoverlay/peertest/pkg/types"
)

// Status 是一次 Alice 角色测试的终态分类（spec.md §4.1「Completion
// classification」）
type Status int

const (
	// StatusReachableOK 表示 Bob 与 Charlie 观察到的外部端口一致：完全可达
	StatusReachableOK Status = iota
	// StatusReachableDifferent 表示两次观察到的端口不同（对称型 NAT）
	StatusReachableDifferent
	// StatusCharlieDied 表示 Charlie 只回复了一次，第二次直连未获回应
	StatusCharlieDied
	// StatusRejectUnsolicited 表示 Bob 回复了但从未招募 Charlie
	StatusRejectUnsolicited
	// StatusBobUnresponsive 表示 Bob 在整个测试窗口内未曾回复
	StatusBobUnresponsive
)

// String 实现 fmt.Stringer
func (s Status) String() string {
	switch s {
	case StatusReachableOK:
		return "REACHABLE_OK"
	case StatusReachableDifferent:
		return "REACHABLE_DIFFERENT"
	case StatusCharlieDied:
		return "CHARLIE_DIED"
	case StatusRejectUnsolicited:
		return "REJECT_UNSOLICITED"
	case StatusBobUnresponsive:
		return "BOB_UNRESPONSIVE"
	default:
		return "UNKNOWN"
	}
}

// Outcome 是一次已完成测试上报给调用方的结果
//
// TestID 只用于日志关联，从不上线；spec.md §9 的 Open Question 要求暴露一个
// "typed callback or event"，Outcome 与 OutcomeFunc 就是这里给出的答案。
type Outcome struct {
	TestID      uuid.UUID
	Nonce       types.Nonce
	Status      Status
	BobPort     uint16
	CharliePort uint16
	Elapsed     time.Duration
}

// OutcomeFunc 在每次测试完成时被调用一次
type OutcomeFunc func(Outcome)
