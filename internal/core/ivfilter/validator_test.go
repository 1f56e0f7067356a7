package ivfilter

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func testKey(b byte) []byte {
	k := make([]byte, KeySize)
	for i := range k {
		k[i] = b
	}
	return k
}

// TestValidator_FirstAcceptsSecondRejects 覆盖 spec.md §8「For any IV x, two
// calls receive_iv(x) within the half-life window: the first returns true,
// the second returns false.」
func TestValidator_FirstAcceptsSecondRejects(t *testing.T) {
	mock := clock.NewMock()
	v := New(DefaultBloomConfig(), mock, nil)
	defer v.Stop()

	iv := testKey(0x42)

	if ok := v.ReceiveIV(iv); !ok {
		t.Fatalf("first ReceiveIV should accept, got reject")
	}
	if ok := v.ReceiveIV(iv); ok {
		t.Fatalf("second ReceiveIV should reject, got accept")
	}
}

// TestValidator_DuplicateCounter 覆盖 S6：重复计数器在一次重复后应为 1
func TestValidator_DuplicateCounter(t *testing.T) {
	mock := clock.NewMock()
	v := New(DefaultBloomConfig(), mock, nil)
	defer v.Stop()

	iv := testKey(0x10)
	v.ReceiveIV(iv)
	v.ReceiveIV(iv)

	got := testCounterValue(t, v.metrics.duplicateIV)
	if got != 1 {
		t.Fatalf("duplicateIV counter = %v, want 1", got)
	}
}

// TestValidator_DistinctKeysBothAccepted 验证不同的 key 互不影响
func TestValidator_DistinctKeysBothAccepted(t *testing.T) {
	mock := clock.NewMock()
	v := New(DefaultBloomConfig(), mock, nil)
	defer v.Stop()

	if !v.ReceiveIV(testKey(0x01)) {
		t.Fatalf("key 0x01 should be accepted")
	}
	if !v.ReceiveIV(testKey(0x02)) {
		t.Fatalf("key 0x02 should be accepted")
	}
}

// TestValidator_ForgottenAfterTwoHalfLives 覆盖 S6 的衰减后半段：一次接受后，
// 经过两个半衰期的世代轮换，同一 IV 应再次被接受。
func TestValidator_ForgottenAfterTwoHalfLives(t *testing.T) {
	mock := clock.NewMock()
	cfg := DefaultBloomConfig()
	cfg.HalfLife = time.Minute
	v := New(cfg, mock, nil)
	defer v.Stop()

	iv := testKey(0x7f)
	if !v.ReceiveIV(iv) {
		t.Fatalf("first ReceiveIV should accept")
	}

	// 前进两个半衰期：current -> previous -> 被彻底清出两代窗口
	mock.Add(cfg.HalfLife)
	mock.Add(cfg.HalfLife)
	// 让 rotateLoop 的 goroutine 有机会处理两次 tick
	time.Sleep(10 * time.Millisecond)

	if !v.ReceiveIV(iv) {
		t.Fatalf("ReceiveIV after 2*halflife should accept again (entry forgotten)")
	}
}
