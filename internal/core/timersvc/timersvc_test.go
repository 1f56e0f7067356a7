package timersvc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestService_ScheduleFiresAfterDelay(t *testing.T) {
	mock := clock.NewMock()
	svc := New(mock)
	defer svc.Close()

	var fired atomic.Bool
	svc.Schedule(5*time.Second, func() { fired.Store(true) })

	mock.Add(4 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if fired.Load() {
		t.Fatal("fired before delay elapsed")
	}

	mock.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if !fired.Load() {
		t.Fatal("expected timer to fire after delay elapsed")
	}
}

func TestService_CancelPreventsFiring(t *testing.T) {
	mock := clock.NewMock()
	svc := New(mock)
	defer svc.Close()

	var fired atomic.Bool
	cancel := svc.Schedule(5*time.Second, func() { fired.Store(true) })
	cancel()

	mock.Add(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if fired.Load() {
		t.Fatal("expected cancelled timer not to fire")
	}
}

func TestService_CloseStopsPendingTimers(t *testing.T) {
	mock := clock.NewMock()
	svc := New(mock)

	var fired atomic.Bool
	svc.Schedule(5*time.Second, func() { fired.Store(true) })

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mock.Add(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if fired.Load() {
		t.Fatal("expected timer stopped by Close not to fire")
	}
}
