// Package timersvc 提供 interfaces.TimerService 的默认实现：一个单一调度
// goroutine，按截止时间排好序依次触发所有到期回调（spec.md §5「单线程调度」
// 要求所有定时事件在一个执行序列上触发，调用方——peertest.Initiator/
// Responder——据此才能安全地省去针对"同一事件并发触发"的额外同步）。
//
// 教师仓库里最接近的写法是 internal/bfd.Session 的单循环 select：一个
// goroutine 在 for{select{}} 里轮询若干 time.Timer 通道；这里把"若干独立
// 定时器"换成"一个按最近截止时间排序的小顶堆 + 一个可重置的 clock.Timer"，
// 使得任意数量的 Schedule 调用都只占用一个底层定时器和一个调度 goroutine。
package timersvc

import (
	"container/heap"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jbenet/goprocess"

	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/interfaces"
)

var log = logger.Logger("timersvc")

// Service 是 interfaces.TimerService 的默认实现
type Service struct {
	clock clock.Clock
	proc  goprocess.Process

	mu       sync.Mutex
	events   eventHeap
	nextID   uint64
	wake     chan struct{}
	schedule chan struct{}
	done     chan struct{}
}

// New 构建一个 Service，clk 为 nil 时使用真实系统时钟
func New(clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	s := &Service{
		clock:    clk,
		wake:     make(chan struct{}, 1),
		schedule: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.proc = goprocess.WithTeardown(s.teardown)
	go s.dispatchLoop()
	return s
}

// Schedule 在 delay 之后触发 fn（interfaces.TimerService）；fn 总是在本
// Service 唯一的调度 goroutine 上执行，与其它所有事件串行。
func (s *Service) Schedule(delay time.Duration, fn func()) interfaces.CancelFunc {
	s.mu.Lock()
	s.nextID++
	ev := &scheduledEvent{id: s.nextID, deadline: s.clock.Now().Add(delay), fn: fn}
	heap.Push(&s.events, ev)
	s.mu.Unlock()

	s.nudge()

	return func() {
		s.mu.Lock()
		ev.cancelled = true
		s.mu.Unlock()
	}
}

func (s *Service) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop 是本服务唯一的执行序列：始终只有一个 clock.Timer 在途，对应
// 堆顶那个尚未取消的事件；每次触发后重新计算下一个截止时间。
func (s *Service) dispatchLoop() {
	defer close(s.done)
	timer := s.clock.Timer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		s.mu.Lock()
		s.dropCancelledLocked()
		var due []*scheduledEvent
		now := s.clock.Now()
		for s.events.Len() > 0 && !s.events[0].deadline.After(now) {
			due = append(due, heap.Pop(&s.events).(*scheduledEvent))
		}
		var nextDelay time.Duration
		hasNext := s.events.Len() > 0
		if hasNext {
			nextDelay = s.events[0].deadline.Sub(now)
			if nextDelay < 0 {
				nextDelay = 0
			}
		}
		s.mu.Unlock()

		for _, ev := range due {
			if !ev.cancelled {
				ev.fn()
			}
		}

		if armed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
		if hasNext {
			timer.Reset(nextDelay)
			armed = true
		}

		select {
		case <-s.wake:
		case <-timer.C:
			armed = false
		case <-s.schedule:
			return
		}
	}
}

func (s *Service) dropCancelledLocked() {
	kept := s.events[:0]
	for _, ev := range s.events {
		if !ev.cancelled {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	heap.Init(&s.events)
}

// Process 返回该服务的 goprocess.Process，供外层 daemon 编排关闭顺序
func (s *Service) Process() goprocess.Process {
	return s.proc
}

// Close 停止调度 goroutine，未触发的事件被丢弃
func (s *Service) Close() error {
	return s.proc.Close()
}

func (s *Service) teardown() error {
	close(s.schedule)
	<-s.done
	return nil
}

type scheduledEvent struct {
	id        uint64
	deadline  time.Time
	fn        func()
	cancelled bool
}

type eventHeap []*scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*scheduledEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
