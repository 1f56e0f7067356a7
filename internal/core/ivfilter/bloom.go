// Package ivfilter 实现 IV 重放过滤器：一个带半衰期的概率成员结构
// （DecayingMembership）及其上的薄策略层（IVValidator）。
//
// DecayingMembership 的内部位数组机制不属于 spec 范围（spec.md §1 将
// "bloom-filter bit mechanics" 列为外部协作方），但一个可运行的模块仍需要一份
// 具体实现：这里用双代（current/previous）的双重哈希 Bloom 过滤器来满足
// "半衰期内插入的键永不漏判、t+2*halflife 后必然遗忘" 的契约（spec.md §4.3）。
package ivfilter

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spaolacci/murmur3"

	"github.com/anonoverlay/peertest/internal/util/logger"
)

var log = logger.Logger("ivfilter")

// BloomConfig 配置 decayingBloom 的容量与精度
type BloomConfig struct {
	// HalfLife 是每一代位数组的存活时长；条目保证在 2*HalfLife 后被遗忘
	HalfLife time.Duration

	// ExpectedInsertions 是每个半衰期窗口内预期插入的键数量，用于确定位数组大小
	ExpectedInsertions int

	// FalsePositiveRate 是目标假阳性率（单代内）
	FalsePositiveRate float64
}

// DefaultBloomConfig 返回供隧道层 IV 校验使用的默认参数
//
// 半衰期取 10 分钟，是隧道典型生命周期的数倍安全余量（spec.md §4.3 的
// "factor-of-two safety margin... to prevent cross-tunnel ambiguity"）。
func DefaultBloomConfig() BloomConfig {
	return BloomConfig{
		HalfLife:           10 * time.Minute,
		ExpectedInsertions: 200_000,
		FalsePositiveRate:  0.001,
	}
}

// decayingBloom 是 spec.md §4.3「DecayingMembership」契约的具体实现
type decayingBloom struct {
	m uint64 // 每代的位数
	k int    // 哈希探测次数

	current  atomic.Pointer[bitset]
	previous atomic.Pointer[bitset]

	clk     clock.Clock
	ticker  *clock.Ticker
	stopped atomic.Bool
	done    chan struct{}
}

// newDecayingBloom 根据配置构建一个双代 Bloom 过滤器并启动后台世代轮换
func newDecayingBloom(cfg BloomConfig, clk clock.Clock) *decayingBloom {
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultBloomConfig().HalfLife
	}
	if cfg.ExpectedInsertions <= 0 {
		cfg.ExpectedInsertions = DefaultBloomConfig().ExpectedInsertions
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = DefaultBloomConfig().FalsePositiveRate
	}

	m, k := bloomParams(cfg.ExpectedInsertions, cfg.FalsePositiveRate)

	d := &decayingBloom{
		m:    m,
		k:    k,
		clk:  clk,
		done: make(chan struct{}),
	}
	d.current.Store(newBitset(m))
	d.previous.Store(newBitset(m))

	d.ticker = clk.Ticker(cfg.HalfLife)
	go d.rotateLoop()

	log.Info("decaying bloom filter started", "bits", m, "probes", k, "halflife", cfg.HalfLife)
	return d
}

// bloomParams 按标准 Bloom 过滤器公式推导位数 m 与哈希探测次数 k
func bloomParams(n int, p float64) (m uint64, k int) {
	mf := -(float64(n) * math.Log(p)) / (math.Ln2 * math.Ln2)
	m = uint64(math.Ceil(mf))
	if m < 64 {
		m = 64
	}
	kf := (float64(m) / float64(n)) * math.Ln2
	k = int(math.Round(kf))
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return m, k
}

func (d *decayingBloom) rotateLoop() {
	for {
		select {
		case <-d.ticker.C:
			stale := d.current.Swap(newBitset(d.m))
			d.previous.Store(stale)
			log.Debug("rotated bloom generation")
		case <-d.done:
			return
		}
	}
}

// bits 计算 key 对应的 k 个探测位，使用 Kirsch–Mitzenmacher 双重哈希
func (d *decayingBloom) bits(key []byte) []uint64 {
	h1, h2 := murmur3.Sum128(key)
	out := make([]uint64, d.k)
	for i := 0; i < d.k; i++ {
		out[i] = (h1 + uint64(i)*h2) % d.m
	}
	return out
}

// Add 插入 key，返回该 key 此前是否已经存在（近似判断，详见包文档）
func (d *decayingBloom) Add(key []byte) (present bool) {
	bits := d.bits(key)

	prev := d.previous.Load()
	prevPresent := true
	for _, b := range bits {
		if !prev.test(b) {
			prevPresent = false
			break
		}
	}

	cur := d.current.Load()
	curPresent := true
	for _, b := range bits {
		if !cur.testAndSet(b) {
			curPresent = false
		}
	}

	return prevPresent || curPresent
}

// Stop 释放后台世代轮换所占用的资源
func (d *decayingBloom) Stop() {
	if d.stopped.CompareAndSwap(false, true) {
		d.ticker.Stop()
		close(d.done)
	}
}
