// Package main 提供 peertestd 命令行入口：一个运行对端可达性测试子系统的
// 最小化守护进程，用于把 internal/core/peertest 与 internal/core/ivfilter
// 接到真实的 UDP 套接字与 Prometheus 指标端点上。
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/anonoverlay/peertest/internal/config"
	"github.com/anonoverlay/peertest/internal/core/ivfilter"
	"github.com/anonoverlay/peertest/internal/core/peertest"
	"github.com/anonoverlay/peertest/internal/core/timersvc"
	"github.com/anonoverlay/peertest/internal/netdb"
	"github.com/anonoverlay/peertest/internal/transport"
	"github.com/anonoverlay/peertest/internal/util/logger"
	"github.com/anonoverlay/peertest/pkg/types"
)

var log = logger.Logger("peertestd")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "peertestd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "JSON 配置文件路径")
	listenAddr := flag.String("listen", "", "本地 UDP 监听地址，覆盖配置文件")
	runOnce := flag.String("test-bob", "", "启动后立即对该地址发起一次对端可达性测试并退出")
	flag.Parse()

	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.Network.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	reg := prometheus.NewRegistry()
	clk := clock.New()
	timer := timersvc.New(clk)
	defer timer.Close()

	introKey, err := randomIntroKey()
	if err != nil {
		return fmt.Errorf("generate intro key: %w", err)
	}

	validator := ivfilter.New(ivfilter.BloomConfig{
		HalfLife:           cfg.IVFilter.HalfLife.Duration(),
		ExpectedInsertions: cfg.IVFilter.ExpectedInsertions,
		FalsePositiveRate:  cfg.IVFilter.FalsePositiveRate,
	}, clk, reg)
	defer validator.Stop()

	selector := netdb.NewCapableSelector()
	// routerCache 保留给后台 netDB 同步任务填充；本守护进程本身不实现网络发现
	routerCache := netdb.NewLocalCache(netdb.DefaultCacheSize)

	peertestCfg := peertest.Config{
		RetransmitInterval: cfg.Timing.RetransmitInterval.Duration(),
		TestTimeout:        cfg.Timing.TestTimeout.Duration(),
		CharlieLifetime:    cfg.Timing.CharlieLifetime.Duration(),
	}

	// dispatch 转发入站数据报给 responder；responder 依赖 udpTransport 才能
	// 构建，而 udpTransport.Listen 需要一个接收回调，因此用这层间接绑定
	// 打破构造顺序上的循环依赖。
	var responder *peertest.Responder
	dispatch := func(from types.RemoteHostId, payload []byte) {
		if responder != nil {
			responder.ReceiveTest(from, payload)
		}
	}

	udpTransport, err := transport.Listen(cfg.Network.ListenAddr, introKey, dispatch)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer udpTransport.Close()

	initiator := peertest.NewInitiator(udpTransport, timer, clk, cryptoRandSource{}, func(o peertest.Outcome) {
		log.Info("peer test outcome", "status", o.Status, "bobPort", o.BobPort, "charliePort", o.CharliePort, "elapsed", o.Elapsed)
		if *runOnce != "" {
			cancel()
		}
	}, peertestCfg, reg)

	responder = peertest.NewResponder(udpTransport, selector, routerCache, timer, clk, initiator, peertestCfg, reg)

	log.Info("peertestd listening", "addr", udpTransport.LocalAddr())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.ListenAddr, reg)
		})
	}

	bobAddr := *runOnce
	if bobAddr == "" {
		bobAddr = cfg.Network.KnownBob
	}
	if bobAddr != "" {
		bobHost, bobPort, err := parseHostPort(bobAddr)
		if err != nil {
			return err
		}
		if err := initiator.RunTest(bobHost, bobPort, introKey); err != nil {
			return fmt.Errorf("run test: %w", err)
		}
	}

	<-gctx.Done()
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func parseHostPort(hostport string) (net.IP, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid -test-bob address %q: %w", hostport, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve %q: %w", host, err)
		}
		ip = resolved.IP
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid port in %q: %w", hostport, err)
	}
	return ip, port, nil
}

func randomIntroKey() (types.IntroKey, error) {
	var key types.IntroKey
	_, err := rand.Read(key[:])
	return key, err
}

type cryptoRandSource struct{}

func (cryptoRandSource) Uint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
