package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/core"
	"main/internal/executor"
	"main/internal/feed"
	"main/internal/journal"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/orders"
	"main/internal/position"
	"main/internal/risk"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config (overrides TRADER_CONFIG)")
	simFeed := flag.Bool("sim", false, "Use the synthetic price feed instead of the exchange stream")
	flag.Parse()

	env, err := ops.LoadEnv()
	if err != nil {
		log.Fatalf("environment load failed: %v", err)
	}
	if *configPath != "" {
		env.ConfigPath = *configPath
	}
	loaded, err := ops.Load(env.ConfigPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if env.PyroscopeURL != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   env.PyroscopeURL,
			Tags: map[string]string{
				"mode": env.Mode,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, env, loaded, *simFeed); err != nil {
		log.Fatalf("trader failed: %v", err)
	}
}

func run(ctx context.Context, env ops.Env, loaded ops.Loaded, simFeed bool) error {
	books := feed.NewBooks(loaded.BookMaxAge)
	priceFeed, closeFeed, err := buildFeed(ctx, loaded, simFeed, books)
	if err != nil {
		return err
	}
	defer closeFeed()

	tracker := position.NewTracker()
	riskMgr, err := risk.NewManager(loaded.Risk, tracker)
	if err != nil {
		return err
	}

	exec, fills := buildExecutor(env)
	logs.Infof("trading in %s mode", exec.Mode())

	var jnl core.Journal
	if env.JournalDSN != "" {
		j, err := journal.Open(env.JournalDSN)
		if err != nil {
			return err
		}
		defer func() {
			_ = j.Close()
		}()
		jnl = j
	}

	metrics := obs.NewMetrics()
	sink := obs.NewSink(metrics)
	events := bus.NewQueue(1024)

	var drained sync.WaitGroup
	drained.Add(1)
	go func() {
		defer drained.Done()
		events.Run(context.Background(), sink.Handle)
	}()

	engine, err := core.New(loaded.Core, priceFeed, books, loaded.Registry, riskMgr,
		tracker, orders.NewBook(), exec, events, metrics, jnl)
	if err != nil {
		return err
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Live orders settle only through the user data stream. Losing it
	// means submitted orders never fill, so its failure stops trading.
	var streams sync.WaitGroup
	if fills != nil {
		streams.Add(1)
		go func() {
			defer streams.Done()
			if err := fills.Run(runCtx, engine.HandleFill); err != nil {
				logs.Errorf("fill stream stopped, halting: %+v", err)
				cancelRun()
			}
		}()
	}

	runErr := engine.Run(runCtx)
	cancelRun()
	streams.Wait()

	// Drain remaining events, then report the session.
	events.Close()
	drained.Wait()
	logSnapshot(metrics.Snapshot(), riskMgr, engine)
	return runErr
}

func buildFeed(ctx context.Context, loaded ops.Loaded, simFeed bool, books *feed.Books) (feed.PriceFeed, func(), error) {
	if simFeed {
		return feed.NewSim(feed.SimConfig{
			BasePrice: decimal.NewFromInt(100),
			Step:      decimal.RequireFromString("0.05"),
			Cycle:     loaded.Core.HistorySize,
			Spread:    decimal.RequireFromString("0.01"),
			Volume:    decimal.NewFromInt(1),
			Interval:  loaded.Core.EvalInterval,
		}, books), func() {}, nil
	}

	binance := feed.NewBinance(ctx, books)
	if err := binance.Start(ctx); err != nil {
		return nil, nil, err
	}
	return binance, binance.Close, nil
}

func buildExecutor(env ops.Env) (executor.Executor, *executor.BinanceFillStream) {
	if env.Mode == ops.ModeLive {
		client := executor.NewBinanceClient(env.APIKey, env.APISecret)
		return executor.NewVenue(executor.VenueConfig{}, client), executor.NewBinanceFillStream(client)
	}
	return executor.NewPaper(), nil
}

func logSnapshot(snap obs.Snapshot, riskMgr *risk.Manager, engine *core.Engine) {
	for kind, count := range snap.EventCounts {
		logs.Infof("session: %s x%d", kind, count)
	}
	if snap.EvalLatency.Count > 0 {
		logs.Infof("session: eval latency min=%s avg=%s max=%s (%d samples)",
			snap.EvalLatency.Min, snap.EvalLatency.Avg, snap.EvalLatency.Max, snap.EvalLatency.Count)
	}
	if snap.SubmitLatency.Count > 0 {
		logs.Infof("session: submit latency min=%s avg=%s max=%s (%d samples)",
			snap.SubmitLatency.Min, snap.SubmitLatency.Avg, snap.SubmitLatency.Max, snap.SubmitLatency.Count)
	}
	if snap.QueueDrops > 0 {
		logs.Infof("session: %d observability events dropped", snap.QueueDrops)
	}
	logs.Infof("session: realized loss today %s", riskMgr.LossToday())
	for _, pos := range engine.Positions() {
		logs.Infof("session: open position %s net %s @ %s",
			pos.Symbol, pos.NetQuantity, pos.AvgEntryPrice)
	}
}
