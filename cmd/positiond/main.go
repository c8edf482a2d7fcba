package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"main/internal/bus"
	"main/internal/journal"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/pnl"
	"main/internal/position"
	"main/internal/recovery"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		logs.Fatalf("positiond: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(loaded.StorePath, 0o755); err != nil {
		return err
	}

	if loaded.Profiler.Enable {
		appName := loaded.Profiler.ApplicationName
		if appName == "" {
			appName = "positiond"
		}
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: appName,
			ServerAddress:   loaded.Profiler.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	client, err := openDatabase(loaded.Database)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store := journal.NewStore(client.DB())
	if err := store.Migrate(); err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	writer := journal.NewWriter(store, loaded.JournalQueue)
	mgr := position.NewManager(loaded.Directory, writer, metrics)

	targets := newTargetLog()
	loader := recovery.NewLoader(loaded.StorePath, store, mgr, targets, nil)
	if err := loader.Run(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := writer.Start(ctx); err != nil {
		return err
	}

	queue := bus.NewQueue(loaded.ConfirmationQueue)
	publisher := pnl.NewPublisher(mgr, loaded.StorePath, loaded.PublishInterval, loaded.NoiseThreshold, metrics)
	watcher, err := recovery.NewTargetWatcher(loaded.StorePath, targets)
	if err != nil {
		return err
	}

	// the consumer drains on queue close, not on ctx, so buffered
	// confirmations are still applied and journaled during shutdown
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		queue.Run(context.Background(), func(cm *model.Confirmation) {
			mgr.Handle(cm, false)
		})
	}()
	// stdin may block on a read forever; nothing waits on this goroutine
	go feedStdin(queue, loaded.Directory, metrics)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		publisher.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		watcher.Run(groupCtx)
		return nil
	})

	logs.Info("positiond running")
	select {
	case <-sys.Shutdown():
		logs.Info("shutdown signal received")
	case <-groupCtx.Done():
	}

	queue.Close()
	<-consumerDone
	cancel()
	_ = group.Wait()

	if err := writer.Close(); err != nil {
		return err
	}

	snapshot := metrics.Snapshot()
	logs.Infof("metrics: applied=%v unknown_security=%d ignored_trans=%d journal=%d drops=%d publisher_runs=%d lines=%d apply=%+v publish=%+v",
		snapshot.AppliedCounts, snapshot.UnknownSecurity, snapshot.IgnoredTrans,
		snapshot.JournalAppends, snapshot.QueueDrops,
		snapshot.PublisherRuns, snapshot.PublisherLines,
		snapshot.ApplyLatency, snapshot.PublishLatency)
	return nil
}

func openDatabase(spec ops.DatabaseSpec) (*conn.Client, error) {
	switch spec.Driver {
	case "postgres":
		return conn.NewPostgres(conn.Option{ConnString: spec.DSN})
	case "sqlite":
		return conn.NewSqlite(conn.SqliteOption{Path: spec.Path})
	default:
		return nil, errors.New("unknown database driver: " + spec.Driver)
	}
}

// feedStdin reads newline-delimited raw confirmations until EOF. Session
// connectivity lives in a separate process; this is the ingress it pipes
// into.
func feedStdin(queue *bus.Queue, dir *model.Directory, metrics *obs.Metrics) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw model.RawConfirmation
		if err := json.Unmarshal(line, &raw); err != nil {
			logs.Errorf("parse confirmation: %v", err)
			continue
		}
		cm, err := raw.Resolve(dir)
		if err != nil {
			logs.Errorf("resolve confirmation: %v", err)
			continue
		}
		if err := queue.TryPublish(cm); err != nil {
			switch {
			case errors.Is(err, bus.ErrQueueFull):
				metrics.IncQueueDrop()
				logs.Errorf("confirmation dropped: queue full")
			case errors.Is(err, bus.ErrQueueClosed):
				metrics.IncQueueClosed()
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logs.Errorf("read confirmations: %v", err)
	}
}

// targetLog records target positions until an execution engine is attached
// in-process.
type targetLog struct{}

func newTargetLog() *targetLog {
	return &targetLog{}
}

func (t *targetLog) SetTargets(subAccountID int64, targets []recovery.Target) {
	for _, target := range targets {
		logs.Infof("target sub-account=%d security=%d qty=%s", subAccountID, target.SecurityID, target.Qty)
	}
}
