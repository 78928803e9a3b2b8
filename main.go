package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alphauslabs/qbroker/app"
	"github.com/alphauslabs/qbroker/checkpoint"
	"github.com/alphauslabs/qbroker/snapshot"
	"github.com/alphauslabs/qbroker/storage"
	"github.com/alphauslabs/qbroker/transport"
	"github.com/golang/glog"
	"google.golang.org/api/option"
)

var (
	bind          = flag.String("bind", "tcp://*:5559", "ROUTER bind endpoint")
	dataDir       = flag.String("datadir", "data", "directory for file snapshots")
	interval      = flag.Duration("interval", checkpoint.DefaultInterval, "checkpoint interval")
	reset         = flag.Bool("reset", false, "ignore saved snapshots and start empty")
	spannerDb     = flag.String("spanner-db", "", "store snapshots in this Spanner database instead of files, e.g. projects/p/instances/i/databases/d")
	spannerCreds  = flag.String("spanner-credentials", "", "credentials file for --spanner-db")
	healthAddr    = flag.String("health", ":50051", "gRPC health endpoint, empty to disable")
	monitorPeriod = flag.Duration("monitor", time.Minute, "storage monitor interval, 0 to disable")
)

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		glog.Fatalf("failed to open snapshot store: %v", err)
	}
	defer store.Close()

	router, err := transport.Listen(*bind)
	if err != nil {
		glog.Fatalf("failed to listen: %v", err)
	}
	defer router.Close()

	ps := &app.PubSub{State: storage.NewState(), Store: store, Router: router}
	if *healthAddr != "" {
		hs, err := app.ListenHealth(*healthAddr)
		if err != nil {
			glog.Fatalf("failed to start health server: %v", err)
		}
		go func() {
			if err := hs.Serve(); err != nil {
				glog.Errorf("[Health] serve: %v", err)
			}
		}()
		defer hs.Stop()
		ps.Health = hs
	}

	cfg := app.Config{Reset: *reset, Interval: *interval, MonitorEvery: *monitorPeriod}
	if err := ps.Run(ctx, cfg); err != nil {
		glog.Fatal(stopMessage(err))
	}
	glog.Info("broker stopped")
}

// stopMessage describes a failed Run. Only an unreadable snapshot gets the
// recovery hint; it must not be overwritten by an empty one.
func stopMessage(err error) string {
	if errors.Is(err, snapshot.ErrCorrupt) {
		return fmt.Sprintf("broker stopped: %v (fix the snapshot or start with --reset)", err)
	}
	return fmt.Sprintf("broker stopped: %v", err)
}

func openStore(ctx context.Context) (snapshot.Store, error) {
	if *spannerDb == "" {
		glog.Infof("snapshots in %s", *dataDir)
		return snapshot.NewFileStore(*dataDir)
	}

	var opts []option.ClientOption
	if *spannerCreds != "" {
		opts = append(opts, option.WithCredentialsFile(*spannerCreds))
	}
	glog.Infof("snapshots in Spanner %s", *spannerDb)
	return snapshot.NewSpannerStore(ctx, *spannerDb, opts...)
}
