// Package app wires the broker together: recovery, the request loop, the
// checkpoint task and the monitors.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alphauslabs/qbroker/checkpoint"
	"github.com/alphauslabs/qbroker/handlers"
	"github.com/alphauslabs/qbroker/snapshot"
	"github.com/alphauslabs/qbroker/storage"
	"github.com/alphauslabs/qbroker/transport"
	"github.com/golang/glog"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// backoff after a transport error other than a malformed envelope
const recvBackoff = 100 * time.Millisecond

type PubSub struct {
	State  *storage.State
	Store  snapshot.Store
	Router *transport.Router
	Health *HealthServer // optional
}

type Config struct {
	Reset        bool          // skip recovery and start empty
	Interval     time.Duration // checkpoint cadence
	MonitorEvery time.Duration // storage monitor cadence, 0 disables
}

// Run restores the last snapshot, then serves requests until ctx is done.
// Once the request loop has stopped, the checkpoint task writes one more
// snapshot. A snapshot that cannot be read is returned as an error before
// anything is served.
func (p *PubSub) Run(ctx context.Context, cfg Config) error {
	if cfg.Reset {
		glog.Warning("[App] reset requested, starting with empty state")
	} else if err := checkpoint.Recover(ctx, p.Store, p.State); err != nil {
		return fmt.Errorf("recovery: %w", err)
	}

	// The checkpoint task outlives the request loop, so its final checkpoint
	// covers every request that was answered.
	taskCtx, stopTask := context.WithCancel(context.Background())
	defer stopTask()
	task := &checkpoint.Task{State: p.State, Store: p.Store, Interval: cfg.Interval}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		task.Run(taskCtx)
	}()
	if cfg.MonitorEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storage.MonitorActivity(ctx, p.State, cfg.MonitorEvery)
		}()
	}

	p.Health.set(healthpb.HealthCheckResponse_SERVING)
	err := p.serve(ctx, handlers.New(p.State, p.Router))
	p.Health.set(healthpb.HealthCheckResponse_NOT_SERVING)

	stopTask()
	wg.Wait()
	return err
}

// serve handles one request at a time; every reply, deferred ones included,
// goes out from this goroutine.
func (p *PubSub) serve(ctx context.Context, d *handlers.Dispatcher) error {
	glog.Infof("[App] serving requests on %s", p.Router.Endpoint())
	for {
		msg, err := p.Router.Recv(ctx)
		switch {
		case err == nil:
			d.Handle(msg.Identity, msg.Body)
		case ctx.Err() != nil:
			glog.Info("[App] stopping request loop")
			return nil
		case errors.Is(err, transport.ErrMalformed):
			glog.Warningf("[App] dropped request: %v", err)
		case errors.Is(err, transport.ErrClosed):
			return err
		default:
			glog.Errorf("[App] receive failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(recvBackoff):
			}
		}
	}
}
