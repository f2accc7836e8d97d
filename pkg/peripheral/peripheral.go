// Package peripheral assembles the beacon: the advertising set manager, the
// telemetry scheduler, and the worker queue they share, plus the routing of
// connection events into queued work.
package peripheral

import (
	"context"
	"errors"
	"time"

	"github.com/codedphy/beacon/internal/log"
	"github.com/codedphy/beacon/internal/work"
	"github.com/codedphy/beacon/pkg/advertiser"
	"github.com/codedphy/beacon/pkg/telemetry"
	"github.com/codedphy/beacon/pkg/transport"
)

// Config collects everything fixed at startup.
type Config struct {
	Advertising  advertiser.Config
	NotifyPeriod time.Duration
}

// Peripheral is the top-level device object. It implements
// transport.ConnectionObserver; the transport layer holds a non-owning
// reference to it for callback delivery.
type Peripheral struct {
	queue     *work.Queue
	manager   *advertiser.Manager
	scheduler *telemetry.Scheduler
	status    transport.StatusSink
}

// New validates cfg (including chunk sizing) and wires the components
// together. No radio calls happen until Start.
func New(radio transport.Radio, notifier transport.Notifier, status transport.StatusSink, cfg Config) (*Peripheral, error) {
	manager, err := advertiser.New(radio, cfg.Advertising)
	if err != nil {
		return nil, err
	}
	if cfg.NotifyPeriod <= 0 {
		cfg.NotifyPeriod = telemetry.DefaultPeriod
	}
	queue := work.NewQueue()
	return &Peripheral{
		queue:     queue,
		manager:   manager,
		scheduler: telemetry.NewScheduler(queue, notifier, cfg.NotifyPeriod),
		status:    status,
	}, nil
}

// Start launches the worker queue, runs the one-time advertising startup on
// it, and arms the first notification tick. Any startup failure aborts the
// remaining steps and is returned as a hard error; the peripheral does not
// enter steady state half-configured.
func (p *Peripheral) Start(ctx context.Context) error {
	if err := p.queue.Start(ctx); err != nil {
		return err
	}
	result := make(chan error, 1)
	if err := p.queue.Submit(func() { result <- p.manager.StartAdvertising() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	p.scheduler.Start()
	return nil
}

// Stop cancels telemetry, halts both advertising sets, and shuts down the
// worker queue.
func (p *Peripheral) Stop() {
	p.scheduler.Stop()
	done := make(chan struct{})
	if err := p.queue.Submit(func() { p.manager.Stop(); close(done) }); err == nil {
		<-done
	}
	p.queue.Stop()
}

// HandleConnected runs in the transport's callback context. It only logs and
// drives the status indicator; it never touches advertising state.
func (p *Peripheral) HandleConnected(info transport.ConnectionInfo, err error) {
	switch {
	case err == nil:
		log.Info("peripheral: connected: %s, tx_phy %s, rx_phy %s", info.Peer, info.TXPHY, info.RXPHY)
	case errors.Is(err, transport.ErrConnectionInfoUnavailable):
		// The connection is up; only its parameters are unknown.
		log.Warning("peripheral: connected: %s (failed to get connection info: %s)", info.Peer, err)
	default:
		log.Warning("peripheral: connection failed: %s", err)
		return
	}
	p.status.SetConnected(true)
}

// HandleDisconnected runs in the transport's callback context. It enqueues a
// restart of the connectable set; repeated disconnects coalesce into one.
func (p *Peripheral) HandleDisconnected(peer string, reason uint8) {
	log.Info("peripheral: disconnected: %s, reason 0x%02x %s", peer, reason, transport.ReasonString(reason))
	p.status.SetConnected(false)
	p.manager.RequestRestart(p.queue)
}
