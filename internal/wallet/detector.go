package wallet

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/storefront-checkout/domain"
)

// SessionConfig is what the session already told us about wallet prompts.
type SessionConfig struct {
	DismissedPrompts map[domain.WalletRail]bool
}

func (c SessionConfig) Dismissed(rail domain.WalletRail) bool {
	return c.DismissedPrompts[rail]
}

type Detector struct {
	probes  []Probe
	timeout time.Duration
	log     *slog.Logger
}

// NewDetector runs every probe independently. timeout bounds each probe; zero
// means probes are bounded only by the detection's context.
func NewDetector(timeout time.Duration, log *slog.Logger, probes ...Probe) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{probes: probes, timeout: timeout, log: log}
}

// Start launches one probe per rail and returns immediately. Cancelling ctx,
// or calling Detection.Cancel, stops the probes; results arriving after that
// are dropped.
func (d *Detector) Start(ctx context.Context, cfg SessionConfig, device Device) *Detection {
	dctx, cancel := context.WithCancel(ctx)
	det := &Detection{
		ctx:     dctx,
		cancel:  cancel,
		cfg:     cfg,
		futures: make(map[domain.WalletRail]*railFuture, len(d.probes)),
	}

	for _, p := range d.probes {
		f := &railFuture{done: make(chan struct{})}
		det.futures[p.Rail()] = f
		det.order = append(det.order, p.Rail())
		go d.run(det, p, f, device)
	}
	return det
}

func (d *Detector) run(det *Detection, p Probe, f *railFuture, device Device) {
	ctx := det.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	available, err := p.Probe(ctx, device)
	if err != nil {
		d.log.Debug("wallet probe failed", slog.String("rail", string(p.Rail())), slog.Any("error", err))
		available = false
	}
	det.resolve(f, available)
}

type railFuture struct {
	done      chan struct{}
	resolved  bool
	available bool
}

// Detection is the readiness of each rail for one page load.
type Detection struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    SessionConfig

	mu      sync.Mutex
	stopped bool
	futures map[domain.WalletRail]*railFuture
	order   []domain.WalletRail
}

func (d *Detection) resolve(f *railFuture, available bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || f.resolved || d.ctx.Err() != nil {
		return
	}
	f.resolved = true
	f.available = available
	close(f.done)
}

// Ready is closed once the rail has an answer. It stays open forever for a
// rail whose probe was cancelled.
func (d *Detection) Ready(rail domain.WalletRail) <-chan struct{} {
	if f, ok := d.futures[rail]; ok {
		return f.done
	}
	return nil
}

// Cancel stops outstanding probes. It is safe to call more than once.
func (d *Detection) Cancel() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.cancel()
}

// Snapshot returns what is known right now without waiting. A rail that has
// not answered yet is unavailable.
func (d *Detection) Snapshot() domain.WalletReadiness {
	d.mu.Lock()
	defer d.mu.Unlock()

	readiness := make(domain.WalletReadiness, len(d.order))
	for _, rail := range d.order {
		f := d.futures[rail]
		available := f.resolved && f.available
		readiness[rail] = domain.RailState{
			Available:  available,
			ShowPrompt: available && !d.cfg.Dismissed(rail),
		}
	}
	return readiness
}

// Wait blocks until every rail has answered, the detection is cancelled or
// ctx ends, and then returns Snapshot.
func (d *Detection) Wait(ctx context.Context) domain.WalletReadiness {
	for _, rail := range d.order {
		select {
		case <-d.futures[rail].done:
		case <-d.ctx.Done():
			return d.Snapshot()
		case <-ctx.Done():
			return d.Snapshot()
		}
	}
	return d.Snapshot()
}
