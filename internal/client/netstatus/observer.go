// Package netstatus tracks whether the healthsync backend is reachable.
//
// An Observer probes the backend with Ping on a fixed interval and publishes
// every change of state to its subscribers. Until the first probe answers the
// state is StatusUnknown, which callers treat as offline.
package netstatus

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/logging"
)

// PingTimeout bounds a single reachability probe.
const PingTimeout = 3 * time.Second

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Transition is one change of connectivity state.
type Transition struct {
	From Status
	To   Status
	At   time.Time
}

type Observer struct {
	pinger   Pinger
	interval time.Duration
	log      logging.Logger

	mu     sync.RWMutex
	status Status
	subs   []chan Transition
}

func New(p Pinger, interval time.Duration, log logging.Logger) *Observer {
	return &Observer{
		pinger:   p,
		interval: interval,
		log:      log.With("module", "netstatus"),
		status:   StatusUnknown,
	}
}

func (o *Observer) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Observer) IsOnline() bool {
	return o.Status() == StatusOnline
}

// Subscribe returns a channel receiving every later transition. Slow
// subscribers miss transitions rather than block the observer.
func (o *Observer) Subscribe() <-chan Transition {
	ch := make(chan Transition, 8)
	o.mu.Lock()
	o.subs = append(o.subs, ch)
	o.mu.Unlock()
	return ch
}

// SetOnline records an externally observed state, e.g. a failed request.
func (o *Observer) SetOnline(online bool) {
	if online {
		o.set(StatusOnline)
	} else {
		o.set(StatusOffline)
	}
}

func (o *Observer) set(next Status) {
	o.mu.Lock()
	prev := o.status
	if prev == next {
		o.mu.Unlock()
		return
	}
	o.status = next
	tr := Transition{From: prev, To: next, At: time.Now()}
	subs := append([]chan Transition(nil), o.subs...)
	o.mu.Unlock()

	o.log.Info(context.Background(), "connectivity changed", "from", prev, "to", next)
	for _, ch := range subs {
		select {
		case ch <- tr:
		default:
			o.log.Warn(context.Background(), "dropping connectivity transition for slow subscriber", "to", next)
		}
	}
}

// Check probes the backend once and returns the resulting state.
func (o *Observer) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	err := o.pinger.Ping(ctx)
	cancel()

	if err != nil {
		o.log.Debug(ctx, "ping failed", "error", err)
		o.set(StatusOffline)
	} else {
		o.set(StatusOnline)
	}
	return o.Status()
}

// Run probes immediately and then every interval until ctx is done.
func (o *Observer) Run(ctx context.Context) {
	o.Check(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the observer in a background goroutine.
func (o *Observer) Start(ctx context.Context) {
	go o.Run(ctx)
}
