package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/cache"
	"github.com/dmitrijs2005/healthsync/internal/client/client"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/netstatus"
	"github.com/dmitrijs2005/healthsync/internal/client/queue"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Watcher is a Connectivity that also publishes state transitions.
type Watcher interface {
	Connectivity
	Subscribe() <-chan netstatus.Transition
}

// DrainReport summarizes one replay of the offline queue.
type DrainReport struct {
	Attempted int
	Applied   int
	Failed    int
	Pruned    int
	Remaining int
	// Interrupted is set when the remote became unreachable mid-drain.
	Interrupted bool
}

// Coordinator replays queued mutations against the remote and keeps the
// cache in step with what the server accepted.
type Coordinator struct {
	client     client.Client
	cache      *cache.Cache
	queue      *queue.Queue
	net        Watcher
	maxRetries int
	interval   time.Duration
	log        logging.Logger
	now        func() time.Time

	flight singleflight.Group
}

func NewCoordinator(c client.Client, ch *cache.Cache, q *queue.Queue, net Watcher, maxRetries int, interval time.Duration, log logging.Logger) *Coordinator {
	return &Coordinator{
		client:     c,
		cache:      ch,
		queue:      q,
		net:        net,
		maxRetries: maxRetries,
		interval:   interval,
		log:        log.With("module", "sync"),
		now:        time.Now,
	}
}

// Drain replays the queue oldest first. Accepted mutations are removed and
// their server response reconciled into the cache. A rejected mutation gets
// its retry counter bumped and the drain moves on. A network failure ends
// the drain and leaves the rest of the queue in order. Mutations that
// reached the retry limit are pruned afterwards.
//
// Concurrent calls share one drain and its result.
func (c *Coordinator) Drain(ctx context.Context) (DrainReport, error) {
	v, err, _ := c.flight.Do("drain", func() (any, error) {
		return c.drain(ctx)
	})
	return v.(DrainReport), err
}

func (c *Coordinator) drain(ctx context.Context) (DrainReport, error) {
	var report DrainReport

	items, err := c.queue.GetAll(ctx)
	if err != nil {
		return report, err
	}
	if len(items) == 0 {
		return report, nil
	}
	c.log.Info(ctx, "replaying offline queue", "size", len(items))

	rejected := map[models.Category]bool{}
	for _, m := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		resp, err := c.client.Send(ctx, m.Method, m.Endpoint, m.Payload)
		if err == nil {
			if err := c.queue.Remove(ctx, m.ID); err != nil {
				return report, err
			}
			report.Applied++
			if len(resp) > 0 {
				c.reconcile(ctx, m.Category, resp)
			}
			continue
		}

		if common.IsNetwork(err) {
			c.log.Info(ctx, "remote unreachable, pausing replay", "id", m.ID, "error", err)
			c.net.SetOnline(false)
			report.Interrupted = true
			break
		}
		if errors.Is(err, context.Canceled) {
			return report, err
		}

		c.log.Warn(ctx, "mutation rejected", "id", m.ID, "category", m.Category, "retries", m.Retries+1, "error", err)
		if err := c.queue.RecordFailure(ctx, m.ID, err); err != nil {
			return report, err
		}
		report.Failed++
		rejected[m.Category] = true
	}

	pruned, err := c.queue.PruneFailed(ctx, c.maxRetries)
	if err != nil {
		return report, err
	}
	report.Pruned = pruned

	// Dropped edits are still visible in the cache; put the server's view back.
	if pruned > 0 && !report.Interrupted {
		for category := range rejected {
			c.refresh(ctx, category)
		}
	}

	report.Remaining, err = c.queue.Size(ctx)
	if err != nil {
		return report, err
	}
	c.log.Info(ctx, "replay finished",
		"applied", report.Applied, "failed", report.Failed,
		"pruned", report.Pruned, "remaining", report.Remaining)
	return report, nil
}

func (c *Coordinator) reconcile(ctx context.Context, category models.Category, server models.Payload) {
	pending, err := c.queue.ForCategory(ctx, category)
	if err != nil {
		c.log.Warn(ctx, "could not read pending mutations", "category", category, "error", err)
	}
	e := models.Reconcile(category, server, c.now().UTC(), pending)
	if err := c.cache.Put(ctx, e); err != nil {
		c.log.Warn(ctx, "could not update cache", "category", category, "error", err)
	}
}

func (c *Coordinator) refresh(ctx context.Context, category models.Category) {
	payload, err := c.client.Fetch(ctx, category.Endpoint())
	if err != nil {
		c.log.Warn(ctx, "could not refresh category after pruning", "category", category, "error", err)
		return
	}
	c.reconcile(ctx, category, payload)
}

func (c *Coordinator) drainLogged(ctx context.Context) {
	if _, err := c.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error(ctx, "replay failed", "error", err)
	}
}

// Run drains whenever the observer reports the remote back online and on
// every interval while online. It returns when ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	c.run(ctx, c.net.Subscribe())
}

func (c *Coordinator) run(ctx context.Context, transitions <-chan netstatus.Transition) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case tr := <-transitions:
			if tr.To == netstatus.StatusOnline {
				c.drainLogged(ctx)
			}
		case <-ticker.C:
			if c.net.IsOnline() {
				c.drainLogged(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Start subscribes to the observer and runs the coordinator in a background
// goroutine. The subscription is in place when Start returns, so transitions
// published afterwards are never missed.
func (c *Coordinator) Start(ctx context.Context) {
	transitions := c.net.Subscribe()
	go c.run(ctx, transitions)
}
