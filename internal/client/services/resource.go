package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/cache"
	"github.com/dmitrijs2005/healthsync/internal/client/client"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/queue"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

// Connectivity is the view of the network-status observer the services need.
type Connectivity interface {
	IsOnline() bool
	SetOnline(online bool)
}

// Result is what a read or write hands back to the caller.
type Result struct {
	Entity models.CachedEntity
	// Stale is set when the remote was unreachable and Entity came from
	// the local cache.
	Stale bool
	// Queued is set when a write was applied locally and queued for replay.
	Queued bool
}

// ResourceService serves category reads cache-first on network failure and
// applies writes optimistically while offline.
type ResourceService struct {
	client client.Client
	cache  *cache.Cache
	queue  *queue.Queue
	net    Connectivity
	log    logging.Logger
	now    func() time.Time
}

func NewResourceService(c client.Client, ch *cache.Cache, q *queue.Queue, net Connectivity, log logging.Logger) *ResourceService {
	return &ResourceService{
		client: c,
		cache:  ch,
		queue:  q,
		net:    net,
		log:    log.With("module", "resources"),
		now:    time.Now,
	}
}

// pending returns the queued mutations of category. A corrupt queue counts
// as empty here; GetAll already logged it.
func (s *ResourceService) pending(ctx context.Context, category models.Category) []models.QueuedMutation {
	items, err := s.queue.ForCategory(ctx, category)
	if err != nil {
		s.log.Warn(ctx, "could not read pending mutations", "category", category, "error", err)
	}
	return items
}

func (s *ResourceService) store(ctx context.Context, e models.CachedEntity) {
	if err := s.cache.Put(ctx, e); err != nil {
		s.log.Warn(ctx, "could not update cache", "category", e.Category, "error", err)
	}
}

// Get fetches category from the remote and caches it. When the remote is
// unreachable the cached snapshot is returned with Stale set; with nothing
// cached the caller gets a *common.CacheMissError wrapping the remote error.
// Errors from a remote that answered are returned as they are.
func (s *ResourceService) Get(ctx context.Context, category models.Category) (Result, error) {
	payload, err := s.client.Fetch(ctx, category.Endpoint())
	if err == nil {
		s.net.SetOnline(true)
		e := models.Reconcile(category, payload, s.now().UTC(), s.pending(ctx, category))
		s.store(ctx, e)
		return Result{Entity: e}, nil
	}
	if !common.IsNetwork(err) {
		return Result{}, err
	}

	s.net.SetOnline(false)
	s.log.Info(ctx, "remote unreachable, serving from cache", "category", category, "error", err)

	cached, cerr := s.cache.Get(ctx, category)
	if cerr != nil {
		s.log.Warn(ctx, "cache read failed", "category", category, "error", cerr)
	}
	if cached == nil {
		return Result{}, &common.CacheMissError{Category: string(category), Err: err}
	}
	return Result{Entity: *cached, Stale: true}, nil
}

// Cached returns the local snapshot without touching the remote.
func (s *ResourceService) Cached(ctx context.Context, category models.Category) (*models.CachedEntity, error) {
	return s.cache.Get(ctx, category)
}

// Update writes a partial update with PUT.
func (s *ResourceService) Update(ctx context.Context, category models.Category, patch models.Payload) (Result, error) {
	return s.Write(ctx, category, models.MethodPut, patch)
}

// Write sends a mutation to the remote when online and caches the server's
// answer. Offline, or when the remote turns out to be unreachable, the
// mutation is queued and applied to the cached snapshot instead; the caller
// gets the optimistic result and no error.
//
// While older mutations of the same category are still queued the write is
// queued behind them, so replay can never apply an older edit over it.
func (s *ResourceService) Write(ctx context.Context, category models.Category, method models.Method, patch models.Payload) (Result, error) {
	online := s.net.IsOnline()
	if online && len(s.pending(ctx, category)) > 0 {
		s.log.Info(ctx, "queueing write behind pending mutations", "category", category)
		online = false
	}

	if online {
		resp, err := s.client.Send(ctx, method, category.Endpoint(), patch)
		if err == nil {
			return Result{Entity: s.applyConfirmed(ctx, category, method, patch, resp)}, nil
		}
		if !common.IsNetwork(err) {
			return Result{}, err
		}
		s.net.SetOnline(false)
		s.log.Info(ctx, "remote unreachable, queueing write", "category", category, "error", err)
	}

	m, err := s.queue.Enqueue(ctx, category, category.Endpoint(), method, patch)
	if err != nil {
		return Result{}, err
	}

	var optimistic models.CachedEntity
	_, err = s.cache.Update(ctx, category, func(cur *models.CachedEntity) (models.CachedEntity, error) {
		base := models.CachedEntity{Category: category, Payload: models.Payload{}}
		if cur != nil {
			base = *cur
		}
		optimistic = models.Apply(base, method, patch, m.EnqueuedAt)
		return optimistic, nil
	})
	if err != nil {
		s.log.Warn(ctx, "could not apply queued write to cache", "category", category, "id", m.ID, "error", err)
	}
	return Result{Entity: optimistic, Queued: true}, nil
}

// applyConfirmed caches the outcome of a write the server accepted.
func (s *ResourceService) applyConfirmed(ctx context.Context, category models.Category, method models.Method, patch, resp models.Payload) models.CachedEntity {
	at := s.now().UTC()
	if len(resp) > 0 {
		e := models.Reconcile(category, resp, at, s.pending(ctx, category))
		s.store(ctx, e)
		return e
	}

	e, err := s.cache.Update(ctx, category, func(cur *models.CachedEntity) (models.CachedEntity, error) {
		base := models.CachedEntity{Category: category, Payload: models.Payload{}}
		if cur != nil {
			base = *cur
		}
		return models.Apply(base, method, patch, at), nil
	})
	if err != nil {
		s.log.Warn(ctx, "could not update cache", "category", category, "error", err)
	}
	return e
}
