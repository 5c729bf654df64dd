package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/storage"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxRetries is the prune threshold used when a caller passes <= 0.
const DefaultMaxRetries = 3

var errUnchanged = errors.New("queue unchanged")

type Queue struct {
	store storage.Store
	log   logging.Logger
	now   func() time.Time
}

func New(store storage.Store, log logging.Logger) *Queue {
	return &Queue{
		store: store,
		log:   log.With("module", "queue"),
		now:   time.Now,
	}
}

func (q *Queue) newID(at time.Time) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), uuid.NewString()[:8])
}

func decode(raw []byte) ([]models.QueuedMutation, error) {
	if raw == nil {
		return nil, nil
	}
	var items []models.QueuedMutation
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &common.QueueCorruptionError{Key: common.QueueStorageKey, Err: err}
	}
	return items, nil
}

// mutate runs fn over the current queue inside one storage transaction.
// fn returns errUnchanged to skip the write.
func (q *Queue) mutate(ctx context.Context, op string, fn func([]models.QueuedMutation) ([]models.QueuedMutation, error)) error {
	err := q.store.Update(ctx, common.QueueStorageKey, func(old []byte) ([]byte, error) {
		items, err := decode(old)
		if err != nil {
			q.log.Warn(ctx, "replacing corrupt offline queue", "op", op, "error", err)
			items = nil
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []models.QueuedMutation{}
		}
		return json.Marshal(next)
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		q.log.Error(ctx, "queue write failed", "op", op, "error", err)
		return err
	}
	return nil
}

// Enqueue appends a new mutation with a fresh id and zero retries.
func (q *Queue) Enqueue(ctx context.Context, category models.Category, endpoint string, method models.Method, payload models.Payload) (models.QueuedMutation, error) {
	if !method.Valid() {
		return models.QueuedMutation{}, fmt.Errorf("enqueue: unsupported method %q", method)
	}

	at := q.now().UTC()
	m := models.QueuedMutation{
		ID:         q.newID(at),
		Category:   category,
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload.Clone(),
		EnqueuedAt: at,
	}

	err := q.mutate(ctx, "enqueue", func(items []models.QueuedMutation) ([]models.QueuedMutation, error) {
		return append(items, m), nil
	})
	if err != nil {
		return models.QueuedMutation{}, err
	}

	q.log.Debug(ctx, "mutation queued", "id", m.ID, "category", category, "method", method)
	return m, nil
}

// GetAll returns the queued mutations oldest first. An absent queue is an
// empty list. A corrupt queue is an empty list plus a
// *common.QueueCorruptionError.
func (q *Queue) GetAll(ctx context.Context) ([]models.QueuedMutation, error) {
	raw, err := q.store.Get(ctx, common.QueueStorageKey)
	if err != nil {
		q.log.Error(ctx, "queue read failed", "error", err)
		return []models.QueuedMutation{}, err
	}
	items, err := decode(raw)
	if err != nil {
		q.log.Error(ctx, "offline queue is corrupt", "error", err)
		return []models.QueuedMutation{}, err
	}
	if items == nil {
		items = []models.QueuedMutation{}
	}
	return items, nil
}

// ForCategory returns the pending mutations of one category, oldest first.
func (q *Queue) ForCategory(ctx context.Context, category models.Category) ([]models.QueuedMutation, error) {
	all, err := q.GetAll(ctx)
	out := make([]models.QueuedMutation, 0, len(all))
	for _, m := range all {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out, err
}

// Remove deletes the mutation with the given id. Absent ids are ignored.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.mutate(ctx, "remove", func(items []models.QueuedMutation) ([]models.QueuedMutation, error) {
		i := slices.IndexFunc(items, func(m models.QueuedMutation) bool { return m.ID == id })
		if i < 0 {
			return nil, errUnchanged
		}
		return slices.Delete(items, i, i+1), nil
	})
}

// IncrementRetry bumps the retry counter of one mutation.
func (q *Queue) IncrementRetry(ctx context.Context, id string) error {
	return q.RecordFailure(ctx, id, nil)
}

// RecordFailure bumps the retry counter of one mutation and, when cause is
// non-nil, stores its text as the last error.
func (q *Queue) RecordFailure(ctx context.Context, id string, cause error) error {
	return q.mutate(ctx, "increment_retry", func(items []models.QueuedMutation) ([]models.QueuedMutation, error) {
		i := slices.IndexFunc(items, func(m models.QueuedMutation) bool { return m.ID == id })
		if i < 0 {
			return nil, errUnchanged
		}
		items[i].Retries++
		if cause != nil {
			items[i].LastError = cause.Error()
		}
		return items, nil
	})
}

// PruneFailed drops every mutation with retries >= maxRetries and reports how
// many were removed. maxRetries <= 0 means DefaultMaxRetries.
func (q *Queue) PruneFailed(ctx context.Context, maxRetries int) (int, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	removed := 0
	err := q.mutate(ctx, "prune", func(items []models.QueuedMutation) ([]models.QueuedMutation, error) {
		kept := slices.DeleteFunc(items, func(m models.QueuedMutation) bool {
			return m.Retries >= maxRetries
		})
		removed = len(items) - len(kept)
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		q.log.Warn(ctx, "dropped mutations after too many retries", "count", removed, "max_retries", maxRetries)
	}
	return removed, nil
}

func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.Delete(ctx, common.QueueStorageKey); err != nil {
		q.log.Error(ctx, "queue clear failed", "error", err)
		return err
	}
	return nil
}

func (q *Queue) Size(ctx context.Context) (int, error) {
	items, err := q.GetAll(ctx)
	return len(items), err
}
