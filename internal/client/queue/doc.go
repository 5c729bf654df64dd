// Package queue implements the durable FIFO of writes made while the remote
// service was unreachable.
//
// # Storage
//
// The whole queue is one JSON array of models.QueuedMutation stored under
// common.QueueStorageKey in a storage.Store. Every mutating operation is a
// single storage.Store.Update call, so concurrent callers never lose each
// other's writes.
//
// # Failure handling
//
// Storage failures are logged and returned as *common.StorageError. A queue
// blob that no longer decodes is reported by GetAll as an empty list together
// with a *common.QueueCorruptionError; the next write replaces it.
//
// Typical usage
//
//	q := queue.New(store, log)
//	m, _ := q.Enqueue(ctx, models.CategoryProfile, "/auth/profile", models.MethodPut, patch)
//	all, _ := q.GetAll(ctx)
//	_ = q.Remove(ctx, m.ID)
package queue
