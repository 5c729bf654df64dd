package models

import "time"

// CachedEntity is the last-known-good snapshot of one category.
//
// Fields records, per top-level payload field, when it was last written
// locally. Server snapshots carry no clocks of their own.
type CachedEntity struct {
	Category  Category             `json:"category"`
	Payload   Payload              `json:"payload"`
	UpdatedAt time.Time            `json:"updated_at"`
	Fields    map[string]time.Time `json:"fields,omitempty"`
}

func (e CachedEntity) clone() CachedEntity {
	out := CachedEntity{
		Category:  e.Category,
		Payload:   e.Payload.Clone(),
		UpdatedAt: e.UpdatedAt,
		Fields:    make(map[string]time.Time, len(e.Fields)),
	}
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	return out
}

// Merge applies a partial update written at time at. A field whose recorded
// clock is newer than at keeps its current value (last writer wins).
func Merge(base CachedEntity, patch Payload, at time.Time) CachedEntity {
	out := base.clone()
	for k, v := range patch {
		if clock, ok := out.Fields[k]; ok && clock.After(at) {
			continue
		}
		out.Payload[k] = v
		out.Fields[k] = at
	}
	if at.After(out.UpdatedAt) {
		out.UpdatedAt = at
	}
	return out
}

// Apply replays a mutation of the given method onto base. DELETE removes
// the named fields, or the whole payload when patch is empty.
func Apply(base CachedEntity, method Method, patch Payload, at time.Time) CachedEntity {
	if method != MethodDelete {
		return Merge(base, patch, at)
	}
	out := base.clone()
	if len(patch) == 0 {
		out.Payload = Payload{}
		out.Fields = map[string]time.Time{}
	}
	for k := range patch {
		if clock, ok := out.Fields[k]; ok && clock.After(at) {
			continue
		}
		delete(out.Payload, k)
		out.Fields[k] = at
	}
	if at.After(out.UpdatedAt) {
		out.UpdatedAt = at
	}
	return out
}

// Reconcile builds the cache entry for a fresh server snapshot fetched at
// time at. Mutations still pending for the category are re-applied in order,
// so a refresh never hides queued local edits.
func Reconcile(category Category, server Payload, at time.Time, pending []QueuedMutation) CachedEntity {
	out := CachedEntity{
		Category:  category,
		Payload:   server.Clone(),
		UpdatedAt: at,
		Fields:    map[string]time.Time{},
	}
	for _, m := range pending {
		if m.Category != category {
			continue
		}
		out = Apply(out, m.Method, m.Payload, m.EnqueuedAt)
	}
	return out
}
