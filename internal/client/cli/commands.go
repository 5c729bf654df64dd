package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/common"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	printlnFn(string(b))
	return nil
}

func printResult(r services.Result) error {
	if err := printJSON(r.Entity.Payload); err != nil {
		return err
	}
	switch {
	case r.Queued:
		printlnFn("(saved locally, queued for sync)")
	case r.Stale:
		printlnFn(fmt.Sprintf("(offline, cached at %s)", r.Entity.UpdatedAt.Local().Format(time.DateTime)))
	}
	return nil
}

func parseCategoryArg(args []string, usage string) (models.Category, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	c, err := models.ParseCategory(args[0])
	if err != nil {
		return "", nil, err
	}
	return c, args[1:], nil
}

// Status prints connectivity, the number of queued changes and what is cached.
func (a *App) Status(ctx context.Context) error {
	printlnFn("Mode:", a.net.Status())
	if a.userName != "" {
		printlnFn("User:", a.userName)
	}

	n, err := a.queue.Size(ctx)
	if err != nil {
		printlnFn("Queued changes: unreadable:", err)
	} else {
		printlnFn("Queued changes:", n)
	}

	cached, err := a.cache.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range models.Categories {
		if e, ok := cached[c]; ok {
			printlnFn(fmt.Sprintf("  %-14s cached %s", c, e.UpdatedAt.Local().Format(time.DateTime)))
		} else {
			printlnFn(fmt.Sprintf("  %-14s not cached", c))
		}
	}
	return nil
}

// Show reads a category from the backend, falling back to the cache.
func (a *App) Show(ctx context.Context, args []string) error {
	c, _, err := parseCategoryArg(args, "show <category>")
	if err != nil {
		return err
	}

	r, err := a.resources.Get(ctx, c)
	if err != nil {
		if errors.Is(err, common.ErrCacheMiss) {
			return fmt.Errorf("%s is not available offline and nothing is cached: %w", c, err)
		}
		return err
	}
	return printResult(r)
}

// Set writes name=value fields to a category. Without inline assignments the
// fields are read interactively.
func (a *App) Set(ctx context.Context, args []string) error {
	c, rest, err := parseCategoryArg(args, "set <category> name=value...")
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		rest, err = GetAssignments(a.reader, a.out)
		if err != nil {
			return err
		}
		if len(rest) == 0 {
			return fmt.Errorf("nothing to set")
		}
	}

	patch, err := models.PayloadFromAssignments(rest)
	if err != nil {
		return err
	}

	r, err := a.resources.Update(ctx, c, patch)
	if err != nil {
		return err
	}
	return printResult(r)
}

// Unset removes the named fields from a category.
func (a *App) Unset(ctx context.Context, args []string) error {
	c, fields, err := parseCategoryArg(args, "unset <category> field...")
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("usage: unset <category> field...")
	}

	patch := make(models.Payload, len(fields))
	for _, f := range fields {
		patch[f] = nil
	}

	r, err := a.resources.Write(ctx, c, models.MethodDelete, patch)
	if err != nil {
		return err
	}
	return printResult(r)
}

// Queue lists pending mutations in replay order.
func (a *App) Queue(ctx context.Context) error {
	items, err := a.queue.GetAll(ctx)
	if err != nil {
		if errors.Is(err, common.ErrQueueCorrupt) {
			printlnFn("Stored queue is unreadable and will be replaced on the next write")
			return nil
		}
		return err
	}
	if len(items) == 0 {
		printlnFn("Queue is empty")
		return nil
	}

	for i, m := range items {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%d. [%s] %s %s %s retries=%d", i+1, m.ID, m.Method, m.Endpoint, payload, m.Retries)
		if m.LastError != "" {
			line += " last_error=" + m.LastError
		}
		printlnFn(line)
	}
	return nil
}

// Sync replays the queue now. When the backend is not known to be reachable
// it is probed first.
func (a *App) Sync(ctx context.Context) error {
	if !a.net.IsOnline() {
		a.net.Check(ctx)
	}
	if !a.net.IsOnline() {
		n, err := a.queue.Size(ctx)
		if err != nil {
			return err
		}
		printlnFn(fmt.Sprintf("Server unavailable, %d change(s) remain queued", n))
		return nil
	}

	r, err := a.coordinator.Drain(ctx)
	if err != nil {
		return err
	}

	parts := []string{
		fmt.Sprintf("applied %d", r.Applied),
		fmt.Sprintf("failed %d", r.Failed),
	}
	if r.Pruned > 0 {
		parts = append(parts, fmt.Sprintf("dropped %d", r.Pruned))
	}
	parts = append(parts, fmt.Sprintf("remaining %d", r.Remaining))
	printlnFn("Sync:", strings.Join(parts, ", "))
	if r.Interrupted {
		printlnFn("Connection lost during sync")
	}
	return nil
}

// Prune drops queued changes that reached the retry limit.
func (a *App) Prune(ctx context.Context) error {
	n, err := a.queue.PruneFailed(ctx, a.config.MaxRetries)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Dropped %d change(s)", n))
	return nil
}

// Clear drops every cached category and all queued changes after confirmation.
func (a *App) Clear(ctx context.Context) error {
	n, err := a.queue.Size(ctx)
	if err != nil && !errors.Is(err, common.ErrQueueCorrupt) {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Drop cached data and %d queued change(s)? Type 'yes' to confirm", n), a.out)
	if err != nil {
		return err
	}
	if !slices.Contains([]string{"yes", "y"}, strings.ToLower(answer)) {
		printlnFn("Cancelled")
		return nil
	}

	if err := a.queue.Clear(ctx); err != nil {
		return err
	}
	for _, c := range models.Categories {
		if err := a.cache.Delete(ctx, c); err != nil {
			return err
		}
	}
	printlnFn("Local data cleared")
	return nil
}
