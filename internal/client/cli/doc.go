// Package cli provides the interactive healthsync command-line client.
//
// It wires configuration, local storage, the remote client, the connectivity
// observer and the sync coordinator, then runs a REPL. Typical flow: resume
// or prompt for a session, start the background watchers, and execute user
// commands.
//
// Key features:
//   - Login / Logout
//   - Show a category (served from cache when the backend is unreachable)
//   - Set or unset fields (queued for replay while offline)
//   - Inspect, replay, prune and clear the offline queue
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
