package cli

import (
	"context"
)

// Root resumes a stored session (or asks for credentials), starts the
// connectivity watcher and the sync coordinator, and runs the REPL until
// the user exits or ctx is canceled.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to healthsync CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	user, err := a.authService.Resume(ctx)
	switch {
	case err != nil:
		a.log.Warn(ctx, "could not resume session", "error", err)
	case user != "":
		a.userName = user
		printlnFn("Resumed session for", user)
	default:
		if err := a.Login(ctx); err != nil {
			printlnFn("Error:", err)
		}
	}

	a.coordinator.Start(ctx)
	a.net.Start(ctx)

	runREPL(ctx, a, a.getStatus, a.reader)
}
