package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	Unset(ctx context.Context, args []string) error
	Queue(ctx context.Context) error
	Sync(ctx context.Context) error
	Prune(ctx context.Context) error
	Clear(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, status, show <category>, queue, exit"
	helpLoggedIn  = "Available commands: status, show <category>, set <category> name=value..., " +
		"unset <category> field..., queue, sync, prune, clear, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the healthsync CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                         show available commands
//	  - status                       connectivity, queue size, cached categories
//	  - show <category>              read a category, cache-first when offline
//	  - queue                        list pending mutations
//	  - exit | quit                  leave the program
//
//	Not logged in:
//	  - login                        authenticate
//
//	Logged in:
//	  - set <category> name=value    write fields (queued while offline)
//	  - unset <category> field...    remove fields
//	  - sync                         replay the queue now
//	  - prune                        drop mutations over the retry limit
//	  - clear                        drop cached data and the queue
//	  - logout                       forget the session
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("healthsync %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "queue":
			cmdErr = a.Queue(ctx)

		case "set", "unset", "sync", "prune", "clear", "logout":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			switch cmd {
			case "set":
				cmdErr = a.Set(ctx, args)
			case "unset":
				cmdErr = a.Unset(ctx, args)
			case "sync":
				cmdErr = a.Sync(ctx)
			case "prune":
				cmdErr = a.Prune(ctx)
			case "clear":
				cmdErr = a.Clear(ctx)
			case "logout":
				cmdErr = a.Logout(ctx)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
