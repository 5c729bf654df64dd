package cli

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts the user for credentials and authenticates against the
// backend. A successful login marks the backend reachable.
//
// The password is wiped before returning. When the backend cannot be reached
// the error is returned and cached data stays readable.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		if common.IsNetwork(err) {
			a.net.SetOnline(false)
			printlnFn("Server unavailable, cached data is still readable")
		}
		return err
	}

	a.net.SetOnline(true)
	a.userName = userName
	printlnFn("Login successful")
	return nil
}

// Logout forgets the stored session. Cached data and queued changes stay
// on disk; use clear to drop them.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}
