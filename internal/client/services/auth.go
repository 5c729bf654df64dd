// Package services contains application services for the healthsync client.
// This file defines the authentication service: login against the backend,
// session persistence across restarts, liveness probe and logout.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/client/client"
	"github.com/dmitrijs2005/healthsync/internal/client/storage"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the session locally.
//   - Resume: restore a persisted session into the client, if there is one.
//   - Logout: forget the persisted session.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  storage.Store
	log    logging.Logger
}

func NewAuthService(c client.Client, store storage.Store, log logging.Logger) AuthService {
	return &authService{client: c, store: store, log: log.With("module", "auth")}
}

// Login authenticates and saves the username and refresh token so a later
// process can Resume without asking for the password again.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	if err := a.client.Login(ctx, username, string(password)); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	sess := a.client.Session()
	if err := a.store.Set(ctx, common.SessionUserKey, []byte(username)); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	if sess.RefreshToken != "" {
		if err := a.store.Set(ctx, common.SessionRefreshKey, []byte(sess.RefreshToken)); err != nil {
			return fmt.Errorf("session saving error: %w", err)
		}
	}
	a.log.Info(ctx, "logged in", "user", username)
	return nil
}

// Resume returns the saved username, or "" when no session was saved. The
// refresh token, if any, is installed in the client and exchanged for an
// access token on the first authenticated call.
func (a *authService) Resume(ctx context.Context) (string, error) {
	user, err := a.store.Get(ctx, common.SessionUserKey)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	refresh, err := a.store.Get(ctx, common.SessionRefreshKey)
	if err != nil {
		return "", err
	}
	a.client.Restore(client.Session{RefreshToken: string(refresh)})
	return string(user), nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.Restore(client.Session{})
	if err := a.store.Delete(ctx, common.SessionRefreshKey); err != nil {
		return err
	}
	return a.store.Delete(ctx, common.SessionUserKey)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
