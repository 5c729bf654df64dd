package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/client/config"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
)

// Session is the pair of tokens issued at login.
type Session struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	// Fetch reads the resource at endpoint.
	Fetch(ctx context.Context, endpoint string) (models.Payload, error)
	// Send writes payload to endpoint with method and returns the server's
	// view of the resource. The result may be empty when the server sends
	// no body.
	Send(ctx context.Context, method models.Method, endpoint string, payload models.Payload) (models.Payload, error)
	Ping(ctx context.Context) error
	Login(ctx context.Context, username, password string) error

	Session() Session
	// Restore installs a previously exported session. An empty access token
	// is refreshed on first use.
	Restore(s Session)
	Close() error
}

// New builds the client selected by cfg.Transport.
func New(cfg *config.Config) (Client, error) {
	switch cfg.Transport {
	case config.TransportREST:
		return NewRESTClient(cfg.ServerURL, cfg.RequestTimeout), nil
	case config.TransportGRPC:
		return NewGRPCClient(cfg.ServerURL, cfg.RequestTimeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
