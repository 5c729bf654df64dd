package services

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/cache"
	"github.com/dmitrijs2005/healthsync/internal/client/client"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/netstatus"
	"github.com/dmitrijs2005/healthsync/internal/client/queue"
	"github.com/dmitrijs2005/healthsync/internal/client/storage"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

type sendCall struct {
	Method   models.Method
	Endpoint string
	Payload  models.Payload
}

// fakeClient is an in-memory backend implementing client.Client.
type fakeClient struct {
	mu sync.Mutex

	records map[string]models.Payload

	offline bool
	// reject maps endpoint to the status returned for writes.
	reject   map[string]int
	fetchErr error
	// failAfter makes Send return a network error once this many sends
	// succeeded; negative disables it.
	failAfter int
	// gate, when set, blocks every Send until it is closed.
	gate chan struct{}

	sends      []sendCall
	fetches    []string
	session    client.Session
	loginErr   error
	loginUser  string
	loginPass  string
	closeCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records:   map[string]models.Payload{},
		reject:    map[string]int{},
		failAfter: -1,
	}
}

var errDial = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

func (f *fakeClient) netErr(op string) error {
	return &common.NetworkError{Op: op, Err: errDial}
}

func (f *fakeClient) setOffline(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = v
}

func (f *fakeClient) sent() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

func (f *fakeClient) Fetch(ctx context.Context, endpoint string) (models.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, endpoint)
	if f.offline {
		return nil, f.netErr("GET " + endpoint)
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rec, ok := f.records[endpoint]
	if !ok {
		return nil, &common.ServerError{Status: http.StatusNotFound}
	}
	return rec.Clone(), nil
}

func (f *fakeClient) Send(ctx context.Context, method models.Method, endpoint string, payload models.Payload) (models.Payload, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline || f.failAfter == 0 {
		return nil, f.netErr(string(method) + " " + endpoint)
	}
	f.sends = append(f.sends, sendCall{Method: method, Endpoint: endpoint, Payload: payload.Clone()})
	if status, ok := f.reject[endpoint]; ok {
		return nil, &common.ServerError{Status: status, Message: "rejected"}
	}
	if f.failAfter > 0 {
		f.failAfter--
	}

	rec := f.records[endpoint].Clone()
	switch method {
	case models.MethodDelete:
		delete(f.records, endpoint)
		return nil, nil
	default:
		for k, v := range payload {
			rec[k] = v
		}
		f.records[endpoint] = rec
		return rec.Clone(), nil
	}
}

func (f *fakeClient) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return f.netErr("GET /ping")
	}
	return nil
}

func (f *fakeClient) Login(ctx context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginUser, f.loginPass = username, password
	if f.loginErr != nil {
		return f.loginErr
	}
	f.session = client.Session{AccessToken: "A1", RefreshToken: "R1"}
	return nil
}

func (f *fakeClient) Session() client.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeClient) Restore(s client.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

// ---- test environment ----

type env struct {
	client *fakeClient
	store  *storage.SQLiteStore
	cache  *cache.Cache
	queue  *queue.Queue
	net    *netstatus.Observer
	res    *ResourceService
	sync   *Coordinator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logging.Discard()
	st := storage.NewSQLiteStore(db)
	fc := newFakeClient()
	ch := cache.New(st, log)
	q := queue.New(st, log)
	obs := netstatus.New(fc, time.Hour, log)

	return &env{
		client: fc,
		store:  st,
		cache:  ch,
		queue:  q,
		net:    obs,
		res:    NewResourceService(fc, ch, q, obs, log),
		sync:   NewCoordinator(fc, ch, q, obs, 3, time.Hour, log),
	}
}

func (e *env) goOffline() {
	e.client.setOffline(true)
	e.net.SetOnline(false)
}

func (e *env) goOnline() {
	e.client.setOffline(false)
	e.net.SetOnline(true)
}

func (e *env) queueSize(t *testing.T) int {
	t.Helper()
	n, err := e.queue.Size(context.Background())
	require.NoError(t, err)
	return n
}
