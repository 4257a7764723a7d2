package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// fakeAPI is a scripted payments service for tests. Handlers are registered
// per path; every hit is counted.
type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	bodies   map[string][][]byte
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		calls:    make(map[string]int),
		bodies:   make(map[string][][]byte),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], body)
		handler := f.handlers[r.URL.Path]
		f.mu.Unlock()

		if handler == nil {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	return f
}

func (f *fakeAPI) close() {
	f.srv.Close()
}

// handle registers a scripted response for a path.
func (f *fakeAPI) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// respond registers a static JSON response for a path.
func (f *fakeAPI) respond(path string, status int, v interface{}) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	})
}

func (f *fakeAPI) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// lastBody decodes the most recent request body sent to a path.
func (f *fakeAPI) lastBody(t *testing.T, path string, out interface{}) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := f.bodies[path]
	if len(bodies) == 0 {
		t.Fatalf("no requests recorded for %s", path)
	}
	if err := json.Unmarshal(bodies[len(bodies)-1], out); err != nil {
		t.Fatalf("failed to decode body for %s: %v", path, err)
	}
}

// newTestClient builds a client against the fake API with fast intervals.
func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	client, err := New(Config{
		APIBaseURL:           f.srv.URL,
		APIKey:               "test-key",
		DebounceInterval:     20 * time.Millisecond,
		RefreshInterval:      time.Hour, // opt in per test
		PollInterval:         10 * time.Millisecond,
		RecoveryPollInterval: 10 * time.Millisecond,
	}, opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// fakeSigner is a scripted signing boundary.
type fakeSigner struct {
	mu      sync.Mutex
	address string
	err     error
	signed  []apitypes.TypedData
}

func (s *fakeSigner) Address(ctx context.Context) (string, error) {
	return s.address, nil
}

func (s *fakeSigner) SignTypedData(ctx context.Context, typedData apitypes.TypedData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.signed = append(s.signed, typedData)
	return "0xsigned", nil
}

func (s *fakeSigner) signedData() []apitypes.TypedData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apitypes.TypedData(nil), s.signed...)
}

const testOwner = "0x1111111111111111111111111111111111111111"
