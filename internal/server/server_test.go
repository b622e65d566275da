package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/ghettovoice/clickback/callback"
	"github.com/ghettovoice/clickback/internal/log"
	"github.com/ghettovoice/clickback/internal/server"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T, opts *server.Options) *server.Server {
	t.Helper()

	reg := callback.NewRegistry[string](&callback.Options{
		SweepInterval: -1,
		Logger:        log.Noop,
	})
	t.Cleanup(func() { reg.Close(context.Background()) }) //nolint:errcheck

	if opts == nil {
		opts = &server.Options{}
	}
	opts.Logger = log.Noop
	return server.New(callback.NewProvider(reg, callback.CommandCodec{}), opts)
}

func do(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("json.Encode() error = %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

type created struct {
	Handle  string `json:"handle"`
	Command string `json:"command"`
}

func create(t *testing.T, srv *server.Server, body any) created {
	t.Helper()

	rec := do(t, srv, http.MethodPost, "/callbacks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /callbacks status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var res created
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return res
}

func dispatch(t *testing.T, srv *server.Server, aud, cmd string) (int, bool) {
	t.Helper()

	rec := do(t, srv, http.MethodPost, "/commands", map[string]string{"audience": aud, "command": cmd})
	var res struct {
		Ran bool `json:"ran"`
	}
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal() error = %v", err)
		}
	}
	return rec.Code, res.Ran
}

func TestServer_CreateAndDispatch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	res := create(t, srv, map[string]any{"message": "hello"})

	if want := callback.DefaultCommandPrefix + " " + res.Handle; res.Command != want {
		t.Errorf("command = %q, want %q", res.Command, want)
	}

	// default budget is a single use
	if code, ran := dispatch(t, srv, "alice", res.Command); code != http.StatusOK || !ran {
		t.Errorf("first dispatch = (%d, %v), want (200, true)", code, ran)
	}
	if code, ran := dispatch(t, srv, "bob", res.Command); code != http.StatusOK || ran {
		t.Errorf("second dispatch = (%d, %v), want (200, false)", code, ran)
	}
	if got := srv.Delivered(); got != 1 {
		t.Errorf("srv.Delivered() = %d, want 1", got)
	}
}

func TestServer_CreateWithBudget(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	res := create(t, srv, map[string]any{"message": "hi", "uses": 3, "lifetime": "1h"})

	var got []bool
	for range 4 {
		_, ran := dispatch(t, srv, "alice", res.Command)
		got = append(got, ran)
	}
	if diff := cmp.Diff([]bool{true, true, true, false}, got); diff != "" {
		t.Errorf("dispatch results mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_DefaultsFromOptions(t *testing.T) {
	t.Parallel()

	uses := callback.UnlimitedUses
	srv := newServer(t, &server.Options{Uses: &uses})
	res := create(t, srv, map[string]any{"message": "hi"})

	for i := range 5 {
		if _, ran := dispatch(t, srv, "alice", res.Command); !ran {
			t.Fatalf("dispatch #%d ran = false, want true", i+1)
		}
	}
}

func TestServer_CreateBadRequest(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	cases := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"no message", map[string]any{"uses": 1}},
		{"bad lifetime", map[string]any{"message": "hi", "lifetime": "soon"}},
		{"negative lifetime", map[string]any{"message": "hi", "lifetime": "-1s"}},
		{"bad uses", map[string]any{"message": "hi", "uses": -2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if rec := do(t, srv, http.MethodPost, "/callbacks", c.body); rec.Code != http.StatusBadRequest {
				t.Errorf("POST /callbacks status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestServer_DispatchBadRequest(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	cases := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"no audience", map[string]string{"command": callback.DefaultCommandPrefix}},
		{"bad prefix", map[string]string{"audience": "alice", "command": "/other callback 123"}},
		{"bad handle", map[string]string{"audience": "alice", "command": callback.DefaultCommandPrefix + " nope"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if rec := do(t, srv, http.MethodPost, "/commands", c.body); rec.Code != http.StatusBadRequest {
				t.Errorf("POST /commands status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestServer_DispatchUnknown(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	cmd := callback.CommandCodec{}.Format(callback.UUIDHandleFactory{}.NewHandle())
	if code, ran := dispatch(t, srv, "alice", cmd); code != http.StatusOK || ran {
		t.Errorf("dispatch = (%d, %v), want (200, false)", code, ran)
	}
}

func TestServer_Stats(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	res := create(t, srv, map[string]any{"message": "hi"})
	dispatch(t, srv, "alice", res.Command)
	dispatch(t, srv, "alice", res.Command)

	rec := do(t, srv, http.MethodGet, "/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /stats status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got callback.StatsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	want := callback.StatsReport{
		Registered: 1,
		Runs:       1,
		Misses:     callback.MissStats{NotFound: 1},
		Evictions:  callback.EvictionStats{Exhausted: 1},
	}
	got.Time = time.Time{}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	create(t, srv, map[string]any{"message": "hi"})

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	for _, want := range []string{
		"clickback_callbacks_active 1",
		"clickback_callbacks_registered_total 1",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("GET /metrics body does not contain %q", want)
		}
	}
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	ls, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ls) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("srv.Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("srv.Serve() did not return after context cancellation")
	}
}
