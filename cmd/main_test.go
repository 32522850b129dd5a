package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pterm/pterm"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/config"
	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/token"
	"github.com/luca-patrignani/resonance/identity"
	"github.com/luca-patrignani/resonance/metrics"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testRoot() *rootOptions {
	return &rootOptions{cfg: config.Default(), logger: quiet}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func signedLine(t *testing.T, id *identity.Identity, p event.Payload) string {
	t.Helper()
	e := event.New(id, p, time.Now())
	if err := e.Sign(id); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestParseEdges(t *testing.T) {
	edges, err := parseEdges([]string{"abc=0.5", "def=1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 2 || edges[0].Target != "abc" || edges[0].Weight != 0.5 || edges[1].Weight != 1 {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	for _, bad := range []string{"abc", "=0.3", "abc=heavy"} {
		if _, err := parseEdges([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSignPayloadKinds(t *testing.T) {
	o := &signOptions{content: "c", nodeID: "n", score: 0.4, parentID: "p", summary: "s"}
	for _, k := range []event.Kind{event.KindContribute, event.KindValidate, event.KindEvolve, event.KindAnchor} {
		o.kind = string(k)
		p, err := o.payload()
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}
		if p.Kind() != k {
			t.Fatalf("expected %s payload, got %s", k, p.Kind())
		}
	}
	o.kind = "gossip"
	if _, err := o.payload(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestFormatTokens(t *testing.T) {
	cases := map[uint64]string{
		0:                   "0.0000 RES",
		token.Unit:          "1.0000 RES",
		token.Unit / 100:    "0.0100 RES",
		3*token.Unit + 5e14: "3.0005 RES",
	}
	for in, want := range cases {
		if got := formatTokens(in); got != want {
			t.Fatalf("formatTokens(%d) = %q, want %q", in, got, want)
		}
	}
}

// TestSignCommandProducesValidEvent runs the sign command end to end and
// checks that the printed event verifies.
func TestSignCommandProducesValidEvent(t *testing.T) {
	id, _ := identity.New()
	out, err := execute(t, "sign", "--secret", id.Secret(), "--kind", "contribute", "--content", "hello", "--edge", "abc=0.25")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	var e event.Event
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &e); err != nil {
		t.Fatalf("output is not an event: %v", err)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("signed event does not validate: %v", err)
	}
	if e.Sender != id.Address() {
		t.Fatal("wrong sender")
	}
	c, ok := e.Payload.(event.Contribute)
	if !ok || c.Content != "hello" || len(c.Edges) != 1 {
		t.Fatalf("unexpected payload %+v", e.Payload)
	}
}

func TestSignCommandRejectsIncompleteEvent(t *testing.T) {
	id, _ := identity.New()
	if _, err := execute(t, "sign", "--secret", id.Secret(), "--kind", "validate", "--score", "0.5"); err == nil {
		t.Fatal("expected error for validate without node")
	}
	if _, err := execute(t, "sign", "--kind", "anchor", "--summary", "x"); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestIdentityCommandJSON(t *testing.T) {
	out, err := execute(t, "identity", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v identityView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	id, err := identity.FromSecret(v.Secret)
	if err != nil {
		t.Fatal(err)
	}
	if id.Address() != v.Address || id.PublicKey() != v.PublicKey {
		t.Fatal("printed identity is inconsistent")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, "resonance version") {
		t.Fatalf("unexpected output %q, err %v", out, err)
	}
}

func TestIngest(t *testing.T) {
	node, _, err := bootstrap(context.Background(), config.Default(), 1, application.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := identity.New()
	good := signedLine(t, id, event.Contribute{Content: "one"})
	input := strings.Join([]string{
		good,
		"",
		"{not json",
		signedLine(t, id, event.Anchor{Summary: "two"}),
		good,
	}, "\n")

	accepted, rejected, err := ingest(strings.NewReader(input), node, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 2 || rejected != 2 {
		t.Fatalf("expected 2 accepted and 2 rejected, got %d and %d", accepted, rejected)
	}
	if len(node.Pending()) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(node.Pending()))
	}
}

func TestStatusRouter(t *testing.T) {
	col := metrics.New()
	node, founders, err := bootstrap(context.Background(), config.Default(), 1, application.WithLogger(quiet), application.WithMetrics(col))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := identity.New()
	if _, err := node.Submit(id, event.Contribute{Content: "Status check"}); err != nil {
		t.Fatal(err)
	}
	if _, err := node.CreateBlock(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(statusRouter(node, col))
	defer srv.Close()

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/stats", http.StatusOK, `"height": 1`},
		{"/blocks?limit=1", http.StatusOK, `"event_count": 1`},
		{"/blocks?limit=0", http.StatusBadRequest, "invalid limit"},
		{"/blocks/0", http.StatusOK, `"witness": "genesis"`},
		{"/blocks/x", http.StatusBadRequest, "invalid height"},
		{"/blocks/9", http.StatusNotFound, "out of range"},
		{"/query?q=status", http.StatusOK, "Status check"},
		{"/metrics", http.StatusOK, "resonance_blocks_created_total 1"},
		{"/witnesses", http.StatusOK, founders[0].Address()},
		{"/witnesses/" + founders[0].Address(), http.StatusOK, `"participation": 1`},
		{"/witnesses/nobody", http.StatusNotFound, "unknown witness"},
	}
	for _, c := range cases {
		resp, err := http.Get(srv.URL + c.path)
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != c.status {
			t.Fatalf("%s: expected status %d, got %d", c.path, c.status, resp.StatusCode)
		}
		if !strings.Contains(string(body), c.body) {
			t.Fatalf("%s: body %q does not contain %q", c.path, body, c.body)
		}
	}
}

// TestRunDrainsEvents loads an events file and ticks a mock clock until the
// node has put every event in a block.
func TestRunDrainsEvents(t *testing.T) {
	id, _ := identity.New()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	lines := signedLine(t, id, event.Contribute{Content: "alpha"}) + "\n" + signedLine(t, id, event.Anchor{Summary: "beta"}) + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}

	mock := clock.NewMock()
	opts := &runOptions{eventsPath: path, interval: time.Second, witnesses: 2, drain: true, mineTimeout: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runNode(ctx, testRoot(), opts, mock) }()
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			return
		case <-ctx.Done():
			t.Fatal("run did not drain the pool")
		case <-time.After(5 * time.Millisecond):
			mock.Add(time.Second)
		}
	}
}

// TestRunEvictsUnappliableEvent verifies that an event naming an unknown
// parent is dropped from the pool and the valid events still commit.
func TestRunEvictsUnappliableEvent(t *testing.T) {
	id, _ := identity.New()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	lines := signedLine(t, id, event.Contribute{Content: "alpha"}) + "\n" +
		signedLine(t, id, event.Evolve{ParentID: "missing", NewContent: "orphan"}) + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}

	mock := clock.NewMock()
	root := testRoot()
	col := metrics.New()
	node, _, err := bootstrap(context.Background(), root.cfg, 2, application.WithLogger(quiet), application.WithMetrics(col), application.WithClock(mock))
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if accepted, _, err := ingest(f, node, quiet); err != nil || accepted != 2 {
		t.Fatalf("expected 2 accepted events, got %d (err %v)", accepted, err)
	}

	mineOnce(context.Background(), node, time.Minute, quiet)
	if len(node.Pending()) != 1 || node.ChainLength() != 1 {
		t.Fatalf("expected the orphan evicted and no block, got %d pending and %d blocks", len(node.Pending()), node.ChainLength())
	}
	mineOnce(context.Background(), node, time.Minute, quiet)
	if len(node.Pending()) != 0 || node.ChainLength() != 2 {
		t.Fatalf("expected alpha committed, got %d pending and %d blocks", len(node.Pending()), node.ChainLength())
	}
	if res := node.QueryContent("alpha", 0); len(res) != 1 {
		t.Fatalf("expected alpha in the graph, got %d results", len(res))
	}
}

// TestRunDrainsPastUnappliableEvent runs the node loop in drain mode and
// checks that it exits on its own when one event can never be applied.
func TestRunDrainsPastUnappliableEvent(t *testing.T) {
	id, _ := identity.New()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	lines := signedLine(t, id, event.Contribute{Content: "alpha"}) + "\n" +
		signedLine(t, id, event.Evolve{ParentID: "missing", NewContent: "orphan"}) + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}

	mock := clock.NewMock()
	opts := &runOptions{eventsPath: path, interval: time.Second, witnesses: 2, drain: true, mineTimeout: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runNode(ctx, testRoot(), opts, mock) }()
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if ctx.Err() != nil {
				t.Fatal("run only stopped because the context expired")
			}
			return
		case <-ctx.Done():
			t.Fatal("run did not drain the pool")
		case <-time.After(5 * time.Millisecond):
			mock.Add(time.Second)
		}
	}
}

func TestDemoRuns(t *testing.T) {
	pterm.DisableOutput()
	defer pterm.EnableOutput()
	if err := runDemo(context.Background(), testRoot(), 3); err != nil {
		t.Fatalf("demo failed: %v", err)
	}
}
