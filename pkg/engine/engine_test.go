package engine

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/status"
)

const statusConnected = `{
	"BackendState": "Running",
	"HaveNodeKey": true,
	"Self": {"ID": "self-1", "HostName": "laptop", "TailscaleIPs": ["100.64.0.1"]},
	"Peer": {
		"key-a": {"ID": "peer-a", "HostName": "nas", "TailscaleIPs": ["100.64.0.2"], "Online": true, "ExitNodeOption": true}
	}
}`

func fixedClock() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func staticClient(doc string) *daemon.Client {
	return daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		return daemon.Result{Stdout: []byte(doc)}, nil
	}))
}

func TestEnginePollPipeline(t *testing.T) {
	e := New(staticClient(statusConnected), WithClock(fixedClock))

	events, cancel := e.Subscribe(context.Background(), 8)
	defer cancel()

	e.Poll(context.Background())

	v := e.Snapshot()
	if v.Status.State != status.Connected || v.Status.Identity != "laptop" {
		t.Fatalf("unexpected snapshot: %#v", v.Status)
	}
	if len(v.Roster) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(v.Roster))
	}
	if len(v.ExitNodes) != 1 || v.ExitNodes[0].ID != "peer-a" {
		t.Fatalf("unexpected exit node candidates: %#v", v.ExitNodes)
	}

	// First poll: ConnectionChanged plus two joins.
	kinds := map[EventKind]int{}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			kinds[ev.Kind]++
		case <-time.After(time.Second):
			t.Fatalf("missing events, got %v", kinds)
		}
	}
	if kinds[ConnectionChanged] != 1 || kinds[DeviceJoined] != 2 {
		t.Fatalf("unexpected event mix: %v", kinds)
	}
}

func TestEnginePollFailureKeepsState(t *testing.T) {
	var fail atomic.Bool
	client := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		if fail.Load() {
			return daemon.Result{}, &daemon.ExitError{Args: []string{"status"}, Code: 1, Stderr: "backend stopped"}
		}
		return daemon.Result{Stdout: []byte(statusConnected)}, nil
	}))
	e := New(client, WithClock(fixedClock))

	e.Poll(context.Background())
	good := e.Snapshot()

	fail.Store(true)
	e.Poll(context.Background())
	bad := e.Snapshot()

	if bad.LastErr == nil {
		t.Fatalf("expected recorded poll error")
	}
	if bad.Seq != good.Seq+1 {
		t.Fatalf("expected seq advance on failure: %d -> %d", good.Seq, bad.Seq)
	}
	if !reflect.DeepEqual(good.Status, bad.Status) || !reflect.DeepEqual(good.Roster, bad.Roster) {
		t.Fatalf("failure must not touch last known good state")
	}

	fail.Store(false)
	e.Poll(context.Background())
	if v := e.Snapshot(); v.LastErr != nil {
		t.Fatalf("expected next success to clear the error, got %v", v.LastErr)
	}
}

func TestEngineParseFailureRecorded(t *testing.T) {
	e := New(staticClient("not json at all"), WithClock(fixedClock))
	e.Poll(context.Background())

	v := e.Snapshot()
	var malformed *status.MalformedError
	if !errors.As(v.LastErr, &malformed) {
		t.Fatalf("expected MalformedError in LastErr, got %v", v.LastErr)
	}
	if v.Known {
		t.Fatalf("state should remain unknown after a failed first poll")
	}
}

func TestEngineRefreshReportsIdentity(t *testing.T) {
	e := New(staticClient(statusConnected), WithClock(fixedClock))

	identity, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if identity != "laptop" {
		t.Fatalf("expected identity laptop, got %q", identity)
	}
}

func TestEngineRefreshPropagatesPollError(t *testing.T) {
	client := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		return daemon.Result{}, daemon.ErrNotInstalled
	}))
	e := New(client, WithClock(fixedClock))

	if _, err := e.Refresh(context.Background()); !errors.Is(err, daemon.ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}

func TestEngineCommandsTriggerRefresh(t *testing.T) {
	var calls []string
	client := daemon.NewClient(daemon.RunnerFunc(func(_ context.Context, args ...string) (daemon.Result, error) {
		calls = append(calls, args[0])
		if args[0] == "status" {
			return daemon.Result{Stdout: []byte(statusConnected)}, nil
		}
		return daemon.Result{}, nil
	}))
	e := New(client, WithClock(fixedClock))

	if err := e.SetExitNode(context.Background(), "peer-a"); err != nil {
		t.Fatalf("set exit node: %v", err)
	}
	if len(calls) != 2 || calls[0] != "set" || calls[1] != "status" {
		t.Fatalf("expected set followed by status poll, got %v", calls)
	}

	calls = nil
	if err := e.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if len(calls) != 2 || calls[0] != "down" || calls[1] != "status" {
		t.Fatalf("expected down followed by status poll, got %v", calls)
	}
}

func TestEngineCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir)

	e := New(staticClient(statusConnected), WithClock(fixedClock), WithCache(cache))
	e.Poll(context.Background())
	want := e.Snapshot()

	// A fresh engine over a broken daemon still shows the cached view.
	broken := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		return daemon.Result{}, daemon.ErrNotInstalled
	}))
	e2 := New(broken, WithClock(fixedClock), WithCache(NewCache(dir)))

	v := e2.Snapshot()
	if !v.Known {
		t.Fatalf("expected cache-restored state to be known")
	}
	if !reflect.DeepEqual(want.Status, v.Status) || !reflect.DeepEqual(want.Roster, v.Roster) {
		t.Fatalf("cache round trip mismatch: %#v vs %#v", want, v)
	}
}

func TestCacheLoadMissing(t *testing.T) {
	c := NewCache(t.TempDir())
	if _, _, ok := c.Load(); ok {
		t.Fatalf("expected empty cache miss")
	}
}

func TestEngineStartStop(t *testing.T) {
	var polls atomic.Int64
	client := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		polls.Add(1)
		return daemon.Result{Stdout: []byte(statusConnected)}, nil
	}))
	e := New(client, WithClock(fixedClock))

	if err := e.Start(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return polls.Load() >= 2 })

	e.Stop()
	e.Stop()

	at := polls.Load()
	time.Sleep(30 * time.Millisecond)
	if polls.Load() != at {
		t.Fatalf("poll after stop: %d -> %d", at, polls.Load())
	}
}
