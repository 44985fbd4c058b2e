package watch

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/status"
)

const watchStatus = `{
	"BackendState": "Running",
	"HaveNodeKey": true,
	"Self": {"ID": "self-1", "HostName": "laptop", "TailscaleIPs": ["100.64.0.1"]},
	"Peer": {
		"key-a": {"ID": "peer-a", "HostName": "nas", "TailscaleIPs": ["100.64.0.2"], "Online": true}
	}
}`

func watchEngine() *engine.Engine {
	client := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		return daemon.Result{Stdout: []byte(watchStatus)}, nil
	}))
	return engine.New(client)
}

func TestViewShowsStatusAndDevices(t *testing.T) {
	eng := watchEngine()
	eng.Poll(context.Background())

	events, cancel := eng.Subscribe(context.Background(), 1)
	defer cancel()

	m := newModel(eng, events)
	out := m.View()

	if !strings.Contains(out, "Connected") {
		t.Fatalf("view missing connection state:\n%s", out)
	}
	if !strings.Contains(out, "laptop") || !strings.Contains(out, "nas") {
		t.Fatalf("view missing devices:\n%s", out)
	}
	if !strings.Contains(out, "q quit") {
		t.Fatalf("view missing key hints:\n%s", out)
	}
}

func TestUpdateAppendsEventLog(t *testing.T) {
	eng := watchEngine()
	events, cancel := eng.Subscribe(context.Background(), 1)
	defer cancel()

	m := newModel(eng, events)
	next, _ := m.Update(eventMsg{ev: engine.Event{
		Kind:   engine.DeviceJoined,
		Device: status.Device{ID: "peer-b", Name: "printer"},
	}})

	out := next.(model).View()
	if !strings.Contains(out, "device joined: printer") {
		t.Fatalf("event log missing join entry:\n%s", out)
	}
}

func TestUpdateQuitsOnQ(t *testing.T) {
	eng := watchEngine()
	events, cancel := eng.Subscribe(context.Background(), 1)
	defer cancel()

	m := newModel(eng, events)
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatalf("expected quit command for q")
	}
}

func TestLogDepthBounded(t *testing.T) {
	var log []string
	for i := 0; i < eventLogDepth*2; i++ {
		log = appendLog(log, "line")
	}
	if len(log) != eventLogDepth {
		t.Fatalf("expected log capped at %d, got %d", eventLogDepth, len(log))
	}
}
