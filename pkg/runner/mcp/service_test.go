package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/profile"
)

const connectedDoc = `{
	"BackendState": "Running",
	"HaveNodeKey": true,
	"Self": {"ID": "self-1", "HostName": "laptop", "TailscaleIPs": ["100.64.0.1"]},
	"Peer": {
		"key-a": {"ID": "peer-a", "HostName": "nas", "TailscaleIPs": ["100.64.0.2"], "Online": true, "ExitNodeOption": true}
	}
}`

func testService(t *testing.T) (*Service, *[]string) {
	t.Helper()

	var calls []string
	client := daemon.NewClient(daemon.RunnerFunc(func(_ context.Context, args ...string) (daemon.Result, error) {
		calls = append(calls, args[0])
		if args[0] == "status" {
			return daemon.Result{Stdout: []byte(connectedDoc)}, nil
		}
		return daemon.Result{}, nil
	}))

	store, err := profile.Open(filepath.Join(t.TempDir(), "profiles.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	return NewService(engine.New(client), store, client), &calls
}

func TestServiceStatus(t *testing.T) {
	svc, _ := testService(t)

	dto, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if dto.State != "connected" || dto.Identity != "laptop" {
		t.Fatalf("unexpected status: %#v", dto)
	}
	if !dto.Known || dto.Seq == 0 {
		t.Fatalf("expected known state after poll: %#v", dto)
	}
}

func TestServiceStatusReportsPollFailureInline(t *testing.T) {
	client := daemon.NewClient(daemon.RunnerFunc(func(context.Context, ...string) (daemon.Result, error) {
		return daemon.Result{}, daemon.ErrNotInstalled
	}))
	svc := NewService(engine.New(client), nil, client)

	dto, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status must not fail outright: %v", err)
	}
	if dto.LastError == "" {
		t.Fatalf("expected poll failure surfaced in DTO: %#v", dto)
	}
}

func TestServiceDevicesSelfFirst(t *testing.T) {
	svc, _ := testService(t)

	devices, err := svc.Devices(context.Background())
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if !devices[0].Self || devices[0].Name != "laptop" {
		t.Fatalf("expected self first, got %#v", devices[0])
	}
	if !devices[1].ExitNodeOption {
		t.Fatalf("expected peer to advertise exit node: %#v", devices[1])
	}
}

func TestServiceSetExitNodeSequencesCommands(t *testing.T) {
	svc, calls := testService(t)

	dto, err := svc.SetExitNode(context.Background(), "peer-a")
	if err != nil {
		t.Fatalf("set exit node: %v", err)
	}
	if dto.State != "connected" {
		t.Fatalf("unexpected state: %#v", dto)
	}
	if len(*calls) != 2 || (*calls)[0] != "set" || (*calls)[1] != "status" {
		t.Fatalf("expected set then status, got %v", *calls)
	}
}

func TestServiceProfileLifecycle(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.AddProfile(ctx, "work"); err != nil {
		t.Fatalf("add: %v", err)
	}
	profiles, err := svc.Profiles(ctx)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Nickname != "work" {
		t.Fatalf("unexpected profiles: %#v", profiles)
	}

	dto, err := svc.SwitchProfile(ctx, "work")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if dto.Identity != "laptop" {
		t.Fatalf("expected refreshed identity, got %#v", dto)
	}

	profiles, err = svc.Profiles(ctx)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if profiles[0].Identity != "laptop" || !profiles[0].Active {
		t.Fatalf("expected resolved active profile, got %#v", profiles[0])
	}

	if err := svc.RemoveProfile(ctx, "work"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	profiles, err = svc.Profiles(ctx)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected empty profiles after remove, got %#v", profiles)
	}
}
