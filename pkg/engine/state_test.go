package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"tableflip.dev/meshctl/pkg/status"
)

var t0 = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func connectedSnap(identity string) status.Snapshot {
	return status.Snapshot{State: status.Connected, Identity: identity, At: t0}
}

func TestApplyFirstPollEmitsConnectionChanged(t *testing.T) {
	s := NewState()
	events := s.Apply(connectedSnap("laptop"), status.Roster{})

	if len(events) != 1 || events[0].Kind != ConnectionChanged {
		t.Fatalf("expected single ConnectionChanged, got %#v", events)
	}
	if events[0].Seq != 1 {
		t.Fatalf("expected seq 1, got %d", events[0].Seq)
	}
	v := s.View()
	if !v.Known || v.Seq != 1 || v.Status.State != status.Connected {
		t.Fatalf("unexpected view: %#v", v)
	}
}

func TestApplyDeviceJoinLeave(t *testing.T) {
	s := NewState()
	snap := connectedSnap("laptop")

	s.Apply(snap, status.Roster{
		"A": {ID: "A", Name: "a", Online: true, Self: true},
		"B": {ID: "B", Name: "b", Online: false},
	})

	events := s.Apply(snap, status.Roster{
		"A": {ID: "A", Name: "a", Online: true, Self: true},
		"C": {ID: "C", Name: "c", Online: true},
	})

	if len(events) != 2 {
		t.Fatalf("expected exactly DeviceJoined(C) and DeviceLeft(B), got %#v", events)
	}
	kinds := map[EventKind]string{}
	for _, ev := range events {
		kinds[ev.Kind] = ev.Device.ID
	}
	if kinds[DeviceJoined] != "C" {
		t.Fatalf("expected DeviceJoined(C), got %#v", events)
	}
	if kinds[DeviceLeft] != "B" {
		t.Fatalf("expected DeviceLeft(B), got %#v", events)
	}
}

func TestApplyDeviceUpdated(t *testing.T) {
	s := NewState()
	snap := connectedSnap("laptop")

	s.Apply(snap, status.Roster{"A": {ID: "A", Name: "a", Online: false}})
	events := s.Apply(snap, status.Roster{"A": {ID: "A", Name: "a", Online: true}})

	if len(events) != 1 || events[0].Kind != DeviceUpdated {
		t.Fatalf("expected single DeviceUpdated, got %#v", events)
	}
	if events[0].PrevDevice.Online || !events[0].Device.Online {
		t.Fatalf("expected prev offline, new online: %#v", events[0])
	}
}

func TestApplyUnchangedDeviceEmitsNothing(t *testing.T) {
	s := NewState()
	snap := connectedSnap("laptop")
	roster := status.Roster{"A": {ID: "A", Name: "a", IPs: []string{"100.64.0.1"}, Online: true}}

	s.Apply(snap, roster)
	events := s.Apply(snap, roster.Clone())

	if len(events) != 0 {
		t.Fatalf("expected no events for identical poll, got %#v", events)
	}
}

func TestApplyExitNodeChangeEmitsConnectionChanged(t *testing.T) {
	s := NewState()
	s.Apply(connectedSnap("laptop"), status.Roster{})

	next := connectedSnap("laptop")
	next.ExitNodeID = "peer-exit"
	events := s.Apply(next, status.Roster{})

	if len(events) != 1 || events[0].Kind != ConnectionChanged {
		t.Fatalf("expected ConnectionChanged for exit node change, got %#v", events)
	}
	if events[0].Prev.ExitNodeID != "" || events[0].Status.ExitNodeID != "peer-exit" {
		t.Fatalf("expected old/new exit node in event, got %#v", events[0])
	}
}

func TestFailPreservesLastKnownGood(t *testing.T) {
	s := NewState()
	roster := status.Roster{
		"A": {ID: "A", Name: "a", IPs: []string{"100.64.0.1"}, Online: true, ExitNodeOption: true},
	}
	s.Apply(connectedSnap("laptop"), roster)
	before := s.View()

	pollErr := errors.New("daemon unreachable")
	seq := s.Fail(pollErr)
	after := s.View()

	if seq != before.Seq+1 || after.Seq != seq {
		t.Fatalf("expected sequence to advance on failure: before=%d after=%d", before.Seq, after.Seq)
	}
	if !errors.Is(after.LastErr, pollErr) {
		t.Fatalf("expected last error recorded, got %v", after.LastErr)
	}
	if !reflect.DeepEqual(before.Status, after.Status) {
		t.Fatalf("status changed on failure: %#v vs %#v", before.Status, after.Status)
	}
	if !reflect.DeepEqual(before.Roster, after.Roster) {
		t.Fatalf("roster changed on failure: %#v vs %#v", before.Roster, after.Roster)
	}
	if !reflect.DeepEqual(before.ExitNodes, after.ExitNodes) {
		t.Fatalf("exit nodes changed on failure: %#v vs %#v", before.ExitNodes, after.ExitNodes)
	}
}

func TestApplyClearsLastError(t *testing.T) {
	s := NewState()
	s.Fail(errors.New("boom"))
	s.Apply(connectedSnap("laptop"), status.Roster{})

	if v := s.View(); v.LastErr != nil {
		t.Fatalf("expected error cleared by successful poll, got %v", v.LastErr)
	}
}

func TestSequenceStrictlyIncreases(t *testing.T) {
	s := NewState()
	var last uint64
	for i := 0; i < 5; i++ {
		s.Apply(connectedSnap("laptop"), status.Roster{})
		v := s.View()
		if v.Seq <= last {
			t.Fatalf("sequence did not increase: %d -> %d", last, v.Seq)
		}
		last = v.Seq
		s.Fail(errors.New("transient"))
		v = s.View()
		if v.Seq <= last {
			t.Fatalf("sequence did not increase on failure: %d -> %d", last, v.Seq)
		}
		last = v.Seq
	}
}

func TestViewIsDeepCopy(t *testing.T) {
	s := NewState()
	s.Apply(connectedSnap("laptop"), status.Roster{
		"A": {ID: "A", Name: "a", IPs: []string{"100.64.0.1"}},
	})

	v := s.View()
	d := v.Roster["A"]
	d.IPs[0] = "mutated"
	d.Name = "mutated"
	v.Roster["A"] = d

	fresh := s.View()
	if fresh.Roster["A"].IPs[0] != "100.64.0.1" || fresh.Roster["A"].Name != "a" {
		t.Fatalf("mutating a view leaked into engine state: %#v", fresh.Roster["A"])
	}
}

func TestRestoreOnlyBeforeFirstPoll(t *testing.T) {
	s := NewState()
	s.Restore(connectedSnap("cached"), status.Roster{"A": {ID: "A", Name: "a"}})

	v := s.View()
	if !v.Known || v.Seq != 0 || v.Status.Identity != "cached" {
		t.Fatalf("expected restored state at seq 0, got %#v", v)
	}

	s.Apply(connectedSnap("live"), status.Roster{})
	s.Restore(connectedSnap("stale"), status.Roster{})
	if got := s.View().Status.Identity; got != "live" {
		t.Fatalf("restore after polling must be ignored, got identity %q", got)
	}
}
