package engine

import "tableflip.dev/meshctl/pkg/status"

// EventKind classifies a state transition derived by the reconciler.
type EventKind string

const (
	// ConnectionChanged fires when connection state, identity, or the active
	// exit node differs from the previous snapshot.
	ConnectionChanged EventKind = "connection-changed"
	// DeviceJoined fires when a device ID appears in the roster.
	DeviceJoined EventKind = "device-joined"
	// DeviceLeft fires when a device ID disappears from the roster.
	DeviceLeft EventKind = "device-left"
	// DeviceUpdated fires when a known device's fields change.
	DeviceUpdated EventKind = "device-updated"
)

// Event is a single change notification. Seq identifies the poll that
// produced it; events from one poll share a sequence number.
type Event struct {
	Kind EventKind
	Seq  uint64

	// Status carries the new snapshot for ConnectionChanged events.
	Status status.Snapshot
	// Prev carries the superseded snapshot for ConnectionChanged events.
	Prev status.Snapshot

	// Device carries the joined/updated device, or the last known state of a
	// departed device.
	Device status.Device
	// PrevDevice carries the prior state for DeviceUpdated events.
	PrevDevice status.Device
}
