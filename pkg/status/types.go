package status

import (
	"sort"
	"time"
)

// ConnState is the coarse connection state reported by the daemon.
//
// The daemon's backend states are folded down to three values:
//
// disconnected -> backend stopped, logged out, or daemon unreachable
// connecting   -> backend running but authentication is still pending
// connected    -> backend running with a node key and no pending auth
type ConnState string

const (
	Disconnected ConnState = "disconnected"
	Connecting   ConnState = "connecting"
	Connected    ConnState = "connected"
)

// Snapshot is an immutable point-in-time capture of the daemon's connection
// state. It is replaced wholesale on every poll, never mutated.
type Snapshot struct {
	State      ConnState `json:"state"`
	Identity   string    `json:"identity,omitempty"`   // logged-in identity, empty when unknown
	ExitNodeID string    `json:"exitNodeId,omitempty"` // active exit node device ID, empty when direct
	At         time.Time `json:"at"`
}

// Device describes a single node on the mesh. The ID is the stable device
// identifier; every other field may change between polls.
type Device struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"` // short display name, first DNS label or hostname
	DNSName        string   `json:"dnsName,omitempty"`
	IPs            []string `json:"ips,omitempty"`
	Online         bool     `json:"online"`
	Self           bool     `json:"self"`
	ExitNodeOption bool     `json:"exitNodeOption"` // advertises itself as an exit node
	ActiveExitNode bool     `json:"activeExitNode"` // currently routing our traffic
}

// Equal reports whether two devices are value-equal, IP order included.
func (d Device) Equal(o Device) bool {
	if d.ID != o.ID || d.Name != o.Name || d.DNSName != o.DNSName ||
		d.Online != o.Online || d.Self != o.Self ||
		d.ExitNodeOption != o.ExitNodeOption || d.ActiveExitNode != o.ActiveExitNode {
		return false
	}
	if len(d.IPs) != len(o.IPs) {
		return false
	}
	for i := range d.IPs {
		if d.IPs[i] != o.IPs[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand across goroutines.
func (d Device) Clone() Device {
	c := d
	c.IPs = append([]string(nil), d.IPs...)
	return c
}

// Roster maps device ID to Device. It is rebuilt, not mutated, each poll.
type Roster map[string]Device

// Clone returns a deep copy of the roster.
func (r Roster) Clone() Roster {
	c := make(Roster, len(r))
	for id, d := range r {
		c[id] = d.Clone()
	}
	return c
}

// Devices returns the roster's devices ordered self-first, then by name.
func (r Roster) Devices() []Device {
	out := make([]Device, 0, len(r))
	for _, d := range r {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Self != out[j].Self {
			return out[i].Self
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExitNodeCandidate is a device that may be selected as an exit node.
type ExitNodeCandidate struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Available bool   `json:"available"` // exit-node capable and online
}

// ExitNodeCandidates derives the selectable exit nodes from a roster,
// ordered by label. Only devices advertising the exit node option appear.
func ExitNodeCandidates(r Roster) []ExitNodeCandidate {
	out := make([]ExitNodeCandidate, 0)
	for _, d := range r {
		if !d.ExitNodeOption {
			continue
		}
		out = append(out, ExitNodeCandidate{
			ID:        d.ID,
			Label:     d.Name,
			Available: d.Online,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}
