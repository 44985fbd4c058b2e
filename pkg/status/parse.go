// Package status turns the daemon's structured `status --json` output into a
// typed snapshot plus device roster. Parsing is a pure function of the input
// bytes; it never shells out and never consults the clock beyond the caller
// supplied timestamp.
package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MalformedError reports daemon output whose top-level structure could not be
// decoded. Missing or unknown fields are tolerated and never produce this.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed status document: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// statusDoc mirrors the subset of the daemon's status document we consume.
// Unknown fields are ignored by encoding/json; absent fields decode to zero
// values, which downstream code treats as "unknown" or false.
type statusDoc struct {
	BackendState   string                `json:"BackendState"`
	AuthURL        string                `json:"AuthURL"`
	HaveNodeKey    bool                  `json:"HaveNodeKey"`
	ExitNodeStatus *exitNodeStatus       `json:"ExitNodeStatus"`
	ExitNodeID     string                `json:"ExitNodeID"`
	Self           *peerStatus           `json:"Self"`
	Peer           map[string]peerStatus `json:"Peer"`
}

type exitNodeStatus struct {
	ID           string   `json:"ID"`
	Online       bool     `json:"Online"`
	TailscaleIPs []string `json:"TailscaleIPs"`
}

type peerStatus struct {
	ID             string   `json:"ID"`
	HostName       string   `json:"HostName"`
	DNSName        string   `json:"DNSName"`
	TailscaleIPs   []string `json:"TailscaleIPs"`
	Online         bool     `json:"Online"`
	ExitNode       bool     `json:"ExitNode"`
	ExitNodeOption bool     `json:"ExitNodeOption"`
}

// Parse decodes raw daemon output into a Snapshot and Roster stamped with the
// given time. It fails only when the document itself cannot be decoded.
func Parse(raw []byte, at time.Time) (Snapshot, Roster, error) {
	var doc statusDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, nil, &MalformedError{Err: err}
	}

	roster := buildRoster(&doc)

	snap := Snapshot{
		State:      connState(&doc),
		Identity:   identity(doc.Self),
		ExitNodeID: resolveExitNode(&doc, roster),
		At:         at,
	}
	return snap, roster, nil
}

// connState folds the backend state down to the three-value model. A running
// backend that still carries an auth URL or lacks a node key is connecting,
// not connected: the daemon is up but waiting on browser authentication.
func connState(doc *statusDoc) ConnState {
	switch doc.BackendState {
	case "Running":
		if doc.HaveNodeKey && doc.AuthURL == "" {
			return Connected
		}
		return Connecting
	case "Starting":
		return Connecting
	default:
		// NoState, Stopped, NeedsLogin, NeedsMachineAuth, or unknown.
		if doc.AuthURL != "" {
			return Connecting
		}
		return Disconnected
	}
}

// identity derives the logged-in identity from the self node: the hostname
// when present, otherwise the first DNS label.
func identity(self *peerStatus) string {
	if self == nil {
		return ""
	}
	if self.HostName != "" {
		return self.HostName
	}
	return dnsLabel(self.DNSName)
}

func buildRoster(doc *statusDoc) Roster {
	roster := make(Roster, len(doc.Peer)+1)

	if doc.Self != nil {
		d := deviceFrom("", *doc.Self, true)
		// The self node is always online from its own point of view.
		d.Online = true
		roster[d.ID] = d
	}

	for key, peer := range doc.Peer {
		d := deviceFrom(key, peer, false)
		roster[d.ID] = d
	}
	return roster
}

// deviceFrom builds a Device from one status entry. The map key (the node's
// public key) is the identifier of last resort when the stable ID is absent.
func deviceFrom(key string, p peerStatus, self bool) Device {
	id := p.ID
	if id == "" {
		id = key
	}

	name := dnsLabel(p.DNSName)
	if name == "" {
		name = p.HostName
	}

	ips := make([]string, 0, len(p.TailscaleIPs))
	for _, ip := range p.TailscaleIPs {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		ips = append(ips, trimCIDR(ip))
	}

	return Device{
		ID:             id,
		Name:           name,
		DNSName:        strings.TrimSuffix(p.DNSName, "."),
		IPs:            ips,
		Online:         p.Online,
		Self:           self,
		ExitNodeOption: p.ExitNodeOption,
		ActiveExitNode: p.ExitNode,
	}
}

// resolveExitNode finds the active exit node's device ID. The dedicated
// ExitNodeStatus block is authoritative; when its ID does not match any
// roster device the lookup falls back to IP matching, and finally to any
// device flagged as the active exit node.
func resolveExitNode(doc *statusDoc, roster Roster) string {
	var id string
	var ips []string
	if doc.ExitNodeStatus != nil {
		id = doc.ExitNodeStatus.ID
		ips = doc.ExitNodeStatus.TailscaleIPs
	}
	if id == "" {
		id = doc.ExitNodeID
	}

	if id != "" {
		if _, ok := roster[id]; ok {
			return id
		}
		// The status block may report a different flavor of node ID than the
		// roster entries carry; match by address instead.
		if byIP := deviceByIP(roster, ips); byIP != "" {
			return byIP
		}
		return id
	}

	for _, rid := range sortedIDs(roster) {
		if roster[rid].ActiveExitNode {
			return rid
		}
	}
	return ""
}

func deviceByIP(roster Roster, ips []string) string {
	if len(ips) == 0 {
		return ""
	}
	want := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		want[trimCIDR(ip)] = struct{}{}
	}
	for _, id := range sortedIDs(roster) {
		for _, ip := range roster[id].IPs {
			if _, ok := want[ip]; ok {
				return id
			}
		}
	}
	return ""
}

func sortedIDs(roster Roster) []string {
	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// trimCIDR strips a trailing /prefix from an address ("100.1.2.3/32").
func trimCIDR(ip string) string {
	if i := strings.IndexByte(ip, '/'); i >= 0 {
		return ip[:i]
	}
	return ip
}

// dnsLabel returns the first label of a DNS name ("host.tail1234.ts.net").
func dnsLabel(dns string) string {
	dns = strings.TrimSuffix(dns, ".")
	if dns == "" {
		return ""
	}
	if i := strings.IndexByte(dns, '.'); i >= 0 {
		return dns[:i]
	}
	return dns
}
