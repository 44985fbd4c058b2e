// Package printers renders engine state for terminals.
package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/profile"
	"tableflip.dev/meshctl/pkg/status"
)

// PrettyPrint writes colored, human-oriented output to color.Output.
type PrettyPrint struct {
	ShowID bool
}

// StatusLine renders the one-line connection summary.
func (pp *PrettyPrint) StatusLine(v engine.View) {
	state := color.New(color.Bold)
	faint := color.New(color.Faint)

	switch v.Status.State {
	case status.Connected:
		state = state.Add(color.FgGreen)
	case status.Connecting:
		state = state.Add(color.FgYellow)
	default:
		state = state.Add(color.FgRed)
	}

	_, _ = state.Fprint(color.Output, stateLabel(v.Status.State))
	if v.Status.Identity != "" {
		_, _ = fmt.Fprintf(color.Output, " as %s", v.Status.Identity)
	}
	if v.Status.ExitNodeID != "" {
		_, _ = faint.Fprintf(color.Output, "  exit-node=%s", v.Status.ExitNodeID)
	}
	if !v.Known {
		_, _ = faint.Fprint(color.Output, "  (no poll yet)")
	}
	if v.LastErr != nil {
		_, _ = color.New(color.FgRed, color.Faint).Fprintf(color.Output, "  last poll failed: %v", v.LastErr)
	}
	_, _ = fmt.Fprintln(color.Output, "")
}

// Devices renders the roster as a table, self first.
func (pp *PrettyPrint) Devices(r status.Roster) {
	if len(r) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(color.Output, " no devices")
		return
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	if pp.ShowID {
		tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Device"), bold.Sprint("Addresses"), bold.Sprint("State"))
	} else {
		tbl.AddRow(bold.Sprint("Device"), bold.Sprint("Addresses"), bold.Sprint("State"))
	}

	for _, d := range r.Devices() {
		name := d.Name
		if d.Self {
			name += faint.Sprint(" (this device)")
		}
		state := onlineLabel(d)
		addrs := strings.Join(d.IPs, ", ")
		if pp.ShowID {
			tbl.AddRow(faint.Sprint(d.ID), name, addrs, state)
		} else {
			tbl.AddRow(name, addrs, state)
		}
	}

	_, _ = fmt.Fprintln(color.Output, tbl)
}

// ExitNodes renders exit node candidates with the active one marked.
func (pp *PrettyPrint) ExitNodes(candidates []status.ExitNodeCandidate, activeID string) {
	if len(candidates) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(color.Output, " no exit nodes advertised")
		return
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", bold.Sprint("Exit Node"), bold.Sprint("ID"), bold.Sprint("State"))
	for _, c := range candidates {
		mark := " "
		if c.ID == activeID {
			mark = green.Sprint("*")
		}
		state := "available"
		if !c.Available {
			state = faint.Sprint("offline")
		}
		tbl.AddRow(mark, c.Label, faint.Sprint(c.ID), state)
	}

	_, _ = fmt.Fprintln(color.Output, tbl)
}

// Profiles renders the stored profiles, marking the one whose identity
// matches the daemon's current identity.
func (pp *PrettyPrint) Profiles(profiles []profile.Profile, activeIdentity string) {
	if len(profiles) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(color.Output, " no profiles saved")
		return
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", bold.Sprint("Profile"), bold.Sprint("Identity"))
	for _, p := range profiles {
		mark := " "
		identity := faint.Sprint("unknown")
		if p.Identity != nil {
			identity = *p.Identity
			if activeIdentity != "" && *p.Identity == activeIdentity {
				mark = green.Sprint("*")
			}
		}
		tbl.AddRow(mark, p.Nickname, identity)
	}

	_, _ = fmt.Fprintln(color.Output, tbl)
}

func stateLabel(s status.ConnState) string {
	switch s {
	case status.Connected:
		return "Connected"
	case status.Connecting:
		return "Connecting"
	default:
		return "Disconnected"
	}
}

func onlineLabel(d status.Device) string {
	if d.Online {
		s := color.New(color.FgGreen).Sprint("online")
		if d.ActiveExitNode {
			s += color.New(color.Faint).Sprint(" exit-node")
		}
		return s
	}
	return color.New(color.Faint).Sprint("offline")
}
