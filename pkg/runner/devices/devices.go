// Package devices implements the devices command.
package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
	"tableflip.dev/meshctl/pkg/status"
)

// Devices polls once and prints the device roster.
type Devices struct {
	Engine *engine.Engine
	ShowID bool
	JSON   bool

	// OnlineOnly filters the table down to reachable devices.
	OnlineOnly bool
}

func (d *Devices) Do(ctx context.Context) error {
	if d.Engine == nil {
		return errors.New("can not list devices, no engine")
	}

	_ = d.Engine.PollNow(ctx)
	v := d.Engine.Snapshot()

	roster := v.Roster
	if d.OnlineOnly {
		roster = status.Roster{}
		for id, dev := range v.Roster {
			if dev.Online {
				roster[id] = dev
			}
		}
	}

	if d.JSON {
		b, err := json.MarshalIndent(roster.Devices(), "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}

	pp := printers.PrettyPrint{ShowID: d.ShowID}
	fmt.Println("")
	pp.Devices(roster)
	if v.LastErr != nil {
		_, _ = color.New(color.FgRed, color.Faint).Fprintf(color.Output, "last poll failed: %v\n", v.LastErr)
	}
	return nil
}
