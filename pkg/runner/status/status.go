// Package status implements the status command.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
)

// Status polls the daemon once and prints the resulting view.
type Status struct {
	Engine *engine.Engine
	ShowID bool
	JSON   bool
}

func (s *Status) Do(ctx context.Context) error {
	if s.Engine == nil {
		return errors.New("can not get status, no engine")
	}

	// One out-of-band poll so the output reflects the daemon right now. A
	// failed poll still prints the last known good view with the error.
	_ = s.Engine.PollNow(ctx)
	v := s.Engine.Snapshot()

	if s.JSON {
		b, err := json.MarshalIndent(viewDTO(v), "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}

	pp := printers.PrettyPrint{ShowID: s.ShowID}
	fmt.Println("")
	pp.StatusLine(v)
	fmt.Println("")
	return nil
}

type statusJSON struct {
	State      string `json:"state"`
	Identity   string `json:"identity,omitempty"`
	ExitNodeID string `json:"exitNodeId,omitempty"`
	Known      bool   `json:"known"`
	Seq        uint64 `json:"seq"`
	LastError  string `json:"lastError,omitempty"`
	Devices    int    `json:"devices"`
}

func viewDTO(v engine.View) statusJSON {
	out := statusJSON{
		State:      string(v.Status.State),
		Identity:   v.Status.Identity,
		ExitNodeID: v.Status.ExitNodeID,
		Known:      v.Known,
		Seq:        v.Seq,
		Devices:    len(v.Roster),
	}
	if v.LastErr != nil {
		out.LastError = v.LastErr.Error()
	}
	return out
}
