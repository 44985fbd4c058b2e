// Package down implements the down command.
package down

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
)

// Down takes the daemon off the mesh and reports the resulting state.
type Down struct {
	Engine *engine.Engine
}

func (d *Down) Do(ctx context.Context) error {
	if d.Engine == nil {
		return errors.New("can not disconnect, no engine")
	}

	if err := d.Engine.Disconnect(ctx); err != nil {
		if daemon.IsAccessDenied(err) {
			_, _ = color.New(color.Faint).Fprintf(color.Output,
				"Hint: grant yourself daemon access with `%s`.\n", daemon.OperatorHint())
		}
		return err
	}

	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.StatusLine(d.Engine.Snapshot())
	fmt.Println("")
	return nil
}
