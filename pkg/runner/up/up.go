// Package up implements the up command.
package up

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
	"tableflip.dev/meshctl/pkg/status"
)

// Up asks the daemon to join the mesh and reports the resulting state.
type Up struct {
	Engine *engine.Engine
}

func (u *Up) Do(ctx context.Context) error {
	if u.Engine == nil {
		return errors.New("can not connect, no engine")
	}

	err := u.Engine.Connect(ctx)

	var timeout *daemon.TimeoutError
	if errors.As(err, &timeout) {
		// `up` blocks while browser authentication is pending; the daemon is
		// fine, the user just has not finished logging in yet.
		_, _ = color.New(color.FgYellow).Fprintln(color.Output,
			"Waiting for authentication. Finish logging in via your browser, then run `meshctl status`.")
		err = nil
	}
	if err != nil {
		if daemon.IsAccessDenied(err) {
			_, _ = color.New(color.Faint).Fprintf(color.Output,
				"Hint: grant yourself daemon access with `%s`.\n", daemon.OperatorHint())
		}
		return err
	}

	v := u.Engine.Snapshot()
	if v.Status.State == status.Connecting {
		_, _ = color.New(color.FgYellow).Fprintln(color.Output,
			"Authentication pending; finish logging in via your browser.")
		return nil
	}

	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.StatusLine(v)
	fmt.Println("")
	return nil
}
