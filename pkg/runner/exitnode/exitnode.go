// Package exitnode implements the exit-node command.
package exitnode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
)

// ExitNode lists exit node candidates or routes traffic through one.
type ExitNode struct {
	Engine *engine.Engine

	// Target selects the exit node by ID or by displayed label. Empty with
	// Clear unset means list candidates.
	Target string
	Clear  bool
}

func (e *ExitNode) Do(ctx context.Context) error {
	if e.Engine == nil {
		return errors.New("can not manage exit nodes, no engine")
	}

	if e.Clear {
		if err := e.Engine.SetExitNode(ctx, ""); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, "Exit node cleared; traffic flows directly again.")
		return nil
	}

	if e.Target == "" {
		return e.list(ctx)
	}

	_ = e.Engine.PollNow(ctx)
	v := e.Engine.Snapshot()

	id, err := resolveTarget(v, e.Target)
	if err != nil {
		return err
	}
	if err := e.Engine.SetExitNode(ctx, id); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(color.Output, "Routing traffic through %s.\n", e.Target)
	return nil
}

func (e *ExitNode) list(ctx context.Context) error {
	_ = e.Engine.PollNow(ctx)
	v := e.Engine.Snapshot()

	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.ExitNodes(v.ExitNodes, v.Status.ExitNodeID)
	fmt.Println("")
	return nil
}

// resolveTarget matches by candidate ID first, then case-insensitive label.
func resolveTarget(v engine.View, target string) (string, error) {
	for _, c := range v.ExitNodes {
		if c.ID == target {
			return c.ID, nil
		}
	}
	for _, c := range v.ExitNodes {
		if strings.EqualFold(c.Label, target) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("no exit node candidate matches %q", target)
}
