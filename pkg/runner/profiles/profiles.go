// Package profiles implements the profile management commands.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/printers"
	"tableflip.dev/meshctl/pkg/profile"
)

// List prints the stored profiles, marking the active one.
type List struct {
	Engine *engine.Engine
	Store  *profile.Store
	JSON   bool
}

func (l *List) Do(ctx context.Context) error {
	if l.Store == nil {
		return errors.New("can not list profiles, no store")
	}

	active := ""
	if l.Engine != nil {
		_ = l.Engine.PollNow(ctx)
		active = l.Engine.Snapshot().Status.Identity
	}

	if l.JSON {
		b, err := json.MarshalIndent(l.Store.List(), "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}

	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.Profiles(l.Store.List(), active)
	fmt.Println("")
	return nil
}

// Add saves a new profile nickname.
type Add struct {
	Store    *profile.Store
	Nickname string
}

func (a *Add) Do(_ context.Context) error {
	if a.Store == nil {
		return errors.New("can not add profile, no store")
	}
	if err := a.Store.Add(a.Nickname); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(color.Output, "Saved profile %q. Its identity resolves on first switch.\n", a.Nickname)
	return nil
}

// Remove deletes a stored profile.
type Remove struct {
	Store    *profile.Store
	Nickname string
}

func (r *Remove) Do(_ context.Context) error {
	if r.Store == nil {
		return errors.New("can not remove profile, no store")
	}
	if err := r.Store.Remove(r.Nickname); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(color.Output, "Removed profile %q.\n", r.Nickname)
	return nil
}

// Switch asks the daemon to switch accounts and reports the fresh state.
type Switch struct {
	Engine   *engine.Engine
	Store    *profile.Store
	Client   *daemon.Client
	Nickname string
}

func (s *Switch) Do(ctx context.Context) error {
	if s.Store == nil || s.Engine == nil || s.Client == nil {
		return errors.New("can not switch profile, missing store, engine, or client")
	}

	if err := s.Store.Switch(ctx, s.Nickname, s.Client, s.Engine); err != nil {
		if daemon.IsAccessDenied(err) {
			_, _ = color.New(color.Faint).Fprintf(color.Output,
				"Hint: grant yourself daemon access with `%s`.\n", daemon.OperatorHint())
		}
		return err
	}

	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.StatusLine(s.Engine.Snapshot())
	fmt.Println("")
	return nil
}
