// Package watch implements the live status view.
package watch

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/meshctl/pkg/engine"
)

// Watch runs the full-screen live view until the user quits. The engine's
// scheduler is started for the duration of the session.
type Watch struct {
	Engine   *engine.Engine
	Interval time.Duration
}

func (w *Watch) Do(ctx context.Context) error {
	if w.Engine == nil {
		return errors.New("can not watch, no engine")
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Engine.Start(ctx, interval); err != nil {
		return err
	}
	defer w.Engine.Stop()

	events, unsubscribe := w.Engine.Subscribe(ctx, 64)
	defer unsubscribe()

	// Context cancellation closes the subscription; the model quits when its
	// event channel closes, so no explicit program context is needed.
	m := newModel(w.Engine, events)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
