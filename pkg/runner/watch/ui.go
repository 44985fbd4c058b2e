package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/status"
)

const eventLogDepth = 12

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Underline(true)
	connectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	connectingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	disconnectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	faintStyle        = lipgloss.NewStyle().Faint(true)
	errStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selfStyle         = lipgloss.NewStyle().Italic(true)
)

// model is the live view state. All mesh data comes from engine snapshots;
// the model itself never mutates engine state except via PollNow.
type model struct {
	eng    *engine.Engine
	events <-chan engine.Event

	view engine.View
	log  []string
	spin spinner.Model

	termWidth  int
	termHeight int
}

func newModel(eng *engine.Engine, events <-chan engine.Event) model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return model{
		eng:    eng,
		events: events,
		view:   eng.Snapshot(),
		spin:   sp,
	}
}

// messages
type eventMsg struct{ ev engine.Event }
type eventsClosedMsg struct{}
type tickMsg time.Time
type polledMsg struct{}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick(), m.spin.Tick)
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
	case eventMsg:
		m.view = m.eng.Snapshot()
		m.log = appendLog(m.log, describe(msg.ev))
		return m, m.waitForEvent()
	case eventsClosedMsg:
		return m, tea.Quit
	case tickMsg:
		// Poll failures do not emit events, so refresh the snapshot on a
		// timer to keep the error line current.
		m.view = m.eng.Snapshot()
		return m, tick()
	case polledMsg:
		m.view = m.eng.Snapshot()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			eng := m.eng
			return m, func() tea.Msg {
				_ = eng.PollNow(context.Background())
				return polledMsg{}
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Devices"))
	b.WriteString("\n")
	b.WriteString(m.deviceLines())
	b.WriteString("\n")

	if len(m.log) > 0 {
		b.WriteString(titleStyle.Render("Events"))
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(faintStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(faintStyle.Render("r refresh now, q quit"))
	return b.String()
}

func (m model) statusLine() string {
	v := m.view

	var line string
	switch v.Status.State {
	case status.Connected:
		line = connectedStyle.Render("Connected")
	case status.Connecting:
		line = m.spin.View() + " " + connectingStyle.Render("Connecting")
	default:
		line = disconnectedStyle.Render("Disconnected")
	}
	if v.Status.Identity != "" {
		line += " as " + v.Status.Identity
	}
	if v.Status.ExitNodeID != "" {
		line += faintStyle.Render("  exit-node=" + v.Status.ExitNodeID)
	}
	if v.LastErr != nil {
		line += "  " + errStyle.Render(fmt.Sprintf("last poll failed: %v", v.LastErr))
	}
	return line
}

func (m model) deviceLines() string {
	devices := m.view.Roster.Devices()
	if len(devices) == 0 {
		return faintStyle.Render(" none") + "\n"
	}

	var b strings.Builder
	for _, d := range devices {
		mark := faintStyle.Render("·")
		if d.Online {
			mark = connectedStyle.Render("●")
		}
		name := d.Name
		if d.Self {
			name = selfStyle.Render(name + " (this device)")
		}
		b.WriteString(fmt.Sprintf(" %s %s", mark, name))
		if len(d.IPs) > 0 {
			b.WriteString(faintStyle.Render("  " + strings.Join(d.IPs, ", ")))
		}
		if d.ActiveExitNode {
			b.WriteString(faintStyle.Render("  exit-node"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func appendLog(log []string, line string) []string {
	log = append(log, line)
	if len(log) > eventLogDepth {
		log = log[len(log)-eventLogDepth:]
	}
	return log
}

func describe(ev engine.Event) string {
	stamp := time.Now().Format("15:04:05")
	switch ev.Kind {
	case engine.ConnectionChanged:
		return fmt.Sprintf("%s connection %s -> %s", stamp, ev.Prev.State, ev.Status.State)
	case engine.DeviceJoined:
		return fmt.Sprintf("%s device joined: %s", stamp, ev.Device.Name)
	case engine.DeviceLeft:
		return fmt.Sprintf("%s device left: %s", stamp, ev.Device.Name)
	case engine.DeviceUpdated:
		return fmt.Sprintf("%s device updated: %s", stamp, ev.Device.Name)
	default:
		return fmt.Sprintf("%s event seq=%d", stamp, ev.Seq)
	}
}
