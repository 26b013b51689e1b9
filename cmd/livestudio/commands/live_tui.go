package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/live"
)

// liveModel is the bubbletea model of the live TUI. It redraws from the
// session's accessors on every tick.
type liveModel struct {
	sess *live.Session
	rec  *liveRecorder
	logs *cli.LogWriter
	cfg  live.Config

	styles  cli.Styles
	width   int
	height  int
	started time.Time
	status  string
}

type liveTickMsg time.Time

type liveLogMsg struct{}

type liveStartedMsg struct{ err error }

func newLiveModel(sess *live.Session, rec *liveRecorder, logs *cli.LogWriter, cfg live.Config) liveModel {
	return liveModel{
		sess:   sess,
		rec:    rec,
		logs:   logs,
		cfg:    cfg,
		styles: cli.NewStyles(cli.DefaultTheme),
	}
}

func (m liveModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.tick(), m.listenLogs())
}

func (m liveModel) start() tea.Cmd {
	return func() tea.Msg {
		return liveStartedMsg{err: m.sess.Start(context.Background())}
	}
}

func (m liveModel) stop() tea.Cmd {
	return func() tea.Msg {
		m.sess.Stop()
		return nil
	}
}

func (m liveModel) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return liveTickMsg(t)
	})
}

func (m liveModel) listenLogs() tea.Cmd {
	return func() tea.Msg {
		<-m.logs.Updated()
		return liveLogMsg{}
	}
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "s", " ":
			switch m.sess.State() {
			case live.StateIdle:
				m.status = ""
				return m, m.start()
			case live.StateStarting, live.StateActive:
				return m, m.stop()
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case liveStartedMsg:
		switch {
		case msg.err == nil:
			m.started = time.Now()
			m.rec.watch(m.sess)
		case errors.Is(msg.err, live.ErrStopped):
		default:
			m.status = msg.err.Error()
		}

	case liveLogMsg:
		return m, m.listenLogs()

	case liveTickMsg:
		return m, m.tick()
	}
	return m, nil
}

func (m liveModel) View() string {
	state := m.sess.State()
	status := state.String()
	if state == live.StateActive {
		st := m.sess.Stats()
		status = fmt.Sprintf("%s %s · %d turns · %d sent · %d interrupted",
			status, elapsed(m.started), st.Turns, st.ChunksSent, st.Interruptions)
	}

	alert := m.status
	if err := m.rec.err(); err != nil && state == live.StateIdle {
		alert = err.Error()
	}

	width := max(m.width-4, 10)
	var convo []string
	for _, t := range m.sess.History() {
		convo = append(convo, m.turnLines("You", t.User, width)...)
		convo = append(convo, m.turnLines("Model", t.Model, width)...)
	}
	cur := m.sess.Transcript()
	convo = append(convo, m.turnLines("You", cur.User, width)...)
	convo = append(convo, m.turnLines("Model", cur.Model, width)...)

	frame := cli.Frame{
		Styles: m.styles,
		Title:  "LIVESTUDIO // " + m.cfg.Model,
		Status: status,
		Alert:  alert,
		Sections: []cli.Section{
			{Label: "Conversation", Lines: convo, Weight: 3},
			{Label: "Log", Lines: m.logs.Lines()},
		},
		Help: "s/space=start/stop  q=quit",
	}
	return frame.Render(m.width, m.height)
}

func (m liveModel) turnLines(who, text string, width int) []string {
	if text == "" {
		return nil
	}
	return cli.Wrap(who+": "+text, width)
}
