// Package tui is a terminal editor for a single subtitle file.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const (
	tickInterval = 100 * time.Millisecond
	seekStep     = 1.0
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type Options struct {
	// Title is shown in the header, usually the input file name.
	Title string
	// OutputPath is where the export command writes the SRT file.
	OutputPath    string
	WordsPerChunk int
	// Notice is shown as a warning until the first command replaces it.
	Notice string

	CopyToClipboard func(string) error
	// Flush persists pending changes when the program quits.
	Flush func(context.Context) error
	Now   func() time.Time
}

type Model struct {
	session *service.Session
	opts    Options
	state   service.State

	cursor int
	offset int

	playing   bool
	position  float64
	lastTick  time.Time
	activeID  int
	hasActive bool

	editing bool
	input   []rune

	width  int
	height int

	status    string
	statusErr bool
	lastSaved time.Time
	quitting  bool
}

func New(session *service.Session, opts Options) Model {
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WordsPerChunk <= 0 {
		opts.WordsPerChunk = 5
	}
	return Model{
		session:   session,
		opts:      opts,
		state:     session.Snapshot(),
		height:    24,
		status:    opts.Notice,
		statusErr: opts.Notice != "",
	}
}

// Run starts the program on the terminal's alternate screen and blocks
// until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll()
		return m, nil
	case tickMsg:
		m.advance(time.Time(msg))
		return m, tick()
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m.quit()
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "home", "g":
		m.moveCursor(-len(m.state.Cues))
		return m, nil
	case "end", "G":
		m.moveCursor(len(m.state.Cues))
		return m, nil
	case "left":
		m.seek(m.position - seekStep)
		return m, nil
	case "right":
		m.seek(m.position + seekStep)
		return m, nil
	case "enter":
		if cue, ok := m.selected(); ok {
			m.editing = true
			m.input = []rune(cue.Text)
		}
		return m, nil
	case "r":
		state, err := m.session.Rechunk(m.opts.WordsPerChunk)
		m.apply(state, err, fmt.Sprintf("Split into %d subtitles", len(state.Cues)))
		return m, nil
	case "y":
		m.copy()
		return m, nil
	}

	cmd := resolveKey(key, m.hasSelection(), m.session.Policy().Pro)
	if cmd == editor.CommandNone {
		return m, nil
	}
	return m.run(cmd), nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEsc:
		m.editing = false
		m.input = nil
	case tea.KeyEnter:
		if msg.Alt {
			m.input = append(m.input, '\n')
			return m, nil
		}
		cue, ok := m.selected()
		m.editing = false
		if ok {
			state, err := m.session.Update(cue.ID, subtitle.FieldText, string(m.input))
			m.apply(state, err, "")
		}
		m.input = nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m Model) run(cmd editor.Command) Model {
	switch cmd {
	case editor.CommandTogglePlay:
		m.playing = !m.playing
		m.lastTick = time.Time{}
		return m
	case editor.CommandExport:
		m.export()
		return m
	}

	before := len(m.state.Cues)
	var (
		state service.State
		err   error
	)
	if cmd == editor.CommandAdd && !m.hasSelection() {
		state, err = m.session.Add(0, false)
	} else {
		cue, _ := m.selected()
		state, err = m.session.Dispatch(cmd, cue.ID, m.hasSelection())
	}
	m.apply(state, err, "")

	// keep the new cue selected
	if err == nil && cmd == editor.CommandAdd && len(m.state.Cues) > before && before > 0 {
		m.moveCursor(1)
	}
	return m
}

func (m *Model) apply(state service.State, err error, okStatus string) {
	m.state = state
	m.clampCursor()
	if err != nil {
		m.setStatus(service.Classify(err).Message, true)
		return
	}
	if okStatus != "" {
		m.setStatus(okStatus, false)
	}
}

// advance moves the playback clock and follows the active cue.
func (m *Model) advance(now time.Time) {
	wasCached := m.state.Cached
	m.state = m.session.Snapshot()
	m.clampCursor()
	if !wasCached && m.state.Cached && len(m.state.Cues) > 0 {
		m.lastSaved = m.opts.Now()
	}

	if m.playing {
		if !m.lastTick.IsZero() {
			m.position += now.Sub(m.lastTick).Seconds()
		}
		m.lastTick = now
		if end := m.endSeconds(); m.position >= end {
			m.position = end
			m.playing = false
		}
	}
	m.follow()
}

func (m *Model) seek(seconds float64) {
	m.position = min(max(seconds, 0), m.endSeconds())
	m.follow()
}

func (m *Model) follow() {
	id, ok := editor.ResolveActiveCue(m.state.Cues, m.position)
	changed := ok && (!m.hasActive || id != m.activeID)
	m.activeID, m.hasActive = id, ok
	if !changed {
		return
	}
	if _, index, found := editor.Find(m.state.Cues, id); found {
		m.cursor = index
		m.scroll()
	}
}

func (m Model) endSeconds() float64 {
	end := 0.0
	for _, c := range m.state.Cues {
		end = max(end, subtitle.TimeToSeconds(c.EndTime))
	}
	return end
}

func (m *Model) export() {
	if m.opts.OutputPath == "" {
		m.setStatus("no output path configured", true)
		return
	}
	if err := subtitle.WriteFile(m.opts.OutputPath, m.state.Cues); err != nil {
		m.setStatus(fmt.Sprintf("export failed: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Exported %d subtitles to %s", len(m.state.Cues), m.opts.OutputPath), false)
}

func (m *Model) copy() {
	if err := m.opts.CopyToClipboard(m.session.Export()); err != nil {
		m.setStatus(fmt.Sprintf("copy failed: %v", err), true)
		return
	}
	m.setStatus("Copied SRT to clipboard", false)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.opts.Flush != nil {
		if err := m.opts.Flush(context.Background()); err != nil {
			log.Warn("Failed to save on exit: %v", err)
		}
	}
	return m, tea.Quit
}

func (m Model) selected() (subtitle.Cue, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Cues) {
		return subtitle.Cue{}, false
	}
	return m.state.Cues[m.cursor], true
}

func (m Model) hasSelection() bool {
	_, ok := m.selected()
	return ok
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	m.cursor = min(m.cursor, len(m.state.Cues)-1)
	m.cursor = max(m.cursor, 0)
	m.scroll()
}

func (m *Model) scroll() {
	rows := m.listRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = max(m.offset, 0)
}

func (m Model) listRows() int {
	return max(m.height-7, 3)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// State returns the last snapshot the model rendered.
func (m Model) State() service.State {
	return m.state
}
