package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	planStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("11")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15")).
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	editStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	errorStyle = statusStyle.
			Foreground(lipgloss.Color("9"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.statsView())
	b.WriteString("\n\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	if m.editing {
		b.WriteString(editStyle.Render(string(m.input) + "▏"))
		b.WriteString("\n")
	}
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpText))
	return b.String()
}

func (m Model) headerView() string {
	title := m.opts.Title
	if title == "" {
		title = fmt.Sprintf("project %d", m.state.ProjectID)
	}
	plan := "FREE"
	if m.session.Policy().Pro {
		plan = "PRO"
	}
	return titleStyle.Render("subtitle-studio · "+title) + " " + planStyle.Render(plan)
}

func (m Model) statsView() string {
	stats := editor.ComputeStats(m.state.Cues)
	playback := "⏸"
	if m.playing {
		playback = "▶"
	}
	return statsStyle.Render(fmt.Sprintf("%s %s · %s subtitles · %s words · %s · %d wpm",
		playback,
		subtitle.MsToTime(int64(m.position*1000)),
		humanize.Comma(int64(stats.Count)),
		humanize.Comma(int64(stats.Words)),
		editor.FormatDuration(stats.TotalDurationMs),
		stats.WordsPerMinute,
	))
}

func (m Model) listView() string {
	if len(m.state.Cues) == 0 {
		return helpStyle.Render("No subtitles yet. Press a to add one.")
	}

	end := min(m.offset+m.listRows(), len(m.state.Cues))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		cue := m.state.Cues[i]
		text := strings.ReplaceAll(cue.Text, "\n", " ⏎ ")
		line := fmt.Sprintf("%4d  %s → %s  %s", cue.ID, cue.StartTime, cue.EndTime, text)
		if m.width > 0 {
			line = truncate(line, m.width)
		}

		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case m.hasActive && cue.ID == m.activeID:
			line = activeStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusView() string {
	if m.status != "" {
		if m.statusErr {
			return errorStyle.Render(m.status)
		}
		return statusStyle.Render(m.status)
	}

	switch {
	case len(m.state.Cues) == 0:
		return statusStyle.Render("empty project")
	case !m.state.Cached:
		return statusStyle.Render("unsaved changes")
	case !m.lastSaved.IsZero():
		return statusStyle.Render("saved " + humanize.RelTime(m.lastSaved, m.opts.Now(), "ago", "from now"))
	default:
		return statusStyle.Render("saved")
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
