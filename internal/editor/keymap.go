package editor

import "strings"

type Command string

const (
	CommandNone       Command = ""
	CommandTogglePlay Command = "toggle-play"
	CommandExport     Command = "export"
	CommandAdd        Command = "add"
	CommandDelete     Command = "delete"
	CommandSplit      Command = "split"
	CommandMerge      Command = "merge"
	CommandUndo       Command = "undo"
	CommandRedo       Command = "redo"
)

// GatedFeature names the capability a command needs, if any.
func (c Command) GatedFeature() (Feature, bool) {
	switch c {
	case CommandSplit:
		return FeatureSplitSubtitle, true
	case CommandMerge:
		return FeatureMergeSubtitle, true
	}
	return "", false
}

// NeedsSelection reports whether the command acts on a selected cue.
func (c Command) NeedsSelection() bool {
	switch c {
	case CommandAdd, CommandDelete, CommandSplit, CommandMerge:
		return true
	}
	return false
}

// ResolveShortcut maps a key chord such as "ctrl+s" or "cmd+enter" to a
// command. Cmd and meta are treated as ctrl. Gated commands resolve to
// CommandNone without pro.
func ResolveShortcut(chord string, hasSelection, pro bool) Command {
	cmd := lookupChord(normalizeChord(chord))
	if cmd == CommandNone {
		return CommandNone
	}
	if cmd.NeedsSelection() && !hasSelection {
		return CommandNone
	}
	if _, gated := cmd.GatedFeature(); gated && !pro {
		return CommandNone
	}
	return cmd
}

func normalizeChord(chord string) string {
	if chord == " " {
		return "space"
	}
	c := strings.ToLower(strings.TrimSpace(chord))
	c = strings.ReplaceAll(c, " ", "")
	for _, alias := range []string{"cmd+", "meta+", "command+", "super+"} {
		if strings.HasPrefix(c, alias) {
			c = "ctrl+" + strings.TrimPrefix(c, alias)
			break
		}
	}
	return c
}

func lookupChord(chord string) Command {
	switch chord {
	case "space":
		return CommandTogglePlay
	case "ctrl+s":
		return CommandExport
	case "ctrl+enter", "ctrl+return":
		return CommandAdd
	case "ctrl+delete", "ctrl+backspace":
		return CommandDelete
	case "ctrl+d":
		return CommandSplit
	case "ctrl+m":
		return CommandMerge
	case "ctrl+z":
		return CommandUndo
	case "ctrl+y", "ctrl+shift+z":
		return CommandRedo
	}
	return CommandNone
}
