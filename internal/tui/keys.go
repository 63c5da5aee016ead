package tui

import "github.com/MimeLyc/subtitle-studio/internal/editor"

// Terminals cannot report chords such as ctrl+enter, so every editing
// command also has a plain key.
var fallbackKeys = map[string]editor.Command{
	"a":      editor.CommandAdd,
	"x":      editor.CommandDelete,
	"delete": editor.CommandDelete,
	"s":      editor.CommandSplit,
	"m":      editor.CommandMerge,
	"u":      editor.CommandUndo,
	"ctrl+r": editor.CommandRedo,
	"p":      editor.CommandTogglePlay,
	"e":      editor.CommandExport,
}

const helpText = "j/k move · space/p play · ←/→ seek · enter edit · a add · x delete · s split · m merge · " +
	"r rechunk · u undo · ctrl+r redo · e export · y copy · q quit"

// resolveKey maps a key press to an editor command. Shortcut chords win
// over the plain fallbacks.
func resolveKey(key string, hasSelection, pro bool) editor.Command {
	if cmd := editor.ResolveShortcut(key, hasSelection, pro); cmd != editor.CommandNone {
		return cmd
	}
	return fallbackKeys[key]
}
