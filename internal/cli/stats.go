package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

var statsCmd = &cobra.Command{
	Use:   "stats [path...]",
	Short: "Print subtitle counts, words and reading speed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Print JSON instead of text")
}

type fileStats struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	editor.Stats
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	paths, err := collectSRT(args)
	if err != nil {
		return err
	}

	ret := make([]fileStats, 0, len(paths))
	for _, path := range paths {
		srt, err := subtitle.ReadFile(path)
		if err != nil {
			return err
		}
		ret = append(ret, fileStats{
			Path:     path,
			Language: srt.Language.String(),
			Stats:    editor.ComputeStats(srt.Cues),
		})
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ret)
	}
	return printStats(cmd.OutOrStdout(), ret)
}

func printStats(w io.Writer, all []fileStats) error {
	for _, s := range all {
		_, err := fmt.Fprintf(w, "%s\n  language: %s\n  subtitles: %s\n  words: %s\n  duration: %s\n  reading speed: %d wpm\n",
			s.Path,
			s.Language,
			humanize.Comma(int64(s.Count)),
			humanize.Comma(int64(s.Words)),
			editor.FormatDuration(s.TotalDurationMs),
			s.WordsPerMinute,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
