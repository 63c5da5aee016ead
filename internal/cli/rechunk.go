package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

var rechunkCmd = &cobra.Command{
	Use:   "rechunk [subtitle_file]",
	Short: "Split long subtitles into chunks of at most N words",
	Long: `Split every subtitle holding more than N words into consecutive
subtitles spread evenly over the original time span.

Examples:
  subtitle-studio rechunk episode.srt --words 4
  subtitle-studio rechunk episode.srt -o short.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runRechunk,
}

func init() {
	rootCmd.AddCommand(rechunkCmd)

	rechunkCmd.Flags().IntP("words", "n", config.DefaultWordsPerChunk, "Maximum words per subtitle")
	rechunkCmd.Flags().StringP("output", "o", "", "Output path (defaults to <name>.rechunked.srt)")
}

func runRechunk(cmd *cobra.Command, args []string) error {
	words, _ := cmd.Flags().GetInt("words")
	output, _ := cmd.Flags().GetString("output")

	out, count, err := rechunkFile(args[0], output, words)
	if err != nil {
		return err
	}
	log.Info("Wrote %d subtitles to %s", count, out)
	return nil
}

func rechunkFile(path, output string, words int) (string, int, error) {
	srt, err := subtitle.ReadFile(path)
	if err != nil {
		return "", 0, err
	}

	// batch rewrites are not gated like interactive sessions
	session := service.NewSession(0, editor.Policy{Pro: true})
	session.Reset(srt.Cues)
	state, err := session.Rechunk(words)
	if err != nil {
		return "", 0, err
	}

	if output == "" {
		output = file.ReplaceExt(path, ".rechunked.srt")
	}
	if err := subtitle.WriteFile(output, state.Cues); err != nil {
		return "", 0, fmt.Errorf("write %s: %w", output, err)
	}
	return output, len(state.Cues), nil
}
