package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [path...]",
	Short: "Normalise SRT files",
	Long: `Normalise SRT files: renumber cues, pad time codes to HH:MM:SS,mmm,
strip byte order marks and CRLF line endings. Malformed blocks are kept
with placeholder times.

Directories are searched recursively for .srt files.

Examples:
  subtitle-studio fmt episode.srt
  subtitle-studio fmt --write ./season1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().BoolP("write", "w", false, "Rewrite files in place instead of printing")
}

func runFmt(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")

	paths, err := collectSRT(args)
	if err != nil {
		return err
	}
	if !write && len(paths) > 1 {
		return fmt.Errorf("%d files matched: use --write to format more than one file", len(paths))
	}

	changed := 0
	for _, path := range paths {
		formatted, same, err := formatFile(path)
		if err != nil {
			return err
		}
		if !write {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), formatted)
			return err
		}
		if same {
			continue
		}
		if err := file.WriteAtomic(path, []byte(formatted), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		changed++
		log.Info("Formatted %s", path)
	}
	log.Info("Formatted %d of %d files", changed, len(paths))
	return nil
}

// formatFile returns the canonical form of an SRT file and whether it is
// byte-identical to the file on disk.
func formatFile(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	cues, err := subtitle.Parse(string(data))
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", path, err)
	}
	formatted := subtitle.Format(cues)
	return formatted, formatted == string(data), nil
}

// collectSRT expands directories into the .srt files below them.
func collectSRT(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := file.FindByExt(arg, ".srt")
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .srt files found")
	}
	return paths, nil
}
