package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Format encodes cues as SRT in slice order. Indexes are renumbered from 1;
// cue ids are not written.
func Format(cues Cues) string {
	blocks := make([]string, 0, len(cues))
	for i, cue := range cues {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s", i+1, cue.StartTime, cue.EndTime, cue.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// WriteFile writes cues to path in SRT format
func WriteFile(path string, cues Cues) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.WriteString(Format(cues)); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}
