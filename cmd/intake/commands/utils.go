// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: Format selection, JSON/YAML encoding, and compact time display
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time relative to now
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)
	future := diff < 0
	if future {
		diff = -diff
	}

	var s string
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		s = fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		s = fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		s = fmt.Sprintf("%dd", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
	if future {
		return "in " + s
	}
	return s + " ago"
}

// resolveFormat maps "auto" to the command's natural format
func resolveFormat(natural string) (string, error) {
	switch outputFormat {
	case "", "auto":
		return natural, nil
	case "table", "json", "yaml":
		return outputFormat, nil
	}
	return "", fmt.Errorf("unknown --format %q (want auto, table, json or yaml)", outputFormat)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
