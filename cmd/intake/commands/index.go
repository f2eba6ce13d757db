// ABOUTME: CLI command to build and maintain the first-aid reference index
// ABOUTME: Indexes <dir>/<CATEGORY>/*.md|*.txt, skipping unchanged documents unless forced
package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/models"
)

var (
	indexForce bool
	indexStats bool
	indexClear bool
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index first-aid reference documents",
		Long: `Index first-aid reference documents for guidance retrieval.

Documents live under one directory per category:

  docs/FIRE_RESCUE/smoke.md
  docs/MEDICAL/bleeding.md
  docs/SECURITY/robbery.txt

Unchanged documents are skipped by content hash. The directory defaults
to INTAKE_DOCS_DIR.`,
		Example: `  intake index
  intake index ./docs --force
  intake index --stats
  intake index --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().BoolVar(&indexForce, "force", false, "Re-index documents even when unchanged")
	cmd.Flags().BoolVar(&indexStats, "stats", false, "Show index statistics and exit")
	cmd.Flags().BoolVar(&indexClear, "clear", false, "Remove every indexed chunk and exit")
	cmd.MarkFlagsMutuallyExclusive("stats", "clear", "force")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	maintenance := indexStats || indexClear
	cfg, err := loadConfig(!maintenance)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case indexClear:
		if err := a.Index.Clear(ctx); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
		if !quiet {
			fmt.Fprintln(out, "Index cleared")
		}
		return nil
	case indexStats:
		stats, err := a.Index.Stats(ctx)
		if err != nil {
			return fmt.Errorf("reading index stats: %w", err)
		}
		return printStats(cmd, stats)
	}

	dir := cfg.DocsDir
	if len(args) == 1 {
		dir = args[0]
	}

	results, err := a.Index.IndexDirectory(ctx, dir, indexForce)
	if err != nil {
		return err
	}

	format, err := resolveFormat("table")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(out, results)
	case "yaml":
		return writeYAML(out, results)
	}

	indexed := 0
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SOURCE\tCATEGORY\tCHUNKS\tSTATUS\n")
	for _, r := range results {
		status := "indexed"
		if r.Skipped {
			status = "unchanged"
		} else {
			indexed++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", truncate(r.Source, 40), r.Category, r.Chunks, status)
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\n%d document(s), %d indexed\n", len(results), indexed)
	}
	return nil
}

func printStats(cmd *cobra.Command, stats models.IndexStats) error {
	out := cmd.OutOrStdout()
	format, err := resolveFormat("table")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return writeJSON(out, stats)
	case "yaml":
		return writeYAML(out, stats)
	}

	fmt.Fprintf(out, "Documents: %d\nChunks:    %d\n", stats.Documents, stats.Chunks)
	categories := make([]string, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(out, "  %-12s %d\n", c, stats.ByCategory[models.Category(c)])
	}
	return nil
}
