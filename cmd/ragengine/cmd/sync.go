package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/output"
)

func newSyncCmd() *cobra.Command {
	var deep bool
	var includeNew bool
	var autoFix bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Reconcile the index against the filesystem",
		Long: `Check the metadata store and vector store for drift against the
documents directory: missing files, content changes, and orphaned vectors.

A shallow scan (the default) trusts recorded content hashes and only checks
file presence. --deep recomputes every file's hash on disk.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runSync(cmd.Context(), cmd, root, deep, includeNew, autoFix, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Recompute content hashes for every file")
	cmd.Flags().BoolVar(&includeNew, "include-new", true, "Report supported files with no file record")
	cmd.Flags().BoolVar(&autoFix, "fix", false, "Apply fixes for detected issues")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, root string, deep, includeNew, autoFix, jsonOutput bool) error {
	eng, err := openEngine(ctx, resolveRoot(root))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	report, err := eng.sync.GenerateSyncReport(ctx, deep, includeNew, autoFix)
	if err != nil {
		return fmt.Errorf("generate sync report: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := output.New(cmd.OutOrStdout())
	if len(report.Issues) == 0 {
		out.Success(fmt.Sprintf("%d files checked, no drift detected", report.FilesChecked))
		return nil
	}

	out.Warning(fmt.Sprintf("%d files checked, %d issues found", report.FilesChecked, len(report.Issues)))
	for kind, count := range report.IssueCounts {
		out.Status("", fmt.Sprintf("  %s: %d", kind, count))
	}
	if autoFix {
		applied := 0
		for _, f := range report.Fixed {
			if f.Applied {
				applied++
			}
		}
		out.Status("", fmt.Sprintf("fixed %d/%d issues", applied, len(report.Fixed)))
	}
	return nil
}
