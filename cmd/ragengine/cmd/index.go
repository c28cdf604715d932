package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/read"
	"github.com/localrag/ragengine/internal/ui"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or rebuild the index for a documents directory",
		Long: `Walk the documents directory, chunk every supported file, embed the
chunks, and write the resulting records to the metadata and vector stores.

This is a full pass: every supported file is visited and read, whether or
not it was indexed before. A file whose content hash matches its stored
record and which already has vectors is left as it is; only new or changed
files are chunked and embedded again. Use 'ragengine sync' for incremental
reconciliation once an index exists.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runIndex(cmd.Context(), cmd, root)
		},
	}
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string) error {
	root = resolveRoot(root)

	eng, err := openEngine(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	renderer := ui.NewRenderer(ui.Config{Output: cmd.OutOrStdout(), Label: eng.cfg.DocumentsDir})
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	documentsDir := eng.cfg.DocumentsDir
	if !filepath.IsAbs(documentsDir) {
		documentsDir = filepath.Join(root, documentsDir)
	}

	start := time.Now()
	var files, errs, warns int

	walkErr := filepath.WalkDir(documentsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != documentsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return nil
		}
		ext := read.Extension(path)
		if !read.IsSupported(ext) {
			return nil
		}

		relPath, err := filepath.Rel(documentsDir, path)
		if err != nil {
			return nil
		}

		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: files + 1, CurrentFile: relPath})

		if procErr := eng.pipeline.Process(ctx, relPath); procErr != nil {
			errs++
			renderer.AddError(ui.ErrorEvent{File: relPath, Err: procErr})
		} else {
			files++
		}
		return nil
	})
	if walkErr != nil {
		_ = renderer.Stop()
		return fmt.Errorf("walk documents directory: %w", walkErr)
	}

	renderer.Complete(ui.CompletionStats{
		Files:    files,
		Duration: time.Since(start),
		Errors:   errs,
		Warnings: warns,
		Embedder: ui.EmbedderInfo{
			Backend:    string(eng.cfg.EmbeddingService),
			Model:      eng.embedder.ModelName(),
			Dimensions: eng.embedder.Dimensions(),
		},
	})
	return renderer.Stop()
}
