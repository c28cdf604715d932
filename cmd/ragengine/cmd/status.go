package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/output"
)

type statusInfo struct {
	Root          string `json:"root"`
	DataDir       string `json:"data_dir"`
	TotalFiles    int    `json:"total_files"`
	TotalChunks   int    `json:"total_chunks"`
	TotalVectors  int64  `json:"total_vectors"`
	Dimensions    int    `json:"dimensions"`
	EmbeddingMode string `json:"embedding_service"`
	EmbeddingName string `json:"embedding_model"`
	MetadataSize  int64  `json:"metadata_size_bytes"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show index health and status",
		Long: `Display the number of indexed files and chunks, vector store size,
and the active embedding backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runStatus(cmd.Context(), cmd, root, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, root string, jsonOutput bool) error {
	root = resolveRoot(root)

	eng, err := openEngine(ctx, root)
	if err != nil {
		return fmt.Errorf("no usable index in %s: %w\nRun 'ragengine index' to create one", root, err)
	}
	defer func() { _ = eng.Close() }()

	files, err := eng.metadata.ListFiles(ctx)
	if err != nil {
		return err
	}
	totalChunks := 0
	for _, f := range files {
		chunks, cerr := eng.metadata.GetChunksByFile(ctx, f.FileID)
		if cerr == nil {
			totalChunks += len(chunks)
		}
	}

	vecStats := eng.vectors.Stats()
	info := statusInfo{
		Root:          root,
		DataDir:       eng.dataDir,
		TotalFiles:    len(files),
		TotalChunks:   totalChunks,
		TotalVectors:  vecStats.TotalVectors,
		Dimensions:    vecStats.Dimensions,
		EmbeddingMode: string(eng.cfg.EmbeddingService),
		EmbeddingName: eng.cfg.EmbeddingModel,
		MetadataSize:  fileSize(filepath.Join(eng.dataDir, "metadata.db")),
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out := output.New(cmd.OutOrStdout())
	out.Status("", fmt.Sprintf("root:       %s", info.Root))
	out.Status("", fmt.Sprintf("data dir:   %s", info.DataDir))
	out.Status("", fmt.Sprintf("files:      %d", info.TotalFiles))
	out.Status("", fmt.Sprintf("chunks:     %d", info.TotalChunks))
	out.Status("", fmt.Sprintf("vectors:    %d (%d dims)", info.TotalVectors, info.Dimensions))
	out.Status("", fmt.Sprintf("embedder:   %s (%s)", info.EmbeddingMode, info.EmbeddingName))
	return nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
