package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/search"
)

func newSearchCmd() *cobra.Command {
	var mode string
	var topK int
	var path string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index from the command line",
		Long: `Run one search against the index: semantic, keyword, or hybrid
(the default), and print ranked results with source attribution.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, path, strings.Join(args, " "), mode, topK, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "hybrid", "Search mode: semantic, keyword, or hybrid")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of results to return (defaults to config's similarity_top_k)")
	cmd.Flags().StringVar(&path, "path", ".", "Documents root to search")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root, query, mode string, topK int, jsonOutput bool) error {
	eng, err := openEngine(ctx, resolveRoot(root))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	opts := eng.searchOptions()
	switch mode {
	case "semantic":
		opts.Mode = search.ModeSemantic
	case "keyword":
		opts.Mode = search.ModeKeyword
	case "", "hybrid":
		opts.Mode = search.ModeHybrid
	default:
		return fmt.Errorf("unknown search mode %q: use semantic, keyword, or hybrid", mode)
	}
	if topK > 0 {
		opts.TopK = topK
	}

	results, err := eng.search.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := cmd.OutOrStdout()
	for i, r := range results {
		f, err := eng.metadata.GetFileByID(ctx, r.DocID)
		source := r.DocID
		if err == nil && f != nil {
			source = f.Path
		}
		fmt.Fprintf(w, "%d. %s (chunk %d, semantic=%.3f keyword=%.3f)\n", i+1, source, r.ChunkID, r.SemanticScore, r.KeywordScore)
		if chunks, cerr := eng.metadata.GetChunksByFile(ctx, r.DocID); cerr == nil {
			for _, c := range chunks {
				if c.ChunkID == r.ChunkID {
					fmt.Fprintln(w, "   "+truncate(c.Content, 200))
					break
				}
			}
		}
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
