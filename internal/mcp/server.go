package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localrag/ragengine/internal/embed"
	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/model"
	"github.com/localrag/ragengine/internal/search"
	"github.com/localrag/ragengine/internal/store"
	syncmgr "github.com/localrag/ragengine/internal/sync"
	"github.com/localrag/ragengine/pkg/version"
)

// Server is the tool surface (C10): a stateless MCP server dispatching the
// eight external tools onto the core operations. It holds no state beyond
// the handles needed to reach those operations.
type Server struct {
	mcp      *mcp.Server
	metadata store.MetadataStore
	vectors  *store.VectorStore
	engine   *search.Engine
	syncMgr  *syncmgr.Manager
	embedder embed.Embedder
	logger   *slog.Logger
}

func NewServer(metadata store.MetadataStore, vectors *store.VectorStore, engine *search.Engine, syncMgr *syncmgr.Manager, embedder embed.Embedder) *Server {
	s := &Server{
		metadata: metadata,
		vectors:  vectors,
		engine:   engine,
		syncMgr:  syncMgr,
		embedder: embedder,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "ragengine", Version: version.Version}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP SDK server, for transport wiring.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over the given transport. Only stdio is currently
// supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		}
		return err
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed documents by semantic similarity, keyword match, or both. Returns ranked chunks with source attribution.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_sources",
		Description: "List indexed source files, optionally grouped and filtered by type.",
	}, s.handleListSources)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "extract_information",
		Description: "Gather supporting context chunks for a question and surface heuristic extractions from them.",
	}, s.handleExtractInformation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_db_sync_check",
		Description: "Run a sync report against the filesystem, metadata store, and vector store, optionally applying fixes.",
	}, s.handleSyncCheck)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_db_cleanup_orphaned",
		Description: "Find and optionally delete vectors whose doc_id has no corresponding file record.",
	}, s.handleCleanupOrphaned)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_db_force_sync",
		Description: "Destructively rebuild the vector store from the metadata store's file list. Requires confirm=true.",
	}, s.handleForceSync)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vector_db_integrity_report",
		Description: "Produce a drift report in summary, detailed, or json form without applying fixes.",
	}, s.handleIntegrityReport)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_vectordb_info",
		Description: "Return vector store size, dimensions, active model, and last-updated time.",
	}, s.handleVectorDBInfo)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, Envelope, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, FailWith(string(ragerrors.CategoryValidation), "query is required", "provide a non-empty query"), nil
	}
	topK := in.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK > 50 {
		topK = 50
	}

	mode := search.ModeHybrid
	switch in.SearchType {
	case "semantic":
		mode = search.ModeSemantic
	case "keyword":
		mode = search.ModeKeyword
	case "", "hybrid":
		mode = search.ModeHybrid
	default:
		return nil, FailWith(string(ragerrors.CategoryValidation), fmt.Sprintf("unknown searchType %q", in.SearchType), "use semantic, keyword, or hybrid"), nil
	}

	results, err := s.engine.Search(ctx, in.Query, search.Options{Mode: mode, TopK: topK})
	if err != nil {
		return nil, Fail(err), nil
	}

	enriched, err := s.enrichResults(ctx, results)
	if err != nil {
		return nil, Fail(err), nil
	}

	filtered := enriched[:0]
	for _, r := range enriched {
		if r.VectorScore < in.ScoreThreshold && r.KeywordScore < in.ScoreThreshold {
			continue
		}
		filtered = append(filtered, r)
	}

	return nil, Ok(SearchOutput{Results: filtered}), nil
}

func (s *Server) enrichResults(ctx context.Context, results []*search.Result) ([]SearchResultOutput, error) {
	fileCache := make(map[string]*model.File)
	chunkCache := make(map[string]map[int]*model.Chunk)

	out := make([]SearchResultOutput, 0, len(results))
	for i, r := range results {
		f, ok := fileCache[r.DocID]
		if !ok {
			var err error
			f, err = s.metadata.GetFileByID(ctx, r.DocID)
			if err != nil {
				return nil, ragerrors.StorageError("load file for search result", err)
			}
			fileCache[r.DocID] = f
		}

		chunksByID, ok := chunkCache[r.DocID]
		if !ok {
			chunks, err := s.metadata.GetChunksByFile(ctx, r.DocID)
			if err != nil {
				return nil, ragerrors.StorageError("load chunks for search result", err)
			}
			chunksByID = make(map[int]*model.Chunk, len(chunks))
			for _, c := range chunks {
				chunksByID[c.ChunkID] = c
			}
			chunkCache[r.DocID] = chunksByID
		}

		entry := SearchResultOutput{
			Rank:         i + 1,
			VectorScore:  r.SemanticScore,
			KeywordScore: r.KeywordScore,
		}
		if chunk, ok := chunksByID[r.ChunkID]; ok {
			entry.Content = chunk.Content
		}
		if f != nil {
			entry.Source = SourceInfo{Filename: f.Name, Filepath: f.Path, FileType: f.FileType, ChunkIndex: r.ChunkID}
		} else {
			entry.Source = SourceInfo{ChunkIndex: r.ChunkID}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Server) handleListSources(ctx context.Context, _ *mcp.CallToolRequest, in ListSourcesInput) (*mcp.CallToolResult, Envelope, error) {
	files, err := s.metadata.ListFiles(ctx)
	if err != nil {
		return nil, Fail(err), nil
	}

	entries := make([]SourceEntry, 0, len(files))
	for _, f := range files {
		if in.SourceTypeFilter != "" && f.FileType != in.SourceTypeFilter {
			continue
		}
		e := SourceEntry{Path: f.Path, FileType: f.FileType}
		if in.IncludeStats {
			e.Size = f.Size
			e.IndexedAt = f.IndexedAt.Format("2006-01-02T15:04:05Z07:00")
			e.ContentHash = f.ContentHash
			if chunks, cerr := s.metadata.GetChunksByFile(ctx, f.FileID); cerr == nil {
				e.ChunkCount = len(chunks)
			}
		}
		entries = append(entries, e)
	}

	if in.Limit > 0 && len(entries) > in.Limit {
		entries = entries[:in.Limit]
	}

	out := ListSourcesOutput{Total: len(entries)}
	if in.GroupBy == "file_type" || in.GroupBy == "source_type" {
		groups := make(map[string][]SourceEntry)
		for _, e := range entries {
			groups[e.FileType] = append(groups[e.FileType], e)
		}
		out.Groups = groups
	} else {
		out.Sources = entries
	}

	return nil, Ok(out), nil
}

func (s *Server) handleExtractInformation(ctx context.Context, _ *mcp.CallToolRequest, in ExtractInformationInput) (*mcp.CallToolResult, Envelope, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, FailWith(string(ragerrors.CategoryValidation), "question is required", "provide a non-empty question"), nil
	}
	limit := in.ContextLimit
	if limit <= 0 {
		limit = 5
	}

	mode := search.ModeHybrid
	switch in.SearchMethod {
	case "semantic":
		mode = search.ModeSemantic
	case "keyword":
		mode = search.ModeKeyword
	}

	var filter model.Filter
	filter.DocIDs = in.Sources

	results, err := s.engine.Search(ctx, in.Question, search.Options{Mode: mode, TopK: limit, Filter: filter})
	if err != nil {
		return nil, Fail(err), nil
	}
	enriched, err := s.enrichResults(ctx, results)
	if err != nil {
		return nil, Fail(err), nil
	}

	contexts := make([]ExtractedContext, 0, len(enriched))
	var extractions []string
	for _, r := range enriched {
		score := r.VectorScore
		if r.KeywordScore > score {
			score = r.KeywordScore
		}
		contexts = append(contexts, ExtractedContext{Content: r.Content, Score: score, Source: r.Source})
		if sentence := bestSentence(r.Content, in.Question); sentence != "" {
			extractions = append(extractions, sentence)
		}
	}

	return nil, Ok(ExtractInformationOutput{Question: in.Question, Context: contexts, Extractions: extractions}), nil
}

// bestSentence picks the sentence from content sharing the most
// whole-word overlap with question, a cheap heuristic extraction with no
// dependency on an LLM.
func bestSentence(content, question string) string {
	sentences := strings.FieldsFunc(content, func(r rune) bool { return r == '.' || r == '\n' })
	qWords := wordSet(question)

	best, bestScore := "", 0
	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		score := 0
		for w := range wordSet(sent) {
			if qWords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sent, score
		}
	}
	return best
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	return set
}

func (s *Server) handleSyncCheck(ctx context.Context, _ *mcp.CallToolRequest, in SyncCheckInput) (*mcp.CallToolResult, Envelope, error) {
	report, err := s.syncMgr.GenerateSyncReport(ctx, in.DeepScan, in.IncludeNew, in.AutoFix)
	if err != nil {
		return nil, Fail(err), nil
	}

	out := SyncCheckOutput{FilesChecked: report.FilesChecked, IssueCounts: counts(report)}
	for _, f := range report.Fixed {
		out.Fixed = append(out.Fixed, FixSummary{Kind: string(f.Issue.Kind), Path: f.Issue.Path, Applied: f.Applied, Error: f.Error})
	}
	return nil, Ok(out), nil
}

func (s *Server) handleCleanupOrphaned(ctx context.Context, _ *mcp.CallToolRequest, in CleanupOrphanedInput) (*mcp.CallToolResult, Envelope, error) {
	report, err := s.syncMgr.GenerateSyncReport(ctx, false, false, false)
	if err != nil {
		return nil, Fail(err), nil
	}

	var orphaned []syncmgr.Issue
	for _, issue := range report.Issues {
		if issue.Kind == ragerrors.IntegrityOrphanedVector {
			orphaned = append(orphaned, issue)
		}
	}

	out := CleanupOrphanedOutput{OrphanedFound: len(orphaned), DryRun: in.DryRun}
	for _, o := range orphaned {
		out.OrphanedDocIDs = append(out.OrphanedDocIDs, o.FileID)
	}

	if !in.DryRun && len(orphaned) > 0 {
		fixed, err := s.syncMgr.ApplyFixes(ctx, orphaned)
		if err != nil {
			return nil, Fail(err), nil
		}
		for _, f := range fixed {
			if f.Applied {
				out.Removed++
			}
		}
	}

	return nil, Ok(out), nil
}

func (s *Server) handleForceSync(ctx context.Context, _ *mcp.CallToolRequest, in ForceSyncInput) (*mcp.CallToolResult, Envelope, error) {
	if !in.Confirm {
		return nil, FailWith(string(ragerrors.CategoryValidation), "force_sync is destructive and requires confirm=true", "re-invoke with confirm: true to proceed"), nil
	}

	gen := &model.EmbeddingGeneration{
		ModelName:  s.embedder.ModelName(),
		Dimensions: s.embedder.Dimensions(),
	}
	reingested, failed, err := s.syncMgr.ForceSync(ctx, gen)
	if err != nil {
		return nil, Fail(err), nil
	}
	return nil, Ok(ForceSyncOutput{Reingested: reingested, Failed: failed}), nil
}

func (s *Server) handleIntegrityReport(ctx context.Context, _ *mcp.CallToolRequest, in IntegrityReportInput) (*mcp.CallToolResult, Envelope, error) {
	format := in.Format
	if format == "" {
		format = "summary"
	}
	if format != "summary" && format != "detailed" && format != "json" {
		return nil, FailWith(string(ragerrors.CategoryValidation), fmt.Sprintf("unknown format %q", format), "use summary, detailed, or json"), nil
	}

	report, err := s.syncMgr.GenerateSyncReport(ctx, true, true, false)
	if err != nil {
		return nil, Fail(err), nil
	}

	out := IntegrityReportOutput{Format: format, Counts: counts(report)}
	if format != "summary" {
		for _, issue := range report.Issues {
			out.Issues = append(out.Issues, IssueDetail{
				Kind: string(issue.Kind), Severity: string(issue.Severity),
				Path: issue.Path, FileID: issue.FileID, Details: issue.Details,
			})
		}
	}
	if format == "summary" || format == "detailed" {
		out.Summary = summarize(report)
	}

	return nil, Ok(out), nil
}

func summarize(report *syncmgr.Report) string {
	if len(report.Issues) == 0 {
		return fmt.Sprintf("%d files checked, no drift detected", report.FilesChecked)
	}
	kinds := make([]ragerrors.IntegrityKind, 0, len(report.IssueCounts))
	for k := range report.IssueCounts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d files checked, %d issues found: ", report.FilesChecked, len(report.Issues))
	for i, k := range kinds {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%d", k, report.IssueCounts[k])
	}
	return sb.String()
}

func counts(report *syncmgr.Report) map[string]int {
	out := make(map[string]int, len(report.IssueCounts))
	for k, v := range report.IssueCounts {
		out[string(k)] = v
	}
	return out
}

func (s *Server) handleVectorDBInfo(ctx context.Context, _ *mcp.CallToolRequest, _ VectorDBInfoInput) (*mcp.CallToolResult, Envelope, error) {
	stats := s.vectors.Stats()
	files, err := s.metadata.ListFiles(ctx)
	if err != nil {
		return nil, Fail(err), nil
	}

	out := VectorDBInfoOutput{
		TotalFiles:   len(files),
		TotalVectors: stats.TotalVectors,
		Dimensions:   stats.Dimensions,
		ModelName:    s.embedder.ModelName(),
	}
	if !stats.LastUpdated.IsZero() {
		out.LastUpdated = stats.LastUpdated.Format("2006-01-02T15:04:05Z07:00")
	}
	return nil, Ok(out), nil
}
