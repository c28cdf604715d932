package mcp

// SearchInput is the search tool's request payload.
type SearchInput struct {
	Query          string  `json:"query" jsonschema:"the search query text"`
	TopK           int     `json:"topK,omitempty" jsonschema:"number of results to return, 1-50, default 10"`
	ScoreThreshold float64 `json:"scoreThreshold,omitempty" jsonschema:"minimum score in [0,1] a result must clear"`
	SearchType     string  `json:"searchType,omitempty" jsonschema:"semantic, keyword, or hybrid; default hybrid"`
}

// SearchResultOutput is one ranked hit enriched with file/chunk metadata.
type SearchResultOutput struct {
	Rank         int               `json:"rank"`
	Content      string            `json:"content"`
	VectorScore  float64           `json:"vector_score"`
	KeywordScore float64           `json:"keyword_score,omitempty"`
	Source       SourceInfo        `json:"source"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SourceInfo identifies where a chunk came from.
type SourceInfo struct {
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	FileType   string `json:"file_type"`
	ChunkIndex int    `json:"chunk_index"`
}

// SearchOutput is the search tool's response payload.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

// ListSourcesInput is the list_sources tool's request payload.
type ListSourcesInput struct {
	IncludeStats     bool   `json:"include_stats,omitempty"`
	SourceTypeFilter string `json:"source_type_filter,omitempty" jsonschema:"restrict to one file_type"`
	GroupBy          string `json:"group_by,omitempty" jsonschema:"source_type or file_type"`
	Limit            int    `json:"limit,omitempty"`
}

// SourceEntry describes one indexed file.
type SourceEntry struct {
	Path        string `json:"path"`
	FileType    string `json:"file_type"`
	Size        int64  `json:"size,omitempty"`
	ChunkCount  int    `json:"chunk_count,omitempty"`
	IndexedAt   string `json:"indexed_at,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

// ListSourcesOutput is the list_sources tool's response payload.
type ListSourcesOutput struct {
	Total   int                      `json:"total"`
	Sources []SourceEntry            `json:"sources,omitempty"`
	Groups  map[string][]SourceEntry `json:"groups,omitempty"`
}

// ExtractInformationInput is the extract_information tool's request payload.
type ExtractInformationInput struct {
	Question     string   `json:"question" jsonschema:"the question to answer from indexed content"`
	ContextLimit int      `json:"context_limit,omitempty" jsonschema:"max context chunks to gather, default 5"`
	Sources      []string `json:"sources,omitempty" jsonschema:"restrict to these doc_ids"`
	SearchMethod string   `json:"search_method,omitempty" jsonschema:"semantic, keyword, or hybrid; default hybrid"`
}

// ExtractedContext is one chunk of supporting context.
type ExtractedContext struct {
	Content string     `json:"content"`
	Score   float64    `json:"score"`
	Source  SourceInfo `json:"source"`
}

// ExtractInformationOutput is the extract_information tool's response payload.
type ExtractInformationOutput struct {
	Question   string              `json:"question"`
	Context    []ExtractedContext  `json:"context"`
	Extractions []string           `json:"extractions"`
}

// SyncCheckInput is the vector_db_sync_check tool's request payload.
type SyncCheckInput struct {
	DeepScan      bool `json:"deepScan,omitempty"`
	IncludeNew    bool `json:"includeNewFiles,omitempty"`
	AutoFix       bool `json:"autoFix,omitempty"`
}

// SyncCheckOutput is the vector_db_sync_check tool's response payload.
type SyncCheckOutput struct {
	FilesChecked int            `json:"files_checked"`
	IssueCounts  map[string]int `json:"issue_counts"`
	Fixed        []FixSummary   `json:"fixed,omitempty"`
}

// FixSummary reports the outcome of one applied repair.
type FixSummary struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// CleanupOrphanedInput is the vector_db_cleanup_orphaned tool's request payload.
type CleanupOrphanedInput struct {
	DryRun bool `json:"dryRun,omitempty"`
}

// CleanupOrphanedOutput is the vector_db_cleanup_orphaned tool's response payload.
type CleanupOrphanedOutput struct {
	OrphanedFound  int      `json:"orphaned_found"`
	OrphanedDocIDs []string `json:"orphaned_doc_ids,omitempty"`
	Removed        int      `json:"removed"`
	DryRun         bool     `json:"dry_run"`
}

// ForceSyncInput is the vector_db_force_sync tool's request payload.
type ForceSyncInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; force_sync is destructive"`
}

// ForceSyncOutput is the vector_db_force_sync tool's response payload.
type ForceSyncOutput struct {
	Reingested int `json:"reingested"`
	Failed     int `json:"failed"`
}

// IntegrityReportInput is the vector_db_integrity_report tool's request payload.
type IntegrityReportInput struct {
	Format string `json:"format,omitempty" jsonschema:"summary, detailed, or json; default summary"`
}

// IntegrityReportOutput is the vector_db_integrity_report tool's response payload.
type IntegrityReportOutput struct {
	Format  string         `json:"format"`
	Summary string         `json:"summary,omitempty"`
	Counts  map[string]int `json:"counts"`
	Issues  []IssueDetail  `json:"issues,omitempty"`
}

// IssueDetail is one drift issue in a detailed/json report.
type IssueDetail struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Path     string `json:"path,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Details  string `json:"details,omitempty"`
}

// VectorDBInfoInput is the get_vectordb_info tool's request payload (empty).
type VectorDBInfoInput struct{}

// VectorDBInfoOutput is the get_vectordb_info tool's response payload.
type VectorDBInfoOutput struct {
	TotalFiles   int    `json:"total_files"`
	TotalVectors int64  `json:"total_vectors"`
	Dimensions   int    `json:"dimensions"`
	ModelName    string `json:"model_name"`
	LastUpdated  string `json:"last_updated,omitempty"`
}
