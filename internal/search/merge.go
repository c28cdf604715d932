package search

import (
	"sort"

	"github.com/localrag/ragengine/internal/model"
)

// Result is one ranked hit returned by the search service, regardless of
// which mode produced it.
type Result struct {
	DocID         string
	ChunkID       int
	Score         float64
	KeywordScore  float64
	SemanticScore float64
	MatchedTerms  []string
	Source        string // "keyword" | "semantic" | "both"
}

func key(docID string, chunkID int) string {
	return model.VectorKey(docID, chunkID)
}

// Merge combines keyword and semantic hits using the positional-bias-aware
// algorithm: partition the union into keyword_only, semantic_only, and
// both (present in both result sets) groups keyed by (doc_id, chunk_id).
// Each group is sorted ascending by score (lowest first); the final order
// is keyword_only ++ semantic_only ++ both, so the results an LLM reranker
// would weight most heavily — the cross-signal-confirmed ones — land last,
// where position bias favors them.
func Merge(keywordHits []*model.KeywordHit, semanticHits []*model.VectorHit, topK int) []*Result {
	keywordByKey := make(map[string]*model.KeywordHit, len(keywordHits))
	for _, h := range keywordHits {
		keywordByKey[key(h.DocID, h.ChunkID)] = h
	}
	semanticByKey := make(map[string]*model.VectorHit, len(semanticHits))
	for _, h := range semanticHits {
		semanticByKey[key(h.DocID, h.ChunkID)] = h
	}

	var keywordOnly, semanticOnly, both []*Result

	for k, h := range keywordByKey {
		if sh, ok := semanticByKey[k]; ok {
			both = append(both, &Result{
				DocID: h.DocID, ChunkID: h.ChunkID,
				KeywordScore: h.Score, SemanticScore: sh.Score,
				Score: h.Score + sh.Score, MatchedTerms: h.MatchedTerms,
				Source: "both",
			})
			continue
		}
		keywordOnly = append(keywordOnly, &Result{
			DocID: h.DocID, ChunkID: h.ChunkID,
			KeywordScore: h.Score, Score: h.Score, MatchedTerms: h.MatchedTerms,
			Source: "keyword",
		})
	}

	for k, h := range semanticByKey {
		if _, ok := keywordByKey[k]; ok {
			continue // already placed in both
		}
		semanticOnly = append(semanticOnly, &Result{
			DocID: h.DocID, ChunkID: h.ChunkID,
			SemanticScore: h.Score, Score: h.Score,
			Source: "semantic",
		})
	}

	sortAscending := func(rs []*Result) {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Score < rs[j].Score })
	}
	sortAscending(keywordOnly)
	sortAscending(semanticOnly)
	sortAscending(both)

	merged := make([]*Result, 0, len(keywordOnly)+len(semanticOnly)+len(both))
	merged = append(merged, keywordOnly...)
	merged = append(merged, semanticOnly...)
	merged = append(merged, both...)

	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
