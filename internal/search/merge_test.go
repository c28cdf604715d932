package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/localrag/ragengine/internal/model"
)

func TestMergePartitionsAndOrders(t *testing.T) {
	keyword := []*model.KeywordHit{
		{DocID: "a", ChunkID: 0, Score: 5.0},  // keyword_only
		{DocID: "b", ChunkID: 0, Score: 1.0},  // both
	}
	semantic := []*model.VectorHit{
		{DocID: "b", ChunkID: 0, Score: 0.9},  // both
		{DocID: "c", ChunkID: 0, Score: 0.2},  // semantic_only
		{DocID: "c", ChunkID: 1, Score: 0.8},  // semantic_only
	}

	merged := Merge(keyword, semantic, 10)
	assert.Len(t, merged, 4)

	// keyword_only (1) ++ semantic_only (2, ascending) ++ both (1)
	assert.Equal(t, "a", merged[0].DocID)
	assert.Equal(t, "keyword", merged[0].Source)

	assert.Equal(t, "c", merged[1].DocID)
	assert.Equal(t, 0, merged[1].ChunkID)
	assert.Equal(t, "semantic", merged[1].Source)

	assert.Equal(t, "c", merged[2].DocID)
	assert.Equal(t, 1, merged[2].ChunkID)

	assert.Equal(t, "b", merged[3].DocID)
	assert.Equal(t, "both", merged[3].Source)
}

func TestMergeTruncatesToTopK(t *testing.T) {
	var keyword []*model.KeywordHit
	for i := 0; i < 5; i++ {
		keyword = append(keyword, &model.KeywordHit{DocID: "x", ChunkID: i, Score: float64(i)})
	}
	merged := Merge(keyword, nil, 2)
	assert.Len(t, merged, 2)
}

func TestMergeEmptyInputs(t *testing.T) {
	merged := Merge(nil, nil, 10)
	assert.Empty(t, merged)
}
