// Package detector implements the batch LLM-scoring pipeline: it splits
// posts into fixed-size batches, scores each batch through a chat
// completion, and filters the merged scores by a fraud threshold.
package detector

import (
	"github.com/rotisserie/eris"

	"github.com/pixwatch/pixwatch/internal/model"
)

// Batch is a contiguous slice of posts processed as one model request.
// Its posts map to global indices [Offset, Offset+len(Posts)).
type Batch struct {
	Index  int
	Offset int
	Posts  []model.Post
}

// End returns the exclusive upper bound of the batch's global index range.
func (b Batch) End() int {
	return b.Offset + len(b.Posts)
}

// SplitBatches partitions posts into contiguous batches of at most size
// items, preserving order. The last batch holds the remainder.
func SplitBatches(posts []model.Post, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, eris.Errorf("detector: batch size must be positive, got %d", size)
	}

	batches := make([]Batch, 0, (len(posts)+size-1)/size)
	for offset := 0; offset < len(posts); offset += size {
		end := offset + size
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, Batch{
			Index:  len(batches),
			Offset: offset,
			Posts:  posts[offset:end],
		})
	}
	return batches, nil
}
