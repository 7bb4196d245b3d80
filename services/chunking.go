package services

import (
	"fmt"
	"iter"

	"lillith/internal/apperrors"
	"lillith/models"
)

// Defaults mirror the splitter settings the corpus was first indexed with.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultMinChunkLength = 6
)

// ChunkingService splits cleaned document text into overlapping chunks.
type ChunkingService struct {
	chunkSize    int
	overlap      int
	minChunkSize int
}

// NewChunkingService validates the window settings. overlap must be positive
// and smaller than chunkSize or the window could never advance.
func NewChunkingService(cfg models.ChunkingConfig) (*ChunkingService, error) {
	if cfg.MaxChunkSize <= 0 || cfg.Overlap <= 0 || cfg.Overlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", apperrors.ErrInvalidChunking, cfg.MaxChunkSize, cfg.Overlap)
	}
	minLen := cfg.MinChunkSize
	if minLen <= 0 {
		minLen = DefaultMinChunkLength
	}
	return &ChunkingService{
		chunkSize:    cfg.MaxChunkSize,
		overlap:      cfg.Overlap,
		minChunkSize: minLen,
	}, nil
}

// SplitText returns a lazy, restartable sequence of fixed-size rune windows.
// Consecutive chunks share exactly overlap runes; the final chunk may be
// shorter. Every call of the returned sequence starts from the beginning.
func SplitText(text string, chunkSize, overlap int) (iter.Seq[models.Chunk], error) {
	if chunkSize <= 0 || overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", apperrors.ErrInvalidChunking, chunkSize, overlap)
	}

	runes := []rune(text)
	step := chunkSize - overlap

	return func(yield func(models.Chunk) bool) {
		for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
			end := start + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			if !yield(models.Chunk{Text: string(runes[start:end]), SequenceIndex: index}) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}

// FilterShort drops chunks whose trimmed length is below minLen. Order and
// SequenceIndex of the surviving chunks are untouched.
func FilterShort(seq iter.Seq[models.Chunk], minLen int) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		for c := range seq {
			if c.RuneLen() < minLen {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// ChunkDocument cleans the document text, splits it and discards near-empty
// chunks. Each chunk carries a copy of meta.
func (cs *ChunkingService) ChunkDocument(doc *models.Document, meta models.Metadata) iter.Seq[models.Chunk] {
	// Parameters were validated in NewChunkingService.
	seq, _ := SplitText(CleanText(doc.RawText), cs.chunkSize, cs.overlap)

	return func(yield func(models.Chunk) bool) {
		for c := range FilterShort(seq, cs.minChunkSize) {
			c.Metadata = meta
			if !yield(c) {
				return
			}
		}
	}
}

// Batches partitions a chunk sequence into slices of at most size chunks.
func Batches(seq iter.Seq[models.Chunk], size int) iter.Seq2[int, []models.Chunk] {
	return func(yield func(int, []models.Chunk) bool) {
		batch := make([]models.Chunk, 0, size)
		index := 0
		for c := range seq {
			batch = append(batch, c)
			if len(batch) == size {
				if !yield(index, batch) {
					return
				}
				index++
				batch = make([]models.Chunk, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(index, batch)
		}
	}
}
