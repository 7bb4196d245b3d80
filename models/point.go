package models

// Payload keys written alongside the metadata tags.
const (
	PayloadText     = "text"
	PayloadFilePath = "filepath"
	PayloadChunkNum = "chunk_num"
)

// Point is the unit persisted to the vector store.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"-"`
	Payload map[string]any `json:"payload"`
}

// SearchResult is one ranked passage returned by a similarity search.
type SearchResult struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score"`
}
