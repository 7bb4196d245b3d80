package models

import "strings"

// Document is raw source content loaded from a file. It is discarded once chunked.
type Document struct {
	SourcePath string `json:"source_path"`
	RawText    string `json:"-"`
	Pages      int    `json:"pages"`
}

// Metadata holds the caller-supplied tags copied into every point payload.
type Metadata struct {
	Title        string            `json:"title,omitempty" bson:"title,omitempty"`
	Author       string            `json:"author,omitempty" bson:"author,omitempty"`
	Category     string            `json:"category,omitempty" bson:"category,omitempty"`
	Collection   string            `json:"collection" bson:"collection" binding:"required"`
	Authenticity string            `json:"authenticity,omitempty" bson:"authenticity,omitempty"`
	Source       string            `json:"source,omitempty" bson:"source,omitempty"` // Folder-name fallback tag
	Extra        map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// Payload flattens the metadata into vector-store payload fields. Empty
// values are omitted.
func (m Metadata) Payload() map[string]any {
	out := make(map[string]any, 6+len(m.Extra))
	for k, v := range m.Extra {
		if v != "" {
			out[k] = v
		}
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("title", m.Title)
	set("author", m.Author)
	set("category", m.Category)
	set("collection", m.Collection)
	set("authenticity", m.Authenticity)
	set("source", m.Source)
	return out
}

// Chunk is a contiguous slice of cleaned document text.
type Chunk struct {
	Text          string   `json:"text"`
	SequenceIndex int      `json:"sequence_index"`
	Metadata      Metadata `json:"metadata"`
}

// RuneLen is the chunk length in characters, ignoring surrounding whitespace.
func (c Chunk) RuneLen() int {
	return len([]rune(strings.TrimSpace(c.Text)))
}

// ChunkingConfig defines how text should be chunked
type ChunkingConfig struct {
	MaxChunkSize int `json:"max_chunk_size"`
	Overlap      int `json:"overlap"`
	MinChunkSize int `json:"min_chunk_size"`
}
