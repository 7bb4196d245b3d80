package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEYS", "")
	for i := 1; i <= maxNumberedKeys; i++ {
		t.Setenv(fmt.Sprintf("GEMINI_API_KEY_%d", i), "")
	}
	t.Setenv("VECTOR_DIM", "768")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GEMINI_API_KEY", "key-a")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"key-a"}, cfg.GeminiAPIKeys)
	assert.Equal(t, 768, cfg.VectorDimensions)
	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchDelay)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, []string{"Hadith", "Tafseer"}, cfg.SearchCollections)
	assert.Equal(t, "qdrant", cfg.VectorStore)
	assert.Equal(t, "lillith", cfg.DBName)
}

func TestLoadConfig_KeyPoolOrder(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GEMINI_API_KEYS", "csv-1, csv-2")
	t.Setenv("GEMINI_API_KEY_1", "num-1")
	t.Setenv("GEMINI_API_KEY_3", "num-3")
	t.Setenv("GEMINI_API_KEY_10", "num-10")
	t.Setenv("GEMINI_API_KEY", "csv-1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"csv-1", "csv-2", "num-1", "num-3", "num-10"}, cfg.GeminiAPIKeys)
}

func TestLoadConfig_RequiresKeys(t *testing.T) {
	setBaseEnv(t)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadConfig_RequiresDimensionality(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GEMINI_API_KEY", "key-a")
	t.Setenv("VECTOR_DIM", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VECTOR_DIM")
}

func TestValidate_Chunking(t *testing.T) {
	cfg := &Config{
		GeminiAPIKeys:     []string{"k"},
		VectorDimensions:  768,
		MaxChunkSize:      100,
		ChunkOverlap:      100,
		BatchSize:         10,
		VectorStore:       "memory",
		SearchCollections: []string{"Hadith"},
	}
	assert.Error(t, cfg.Validate())

	cfg.ChunkOverlap = 20
	assert.NoError(t, cfg.Validate())

	cfg.VectorStore = "pinecone"
	assert.Error(t, cfg.Validate())
}
