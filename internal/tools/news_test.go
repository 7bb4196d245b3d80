package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsTool_Everything(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("apiKey")
		gotCountry = r.URL.Query().Get("country")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"title":"Tech"}]}`))
	}))
	defer srv.Close()

	tool := NewNewsTool(srv.URL+"/v2", "news-key")
	out, err := tool.Call(context.Background(), map[string]any{"query": "tech"})
	require.NoError(t, err)

	assert.Equal(t, "/v2/everything", gotPath)
	assert.Equal(t, "tech", gotQuery)
	assert.Equal(t, "news-key", gotKey)
	assert.Empty(t, gotCountry)
	assert.Equal(t, "ok", out["status"])
}

func TestNewsTool_TopHeadlinesDefaultsCountry(t *testing.T) {
	var gotPath, gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCountry = r.URL.Query().Get("country")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer srv.Close()

	tool := NewNewsTool(srv.URL+"/v2/", "k")
	_, err := tool.Call(context.Background(), map[string]any{"endpoint": "top-headlines"})
	require.NoError(t, err)
	assert.Equal(t, "/v2/top-headlines", gotPath)
	assert.Equal(t, "us", gotCountry)
}

func TestNewsTool_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer srv.Close()

	_, err := NewNewsTool(srv.URL, "").Call(context.Background(), map[string]any{"query": "x"})
	assert.ErrorContains(t, err, "not configured")

	_, err = NewNewsTool(srv.URL, "k").Call(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "query is required")

	_, err = NewNewsTool(srv.URL, "k").Call(context.Background(), map[string]any{"endpoint": "sources"})
	assert.ErrorContains(t, err, "unknown news endpoint")

	_, err = NewNewsTool(srv.URL, "bad").Call(context.Background(), map[string]any{"query": "x"})
	assert.ErrorContains(t, err, "Your API key is invalid")
}
