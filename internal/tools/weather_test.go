package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherTool_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Karachi", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "owm-key", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(`{"name":"Karachi","main":{"temp":31.5}}`))
	}))
	defer srv.Close()

	tool := NewWeatherTool(srv.URL+"/data/2.5/", "owm-key")
	out, err := tool.Call(context.Background(), map[string]any{"city": "Karachi"})
	require.NoError(t, err)
	assert.Equal(t, "Karachi", out["name"])
	assert.InDelta(t, 31.5, out["main"].(map[string]any)["temp"], 0.001)
}

func TestWeatherTool_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	_, err := NewWeatherTool(srv.URL, "k").Call(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "city is required")

	_, err = NewWeatherTool(srv.URL, "k").Call(context.Background(), map[string]any{"city": "Atlantis"})
	assert.ErrorContains(t, err, "city not found")
}
