package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"qwen:7b","size":4100000000,"modified_at":"2024-01-15T10:00:00Z"},{"name":"llama3:8b"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	models, err := c.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "qwen:7b", models[0].Name)
	assert.Equal(t, int64(4100000000), models[0].Size)
}

func TestTagsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, time.Second)
	_, err := c.Tags(context.Background())

	var unavailable *domain.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, server.URL, unavailable.BaseURL)
}

func TestTagsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Tags(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	var unavailable *domain.ServiceUnavailableError
	assert.False(t, errors.As(err, &unavailable))
}

func TestGenerate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"合同文本","done":true}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	out, err := c.Generate(context.Background(), "qwen:7b", "写一份合同", extractionOptions)
	require.NoError(t, err)
	assert.Equal(t, "合同文本", out)

	// Wire shape: non-streaming, sampling options forwarded.
	assert.Equal(t, "qwen:7b", got.Model)
	assert.Equal(t, "写一份合同", got.Prompt)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	assert.InDelta(t, 0.2, got.Options.Temperature, 0.001)
	assert.InDelta(t, 0.9, got.Options.TopP, 0.001)
}

func TestGenerateBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Generate(context.Background(), "qwen:7b", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestGenerateServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Generate(context.Background(), "qwen:7b", "hi", nil)

	var unavailable *domain.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 200))
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncate(string(long), 200), 203)
}
