package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_OPENAI_KEY", Model: "embed-small"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("MISSING_KEY_FOR_TEST", "")
	_, err := NewClient(Config{APIKeyEnv: "MISSING_KEY_FOR_TEST"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING_KEY_FOR_TEST")
}

func TestClientEmbed(t *testing.T) {
	t.Run("Batched request ordered by index", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			var req embeddingsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "embed-small", req.Model)
			assert.Equal(t, []string{"a", "b", "c"}, req.Input)
			_, _ = w.Write([]byte(`{"data":[
				{"index":2,"embedding":[0,0,1]},
				{"index":0,"embedding":[1,0,0]},
				{"index":1,"embedding":[0,1,0]}]}`))
		})

		vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, vecs)
		assert.Equal(t, "openai", c.Name())
	})

	t.Run("HTTP error status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
		})
		_, err := c.Embed(context.Background(), []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("Count mismatch", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
		})
		_, err := c.Embed(context.Background(), []string{"a", "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 embeddings for 2 inputs")
	})

	t.Run("Malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		_, err := c.Embed(context.Background(), []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode response")
	})

	t.Run("Duplicate indexes", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[2]}]}`))
		})
		_, err := c.Embed(context.Background(), []string{"a", "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing index 1")
	})
}

func TestClientEmbedAzureStyle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/embed/embeddings", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.5]}]}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("TEST_AZURE_KEY", "azure-key")

	c, err := NewClient(Config{BaseURL: srv.URL + "/openai/deployments/embed", APIKeyEnv: "TEST_AZURE_KEY", APIVersion: "2024-06-01"})
	require.NoError(t, err)
	vecs, err := c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.5}}, vecs)
}
