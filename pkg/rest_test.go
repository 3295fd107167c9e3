package kdown

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-agent", 2*time.Second), server.URL
}

func TestGetJSONDecodesObject(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "Client-ID abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"link":"https://cdn.example.com/x.png"}}`))
	})

	res, err := client.GetJSON(url, map[string]string{"Authorization": "Client-ID abc"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", res.ContentType)
	assert.Equal(t, true, res.JSON["success"])
	assert.NotEmpty(t, res.Body)

	data, ok := res.JSON["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/x.png", data["link"])
}

func TestGetJSONRejectsNonJSONBody(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.GetJSON(url, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed API response")
}

func TestGetJSONAllowsEmptyBody(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := client.GetJSON(url, nil)
	require.NoError(t, err)
	assert.Nil(t, res.JSON)
	assert.Empty(t, res.Body)
}

func TestGetJSONAcceptsCharsetSuffix(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	res, err := client.GetJSON(url, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res.JSON["ok"])
}

func TestFetchSetsDefaultUserAgent(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	})

	res, err := client.Fetch(url, nil)
	require.NoError(t, err)
	defer closeQuietly(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
