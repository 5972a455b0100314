package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/santiagomed/chef/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tellmEntry struct {
	batch, prompt, response string
}

type tellmServer struct {
	mu      sync.Mutex
	entries []tellmEntry
	status  int
}

func newTellmServer(t *testing.T, status int) (*tellmServer, string) {
	t.Helper()
	ts := &tellmServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/log", r.URL.Path)
		require.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.entries = append(ts.entries, tellmEntry{
			batch:    r.PostForm.Get("batch"),
			prompt:   r.PostForm.Get("prompt"),
			response: r.PostForm.Get("response"),
		})
		ts.mu.Unlock()
		w.WriteHeader(ts.status)
	}))
	t.Cleanup(srv.Close)
	return ts, srv.URL
}

func (ts *tellmServer) logged() []tellmEntry {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]tellmEntry(nil), ts.entries...)
}

func chatServer(t *testing.T, content string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "` + content + `"}}], "usage": {"prompt_tokens": 1, "completion_tokens": 1}}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestOpenAIClient_LogsToTellm(t *testing.T) {
	tellm, tellmURL := newTellmServer(t, http.StatusCreated)
	batch := EnsureBatchID("")

	client, err := NewOpenAIClient(&LlmConfig{
		APIKey:    "k",
		BaseURL:   chatServer(t, "a recipe"),
		ModelName: "m",
		BatchID:   batch,
		TellmURL:  tellmURL,
	}, logger.NewNullLogger())
	require.NoError(t, err)

	res, err := client.GetCompletion(context.Background(), "make soup", "json_object")
	require.NoError(t, err)
	assert.Equal(t, "a recipe", res)

	assert.Equal(t, []tellmEntry{{batch: batch, prompt: "make soup", response: "a recipe"}}, tellm.logged())
}

func TestAnthropicClient_LogsToTellm(t *testing.T) {
	tellm, tellmURL := newTellmServer(t, http.StatusCreated)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [{"type": "text", "text": "a stew"}]}`))
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(&LlmConfig{
		APIKey:    "k",
		BaseURL:   srv.URL,
		ModelName: "m",
		BatchID:   "0123456789abcdef01234567",
		TellmURL:  tellmURL,
	}, logger.NewNullLogger())
	require.NoError(t, err)

	_, err = client.GetCompletion(context.Background(), "make stew", "")
	require.NoError(t, err)

	assert.Equal(t, []tellmEntry{{batch: "0123456789abcdef01234567", prompt: "make stew", response: "a stew"}}, tellm.logged())
}

func TestOpenAIClient_TellmFailureIsNotFatal(t *testing.T) {
	tellm, tellmURL := newTellmServer(t, http.StatusInternalServerError)

	client, err := NewOpenAIClient(&LlmConfig{
		APIKey:   "k",
		BaseURL:  chatServer(t, "still fine"),
		TellmURL: tellmURL,
	}, logger.NewNullLogger())
	require.NoError(t, err)

	res, err := client.GetCompletion(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Equal(t, "still fine", res)
	assert.Len(t, tellm.logged(), 1)
}
