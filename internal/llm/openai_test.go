package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/secondbrain/internal/models"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, reply string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  captured.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]string{
						"role":    "assistant",
						"content": reply,
					},
				},
			},
		})
	}))
}

func TestOpenAICompleteJSON(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIServer(t, `{"title":"ok"}`, &captured)
	defer srv.Close()

	client := NewOpenAIClient(Config{APIKey: "test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})

	out, err := client.CompleteJSON(context.Background(), "analyze this")
	require.NoError(t, err)

	assert.Equal(t, `{"title":"ok"}`, out)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "analyze this", captured.Messages[0].Content)
}

func TestOpenAIConverseReplaysHistory(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIServer(t, "It is about Go.", &captured)
	defer srv.Close()

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})

	history := []models.ChatMessage{
		{Role: models.RoleUser, Text: "grounding"},
		{Role: models.RoleAssistant, Text: "ack"},
	}
	out, err := client.Converse(context.Background(), history, "what is it about?")
	require.NoError(t, err)

	assert.Equal(t, "It is about Go.", out)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	assert.Equal(t, "what is it about?", captured.Messages[2].Content)
}

func TestOpenAIEmptyReplyIsError(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIServer(t, "   ", &captured)
	defer srv.Close()

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := client.CompleteJSON(context.Background(), "x")
	assert.Error(t, err)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})

	_, err := client.CompleteJSON(context.Background(), "x")
	assert.Error(t, err)
}
