package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Да \n"}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{
		Model:     "gpt-4o-mini",
		System:    "sys",
		Prompt:    "is it?",
		Image:     &Image{Data: []byte{0xff, 0xd8}},
		MaxTokens: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Да", out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 5, got["max_tokens"])
	assert.NotContains(t, got, "temperature")
	msgs, _ := got["messages"].([]any)
	require.Len(t, msgs, 2)
	user, _ := msgs[1].(map[string]any)
	parts, _ := user["content"].([]any)
	require.Len(t, parts, 2)
	img, _ := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Contains(t, img["image_url"].(map[string]any)["url"], "data:image/jpeg;base64,")
}

func TestOpenAIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	assert.ErrorContains(t, err, "429")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(empty.Close)
	c, err = NewOpenAI(Config{APIKey: "k", BaseURL: empty.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = New(context.Background(), Config{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = New(context.Background(), Config{Provider: "claude", APIKey: "x"})
	assert.Error(t, err)
}
