package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token", "test-model")
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": content},
			},
		},
	}
}

func TestCompleteStructuredSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["model"] != "test-model" {
			t.Errorf("model = %v", payload["model"])
		}
		if payload["temperature"] != float64(0) {
			t.Errorf("temperature = %v, want 0", payload["temperature"])
		}
		format := payload["response_format"].(map[string]any)
		if format["type"] != "json_schema" {
			t.Errorf("response_format type = %v", format["type"])
		}

		_ = json.NewEncoder(w).Encode(chatReply(`{"keywords":["tokyo"]}`))
	})

	raw, err := client.CompleteStructured(context.Background(), StructuredRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		SchemaName:   "test_schema",
		SchemaJSON:   json.RawMessage(`{"type":"object"}`),
	})
	if err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}

	var decoded struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if len(decoded.Keywords) != 1 || decoded.Keywords[0] != "tokyo" {
		t.Fatalf("keywords = %v", decoded.Keywords)
	}
}

func TestCompleteStructuredErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	})

	_, err := client.CompleteStructured(context.Background(), StructuredRequest{})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestCompleteStructuredMissingChoices(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.CompleteStructured(context.Background(), StructuredRequest{})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestCompleteStructuredNonJSONContent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatReply("this is not JSON"))
	})

	_, err := client.CompleteStructured(context.Background(), StructuredRequest{})
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "", want: DefaultEndpoint},
		{raw: "https://api.openai.com/v1/", want: "https://api.openai.com/v1"},
		{raw: "llm.internal:8000/v1", want: "https://llm.internal:8000/v1"},
		{raw: "://broken", want: DefaultEndpoint},
	}

	for _, tc := range cases {
		if got := normalizeEndpoint(tc.raw); got != tc.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
