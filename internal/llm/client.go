// Package llm calls an OpenAI-compatible chat-completions endpoint with a
// structured-output contract. Responses that are not valid JSON matching the
// requested schema fail loudly; nothing here silently defaults.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// DefaultEndpoint is the OpenAI API base.
	DefaultEndpoint = "https://api.openai.com/v1"

	connectTimeout = 15 * time.Second
	totalTimeout   = 40 * time.Second
)

// The error taxonomy distinguishes transport failures from undecodable and
// shape-violating responses to aid diagnosis. All of them propagate to the
// request boundary; no retry happens here.
var (
	ErrRequestFailed = errors.New("completion request failed")
	ErrUndecodable   = errors.New("completion response undecodable")
	ErrMissingField  = errors.New("completion response missing expected field")
)

// Completer produces one JSON object matching a schema. Implemented by
// *Client; tests substitute fakes.
type Completer interface {
	CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

// StructuredRequest describes one structured-output completion.
type StructuredRequest struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	// SchemaJSON is sent to the endpoint as the response_format schema.
	SchemaJSON json.RawMessage
	// Schema revalidates the returned content locally before it is trusted.
	Schema *jsonschema.Schema
}

// Client is an OpenAI-compatible chat-completions client.
type Client struct {
	endpointURL string
	token       string
	model       string
	client      *http.Client
}

func NewClient(endpoint, token, model string) *Client {
	return &Client{
		endpointURL: chatCompletionsURL(normalizeEndpoint(endpoint)),
		token:       token,
		model:       strings.TrimSpace(model),
		client: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
	}
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	if c == nil {
		return ""
	}
	return c.model
}

// CompleteStructured sends one chat completion with a JSON-schema response
// format and returns the validated content object.
func (c *Client) CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("llm client is nil")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   req.SchemaName,
				Schema: req.SchemaJSON,
			},
		},
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload chatErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: choices", ErrMissingField)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content", ErrMissingField)
	}

	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return nil, fmt.Errorf("%w: content is not JSON: %v", ErrUndecodable, err)
	}
	if req.Schema != nil {
		if err := req.Schema.Validate(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
		}
	}

	return json.RawMessage(content), nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Messages       []chatMessage   `json:"messages"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint
	}
	return strings.TrimRight(endpoint, "/")
}

func chatCompletionsURL(endpoint string) string {
	return endpoint + "/chat/completions"
}
