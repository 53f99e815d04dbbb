// Package gateway talks to a local Ollama backend in raw mode and recovers
// structured tool calls from its free-text output.
//
// The wire convention is Mistral's: tools are advertised in an
// [AVAILABLE_TOOLS] section, the instruction rides inside [INST]...[/INST],
// and the model replies with an optional [TOOL_CALLS] block holding a JSON
// array of {name, arguments} objects. The gateway does not retry; transport
// and status failures surface as a single error and backoff policy belongs
// to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configures the Ollama client.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// Client is an Ollama raw-mode client.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	topP        float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// New creates a client. The logger must not be nil.
func New(opts Options, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		topP:        opts.TopP,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// generateRequest is the /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Raw     bool            `json:"raw"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// generateResponse is the /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
}

// tagsResponse is the /api/tags response body.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckConnection verifies the backend is reachable and logs a warning if
// the configured model is not installed. Unreachable backend is an error;
// a missing model is not.
func (c *Client) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to build tags request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to Ollama at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama responded with status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode tags response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	available := false
	for _, m := range tags.Models {
		names = append(names, m.Name)
		if m.Name == c.model {
			available = true
		}
	}

	c.logger.Info("Ollama connection successful", zap.String("base_url", c.baseURL))
	if available {
		c.logger.Info("model is available", zap.String("model", c.model))
	} else {
		c.logger.Warn("model not found on backend",
			zap.String("model", c.model),
			zap.Strings("available", names),
			zap.String("hint", "ollama pull "+c.model))
	}
	return nil
}

// Generate sends the conversation and tool schema to the backend and
// returns the parsed response. Pass an empty tools slice to disable tool
// calling (used by the summary request).
func (c *Client) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	prompt, err := buildRawPrompt(messages, tools)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Raw:    true,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			TopP:        c.topP,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	c.logger.Debug("sending generate request",
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
		zap.Int("prompt_bytes", len(prompt)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to Ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Ollama API error: %d - %s", resp.StatusCode, string(raw))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}

	c.logger.Debug("received response", zap.Int("bytes", len(gen.Response)))

	calls := c.parseToolCalls(gen.Response)
	return &Response{
		Content:   visibleContent(gen.Response),
		ToolCalls: calls,
	}, nil
}

// buildRawPrompt assembles the Mistral raw-mode prompt: the serialized tool
// schema when present, then the most recent user message wrapped in the
// instruction delimiters.
func buildRawPrompt(messages []Message, tools []ToolDefinition) (string, error) {
	latest := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			latest = messages[i].Content
			break
		}
	}

	if len(tools) == 0 {
		return fmt.Sprintf("[INST] %s [/INST]", latest), nil
	}

	schema, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool schema: %w", err)
	}

	return fmt.Sprintf(
		"[AVAILABLE_TOOLS] %s[/AVAILABLE_TOOLS][INST] %s. Use the %s function to execute the necessary commands. [/INST]",
		schema, latest, tools[0].Function.Name,
	), nil
}
