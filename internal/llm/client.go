package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/concilium-ai/concilium/internal/metrics"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTimeout        = 60 * time.Second
	defaultEmbedTimeout   = 30 * time.Second
)

// ClientConfig configures the HTTP client for an OpenAI-compatible API.
type ClientConfig struct {
	BaseURL          string        `json:"base_url"`
	APIKey           string        `json:"api_key,omitempty"`
	EmbeddingModel   string        `json:"embedding_model"`
	Timeout          time.Duration `json:"timeout"`
	EmbeddingTimeout time.Duration `json:"embedding_timeout"`
}

// DefaultClientConfig returns sensible client defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:          defaultBaseURL,
		EmbeddingModel:   defaultEmbeddingModel,
		Timeout:          defaultTimeout,
		EmbeddingTimeout: defaultEmbedTimeout,
	}
}

// Client calls an OpenAI-compatible chat-completions and embeddings API.
// It implements both Provider and Embedder. Each call is a single attempt
// with a bounded wait; there is no automatic retry.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	embedClient *http.Client
	logger      *logrus.Logger
}

// NewClient creates a new client. A zero-value field in config falls back
// to its default.
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = defaultEmbeddingModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.EmbeddingTimeout <= 0 {
		config.EmbeddingTimeout = defaultEmbedTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		embedClient: &http.Client{Timeout: config.EmbeddingTimeout},
		logger:      logger,
	}
}

// EmbeddingModel returns the bound embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.config.EmbeddingModel
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete implements Provider.
func (c *Client) Complete(ctx context.Context, req *GenerationRequest) (string, error) {
	resp, err := c.postChat(ctx, req, false)
	if err != nil {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", &ProviderError{Model: req.Model, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", &ProviderError{Model: req.Model, Status: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", &ProviderError{Model: req.Model, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", &ProviderError{Model: req.Model, Body: "response contained no text content"}
	}

	metrics.GenerationCalls.WithLabelValues(req.Model, "ok").Inc()
	return parsed.Choices[0].Message.Content, nil
}

// CompleteStream implements Provider. Malformed stream frames are skipped
// silently; the accumulated text is returned on normal completion.
func (c *Client) CompleteStream(ctx context.Context, req *GenerationRequest, onChunk func(string)) (string, error) {
	resp, err := c.postChat(ctx, req, true)
	if err != nil {
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
		return "", &ProviderError{Model: req.Model, Status: resp.StatusCode, Body: string(body)}
	}

	var full strings.Builder
	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			metrics.GenerationCalls.WithLabelValues(req.Model, "error").Inc()
			return "", &ProviderError{Model: req.Model, Err: fmt.Errorf("stream read failed: %w", err)}
		}

		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		line = bytes.TrimPrefix(line, []byte("data: "))

		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		var frame chatStreamFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			continue // skip malformed frames
		}

		if len(frame.Choices) == 0 {
			continue
		}
		delta := frame.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}

	metrics.GenerationCalls.WithLabelValues(req.Model, "ok").Inc()
	return full.String(), nil
}

func (c *Client) postChat(ctx context.Context, req *GenerationRequest, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Model: req.Model, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Model: req.Model, Err: err}
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Model: req.Model, Err: err}
	}
	return resp, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	model := c.config.EmbeddingModel

	body, err := json.Marshal(embeddingRequest{Model: model, Input: text})
	if err != nil {
		return nil, &EmbeddingError{Model: model, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &EmbeddingError{Model: model, Err: err}
	}
	c.setHeaders(httpReq)

	resp, err := c.embedClient.Do(httpReq)
	if err != nil {
		metrics.EmbeddingCalls.WithLabelValues("error").Inc()
		return nil, &EmbeddingError{Model: model, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.EmbeddingCalls.WithLabelValues("error").Inc()
		return nil, &EmbeddingError{Model: model, Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.EmbeddingCalls.WithLabelValues("error").Inc()
		return nil, &EmbeddingError{Model: model, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		metrics.EmbeddingCalls.WithLabelValues("error").Inc()
		return nil, &EmbeddingError{Model: model, Body: "response contained no embedding"}
	}

	metrics.EmbeddingCalls.WithLabelValues("ok").Inc()
	return parsed.Data[0].Embedding, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}
