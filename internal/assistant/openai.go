package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"previewkit/internal/metrics"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
	rl      *rpsLimiter
}

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithRateLimit throttles requests to rps with the given burst.
func (c *OpenAIClient) WithRateLimit(rps float64, burst int) *OpenAIClient {
	c.rl = newRPSLimiter(rps, burst)
	return c
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

func (c *OpenAIClient) Close() error {
	c.rl.Stop()
	return nil
}

type chatCompletionReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type chatCompletionResp struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (resp ChatResponse, err error) {
	defer func() { metrics.RecordAssistantRequest("openai", err == nil) }()
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	body, err := json.Marshal(chatCompletionReq{Model: model, Messages: req.Messages, Temperature: 0.2})
	if err != nil {
		return ChatResponse{}, err
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = c.rl.Acquire(ctx); err != nil {
			return ChatResponse{}, err
		}
		resp, err = c.do(ctx, body)
		if err == nil || !retryable(err) || attempt == maxAttempts-1 {
			return resp, err
		}
		select {
		case <-ctx.Done():
			return ChatResponse{}, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return ChatResponse{}, err
}

func (c *OpenAIClient) do(ctx context.Context, body []byte) (ChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ChatResponse{}, ctx.Err()
		}
		return ChatResponse{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: read body: %v", ErrGateway, err)
	}
	var out chatCompletionResp
	_ = json.Unmarshal(raw, &out)
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		detail := httpResp.Status
		if out.Error != nil && out.Error.Message != "" {
			detail = out.Error.Message
		}
		return ChatResponse{}, classifyStatus(httpResp.StatusCode, detail)
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("%w: empty completion", ErrGateway)
	}
	msg := out.Choices[0].Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return ChatResponse{Message: msg, Model: out.Model}, nil
}
