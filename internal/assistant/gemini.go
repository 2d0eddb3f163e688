package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"previewkit/internal/metrics"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
	rl    *rpsLimiter
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) WithRateLimit(rps float64, burst int) *GeminiClient {
	g.rl = newRPSLimiter(rps, burst)
	return g
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }

func (g *GeminiClient) Close() error {
	g.rl.Stop()
	return nil
}

func (g *GeminiClient) Chat(ctx context.Context, req ChatRequest) (resp ChatResponse, err error) {
	defer func() { metrics.RecordAssistantRequest("gemini", err == nil) }()
	model := g.model
	if req.Model != "" {
		model = req.Model
	}
	system, contents := geminiContents(req.Messages)
	cfg := &genai.GenerateContentConfig{}
	if system != nil {
		cfg.SystemInstruction = system
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = g.rl.Acquire(ctx); err != nil {
			return ChatResponse{}, err
		}
		var out *genai.GenerateContentResponse
		out, err = g.cli.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			if text := out.Text(); text != "" {
				return ChatResponse{Message: Message{Role: RoleAssistant, Content: text}, Model: model}, nil
			}
			err = fmt.Errorf("%w: empty completion", ErrGateway)
		} else {
			err = classifyGemini(err)
		}
		if !retryable(err) || attempt == maxAttempts-1 {
			return ChatResponse{}, err
		}
		select {
		case <-ctx.Done():
			return ChatResponse{}, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return ChatResponse{}, err
}

// geminiContents splits system messages into the system instruction and maps
// the rest onto user/model turns.
func geminiContents(msgs []Message) (*genai.Content, []*genai.Content) {
	var system []*genai.Part
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: system}, contents
}

func classifyGemini(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}
