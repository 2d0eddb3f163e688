// Package assistant talks to a hosted chat model that helps with the project
// being previewed, e.g. explaining build diagnostics.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"previewkit/internal/compiler"
	"previewkit/internal/diag"
)

var (
	ErrRateLimited    = errors.New("assistant: rate limited")
	ErrQuotaExhausted = errors.New("assistant: quota exhausted")
	ErrGateway        = errors.New("assistant: upstream failure")
)

const maxAttempts = 3

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

type ChatResponse struct {
	Message Message `json:"message"`
	Model   string  `json:"model"`
}

type Client interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Close() error
}

// New returns the client for provider ("openai" or "gemini").
func New(ctx context.Context, provider, apiKey, baseURL, model string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return NewOpenAIClient(apiKey, baseURL, model), nil
	case "gemini":
		return NewGeminiClient(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", provider)
	}
}

// classifyStatus maps an upstream HTTP status onto the error taxonomy.
func classifyStatus(code int, detail string) error {
	switch code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrQuotaExhausted, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrGateway, code, detail)
	}
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrGateway) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

const diagnosticsPrompt = `You help a developer fix a web project that failed to build in a live preview.
Explain each problem briefly and suggest the smallest change that fixes it.`

// DiagnosticsRequest builds a chat request asking the model about the
// diagnostics of res, followed by the user's own question if any.
func DiagnosticsRequest(res *compiler.Result, question string) ChatRequest {
	var b strings.Builder
	if res == nil || len(res.Diagnostics) == 0 {
		b.WriteString("The build reported no diagnostics.\n")
	} else {
		b.WriteString("Build diagnostics:\n")
		for _, d := range res.Diagnostics {
			b.WriteString("- ")
			b.WriteString(diag.Format(d))
			b.WriteString("\n")
		}
	}
	if res != nil && res.Entry != "" {
		b.WriteString("Entry point: " + res.Entry + "\n")
	}
	if q := strings.TrimSpace(question); q != "" {
		b.WriteString("\n" + q + "\n")
	}
	return ChatRequest{Messages: []Message{
		{Role: RoleSystem, Content: diagnosticsPrompt},
		{Role: RoleUser, Content: b.String()},
	}}
}
