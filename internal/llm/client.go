// Package llm provides reply generation for chat sessions: a canned
// knowledge-base responder and completion-backed responders.
package llm

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// NewResponder returns a completion responder for the first provider that
// has a key, trying preferred first. modelName only applies to preferred;
// a fallback provider runs its own default model. Without a usable key it
// falls back to the knowledge-base responder.
func NewResponder(preferred Provider, keys map[Provider]string, modelName string, log *logger.Logger) Responder {
	if log == nil {
		log = logger.Nop()
	}

	for _, provider := range []Provider{preferred, ProviderAnthropic, ProviderOpenAI} {
		key := keys[provider]
		if key == "" {
			continue
		}
		client, err := NewClient(provider, key)
		if err != nil {
			log.Warn("failed to create LLM client",
				zap.String("provider", string(provider)),
				zap.Error(err),
			)
			continue
		}

		name := ""
		if provider == preferred {
			name = modelName
		} else if modelName != "" {
			log.Warn("configured model belongs to another provider, using the default",
				zap.String("provider", string(provider)),
				zap.String("model", modelName),
			)
		}
		if name != "" && !slices.Contains(client.Models(), name) {
			log.Warn("model is not in the provider's known list",
				zap.String("provider", string(provider)),
				zap.String("model", name),
				zap.Strings("known", client.Models()),
			)
		}
		return NewCompletionResponder(client, name)
	}

	return NewKnowledgeBaseResponder()
}
