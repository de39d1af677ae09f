package embedding

import (
	"fmt"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI   = "openai"
	ProviderMock     = "mock"
	ProviderDisabled = "disabled"
)

// NewClient creates an embedding client based on the provider name.
// "disabled" returns nil; recall then falls back to lexical scoring.
func NewClient(provider, apiKey string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	case ProviderDisabled, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock, disabled)", provider)
	}
}
