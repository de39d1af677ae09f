package extract

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

// NewAssistedExtractor creates an assisted extraction client based on the
// provider name. "disabled" returns nil, meaning pattern-only extraction.
func NewAssistedExtractor(provider, apiKey string) (domain.AssistedExtractor, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI assisted extraction")
		}
		return NewOpenAIExtractor(apiKey), nil

	case ProviderMock:
		return NewMockExtractor(), nil

	case ProviderDisabled, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown assisted extraction provider: %s (valid options: openai, mock, disabled)", provider)
	}
}
