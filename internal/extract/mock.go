package extract

import (
	"context"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
)

// MockExtractor is a configurable assisted extractor for testing. Set the
// response fields to control what ExtractFacts returns.
type MockExtractor struct {
	Response []domain.FactCandidate
	Err      error

	// Call tracking for assertions
	Calls []string
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) ExtractFacts(ctx context.Context, utterance string, targetFields []string) ([]domain.FactCandidate, error) {
	m.Calls = append(m.Calls, utterance)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Response, nil
}
