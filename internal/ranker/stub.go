package ranker

import (
	"context"
	"hash/fnv"
)

// StubModel is a deterministic in-process Model used by tests and local
// development. Each probability is derived from a hash of
// (user context, candidate text, action) alone, so predictions are
// independent of batch position and batch composition. That makes the stub
// satisfy the candidate-isolation contract exactly, which lets tests
// exercise the batch-invariance checks end to end.
type StubModel struct{}

// NewStubModel creates a new stub model.
func NewStubModel() *StubModel {
	return &StubModel{}
}

// Rank returns one deterministic prediction per candidate text.
func (m *StubModel) Rank(ctx context.Context, userContext string, texts []string) ([]Prediction, error) {
	preds := make([]Prediction, len(texts))
	for i, text := range texts {
		p := make(Prediction, len(ActionTypes()))
		for _, action := range ActionTypes() {
			p[action] = hashProb(userContext, text, action)
		}
		preds[i] = p
	}
	return preds, nil
}

// hashProb maps (context, text, action) to a stable value in [0, 1).
func hashProb(userContext, text, action string) float64 {
	h := fnv.New64a()
	h.Write([]byte(userContext))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(action))
	return float64(h.Sum64()%10000) / 10000.0
}
