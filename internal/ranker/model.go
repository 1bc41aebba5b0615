// Package ranker defines the contract with the externally-served ranking
// model: text encoding, candidate-space projection, and batched per-action
// probability prediction. The model itself is trained and served outside
// this service; this package only speaks to it.
package ranker

import "context"

// Action types the model predicts probabilities for. The set is fixed at
// the serving boundary; scoring treats actions missing from a prediction as
// probability zero.
const (
	ActionLike          = "like"
	ActionReply         = "reply"
	ActionRepost        = "repost"
	ActionNotInterested = "not_interested"
	ActionBlockAuthor   = "block_author"
	ActionMuteAuthor    = "mute_author"
	ActionView          = "view"
)

// ActionTypes returns the ordered action set the model predicts for.
// ActionView is an engagement type but never a predicted action.
func ActionTypes() []string {
	return []string{
		ActionLike,
		ActionReply,
		ActionRepost,
		ActionNotInterested,
		ActionBlockAuthor,
		ActionMuteAuthor,
	}
}

// Prediction maps an action type to its predicted probability in [0, 1].
type Prediction map[string]float64

// Model converts a user context and an ordered batch of candidate texts into
// one Prediction per candidate, in input order.
//
// Candidate-isolation contract: the prediction for a candidate must not
// depend on its position in the batch or on the other candidates present.
// Scoring the same (context, text) pair in different batches must agree
// within a small tolerance. The pipeline issues exactly one batched call per
// request so this property stays observable at the serving boundary.
type Model interface {
	Rank(ctx context.Context, userContext string, texts []string) ([]Prediction, error)
}
