// Package scoring implements the re-ranking pipeline: weighted action
// scoring, author-diversity decay, and out-of-network dampening. Each stage
// re-sorts by descending score, stable on ties, so equal-scored candidates
// keep their prior relative order and the output is a total order.
package scoring

import (
	"sort"

	"github.com/ranklab/ranklab/internal/candidate"
	"github.com/ranklab/ranklab/internal/ranker"
)

// Diversity and dampening defaults.
const (
	// DefaultDiversityDecay is the geometric decay applied per repeated
	// author appearance.
	DefaultDiversityDecay = 0.7
	// DefaultDiversityFloor is the multiplier floor the decay converges to.
	DefaultDiversityFloor = 0.3
	// DefaultOONFactor scales scores of out-of-network candidates.
	DefaultOONFactor = 0.8
)

func sortDescending(scored []candidate.Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// WeightedScorer computes the linear action score
// Σ weight(action) × probability(action). Actions absent from the weight
// table contribute zero.
type WeightedScorer struct {
	weights map[string]float64
}

// NewWeightedScorer creates a scorer over the given weight table; a nil or
// empty table falls back to DefaultWeights.
func NewWeightedScorer(weights map[string]float64) *WeightedScorer {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &WeightedScorer{weights: weights}
}

// Score computes the weighted score for one prediction.
func (s *WeightedScorer) Score(pred ranker.Prediction) float64 {
	var score float64
	for action, prob := range pred {
		score += s.weights[action] * prob
	}
	return score
}

// ScoreAll pairs each candidate with its weighted score and sorts the
// result descending.
func (s *WeightedScorer) ScoreAll(candidates []candidate.Candidate, preds []ranker.Prediction) []candidate.Scored {
	scored := make([]candidate.Scored, 0, len(candidates))
	for i, c := range candidates {
		var p ranker.Prediction
		if i < len(preds) {
			p = preds[i]
		}
		scored = append(scored, candidate.Scored{Candidate: c, Score: s.Score(p)})
	}
	sortDescending(scored)
	return scored
}

// DiversityScorer applies a per-author decay so one author cannot dominate
// the feed. For the n-th appearance of an author (n starting at 0) the
// multiplier is (1 − Floor) × Decay^n + Floor: the first appearance is
// untouched and later ones decay geometrically toward the floor, never
// below it.
type DiversityScorer struct {
	Decay float64
	Floor float64
}

// NewDiversityScorer creates a diversity scorer with default decay and floor.
func NewDiversityScorer() *DiversityScorer {
	return &DiversityScorer{Decay: DefaultDiversityDecay, Floor: DefaultDiversityFloor}
}

// Apply rescores the list with the diversity multiplier and re-sorts.
func (s *DiversityScorer) Apply(scored []candidate.Scored) []candidate.Scored {
	appearances := make(map[string]int)
	out := make([]candidate.Scored, 0, len(scored))
	for _, sc := range scored {
		n := appearances[sc.Candidate.AuthorID]
		appearances[sc.Candidate.AuthorID] = n + 1

		multiplier := (1.0-s.Floor)*pow(s.Decay, n) + s.Floor
		sc.Score *= multiplier
		out = append(out, sc)
	}
	sortDescending(out)
	return out
}

// pow is an integer-exponent power; n is small (author appearance count).
func pow(base float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= base
	}
	return result
}

// OONScorer dampens out-of-network candidates by a fixed factor, leaving
// in-network scores untouched.
type OONScorer struct {
	Factor float64
}

// NewOONScorer creates an OON scorer with the default factor.
func NewOONScorer() *OONScorer {
	return &OONScorer{Factor: DefaultOONFactor}
}

// Apply rescales OON scores and re-sorts.
func (s *OONScorer) Apply(scored []candidate.Scored) []candidate.Scored {
	out := make([]candidate.Scored, 0, len(scored))
	for _, sc := range scored {
		if !sc.Candidate.InNetwork {
			sc.Score *= s.Factor
		}
		out = append(out, sc)
	}
	sortDescending(out)
	return out
}

// Pipeline chains the three scoring stages in order.
type Pipeline struct {
	weighted  *WeightedScorer
	diversity *DiversityScorer
	oon       *OONScorer
}

// NewPipeline creates a scoring pipeline using the given weight table (nil
// means defaults) and default diversity/dampening parameters.
func NewPipeline(weights map[string]float64) *Pipeline {
	return &Pipeline{
		weighted:  NewWeightedScorer(weights),
		diversity: NewDiversityScorer(),
		oon:       NewOONScorer(),
	}
}

// Score runs weighted scoring, diversity decay, and OON dampening, and
// returns the candidates in descending final-score order.
func (p *Pipeline) Score(candidates []candidate.Candidate, preds []ranker.Prediction) []candidate.Scored {
	scored := p.weighted.ScoreAll(candidates, preds)
	scored = p.diversity.Apply(scored)
	scored = p.oon.Apply(scored)
	return scored
}
