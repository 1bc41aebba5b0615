// Package recommend implements the recommendation orchestrator: candidate
// sourcing from the follow graph and embedding similarity, the filter chain,
// batched model ranking, the scoring pipeline, and final truncation. All
// dependencies are constructor-injected so tests can substitute fakes.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ranklab/ranklab/internal/candidate"
	"github.com/ranklab/ranklab/internal/embedding"
	"github.com/ranklab/ranklab/internal/filter"
	"github.com/ranklab/ranklab/internal/post"
	"github.com/ranklab/ranklab/internal/ranker"
	"github.com/ranklab/ranklab/internal/scoring"
	"github.com/ranklab/ranklab/internal/social"
)

// Sourcing and result-size defaults.
const (
	// DefaultLimit is the result size when the caller does not specify one.
	DefaultLimit = 30
	// MaxLimit caps the caller-requested result size.
	MaxLimit = 100
	// DefaultInNetworkCap bounds recent posts fetched from followed authors.
	DefaultInNetworkCap = 300
	// DefaultOONWorkingSet bounds the post vectors scanned for similarity.
	DefaultOONWorkingSet = 1000
	// DefaultOONTopN bounds the similar posts hydrated after the scan.
	DefaultOONTopN = 300
	// DefaultMaxAge is the candidate age window.
	DefaultMaxAge = 7 * 24 * time.Hour
	// DefaultSourceTimeout bounds each retrieval branch and the model call.
	DefaultSourceTimeout = 5 * time.Second
)

// Config tunes the pipeline. Zero values fall back to the defaults above.
type Config struct {
	InNetworkCap  int
	OONWorkingSet int
	OONTopN       int
	MaxAge        time.Duration
	SourceTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.InNetworkCap <= 0 {
		c.InNetworkCap = DefaultInNetworkCap
	}
	if c.OONWorkingSet <= 0 {
		c.OONWorkingSet = DefaultOONWorkingSet
	}
	if c.OONTopN <= 0 {
		c.OONTopN = DefaultOONTopN
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = DefaultSourceTimeout
	}
	return c
}

// PostSummary is one recommended post in the response.
type PostSummary struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is the recommendation result. Posts and Scores are parallel
// lists; TotalCandidates counts everything sourced before filtering.
type Response struct {
	UserID           string        `json:"user_id"`
	Posts            []PostSummary `json:"posts"`
	Scores           []float64     `json:"scores"`
	TotalCandidates  int           `json:"total_candidates"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
}

// Pipeline orchestrates one recommendation request end to end.
type Pipeline struct {
	embeddings embedding.Store
	posts      post.Repository
	graph      social.Graph
	model      ranker.Model
	weights    scoring.WeightRepository
	logger     *slog.Logger
	metrics    *Metrics
	cfg        Config
}

// NewPipeline wires the orchestrator. weights and metrics may be nil: a nil
// weight repository always uses the default table, a nil metrics sink
// records nothing.
func NewPipeline(
	embeddings embedding.Store,
	posts post.Repository,
	graph social.Graph,
	model ranker.Model,
	weights scoring.WeightRepository,
	logger *slog.Logger,
	metrics *Metrics,
	cfg Config,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embeddings: embeddings,
		posts:      posts,
		graph:      graph,
		model:      model,
		weights:    weights,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg.withDefaults(),
	}
}

// ClampLimit normalizes a caller-requested result size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recommend runs the full pipeline for one user. Sourcing failures degrade
// to empty branches; the request fails only on total infrastructure
// unavailability upstream of this call.
func (p *Pipeline) Recommend(ctx context.Context, userID string, limit int) (*Response, error) {
	start := time.Now()
	limit = ClampLimit(limit)

	userEmb, err := p.embeddings.GetUserEmbedding(ctx, userID)
	if err != nil && err != embedding.ErrNotFound {
		p.logger.Warn("user embedding unavailable",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	var userVec []float32
	if userEmb != nil {
		userVec = userEmb.Vector
	}

	candidates := p.source(ctx, userID, userVec)
	total := len(candidates)

	blocked, muted := p.socialSets(ctx, userID)
	chain := filter.DefaultChain(userID, blocked, muted, p.cfg.MaxAge)
	survivors, removed := chain.Apply(candidates)
	if p.metrics != nil {
		for name, n := range removed {
			p.metrics.AddFilterRemovals(name, n)
		}
	}

	preds := p.rank(ctx, userID, survivors)
	table := p.loadWeights(ctx)
	scored := scoring.NewPipeline(table).Score(survivors, preds)

	if len(scored) > limit {
		scored = scored[:limit]
	}

	resp := &Response{
		UserID:          userID,
		Posts:           make([]PostSummary, 0, len(scored)),
		Scores:          make([]float64, 0, len(scored)),
		TotalCandidates: total,
	}
	for _, sc := range scored {
		resp.Posts = append(resp.Posts, PostSummary{
			ID:        sc.Candidate.ID,
			AuthorID:  sc.Candidate.AuthorID,
			Text:      sc.Candidate.Text,
			CreatedAt: sc.Candidate.CreatedAt,
		})
		resp.Scores = append(resp.Scores, sc.Score)
	}
	resp.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000.0

	if p.metrics != nil {
		p.metrics.IncRequests(StatusSuccess)
		p.metrics.ObserveDuration(time.Since(start).Seconds())
	}
	p.logger.Info("recommendation served",
		slog.String("user_id", userID),
		slog.Int("total_candidates", total),
		slog.Int("returned", len(resp.Posts)),
		slog.Float64("processing_ms", resp.ProcessingTimeMS))
	return resp, nil
}

// source runs both retrieval branches concurrently. Each branch is bounded
// by the source timeout and degrades to an empty result on failure.
func (p *Pipeline) source(ctx context.Context, userID string, userVec []float32) []candidate.Candidate {
	var (
		wg        sync.WaitGroup
		inNetwork []candidate.Candidate
		oon       []candidate.Candidate
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		inNetwork = p.sourceInNetwork(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		oon = p.sourceOutOfNetwork(ctx, userVec)
	}()
	wg.Wait()

	if p.metrics != nil {
		p.metrics.AddCandidatesSourced(SourceInNetwork, len(inNetwork))
		p.metrics.AddCandidatesSourced(SourceOutOfNetwork, len(oon))
	}

	merged := make([]candidate.Candidate, 0, len(inNetwork)+len(oon))
	merged = append(merged, inNetwork...)
	merged = append(merged, oon...)
	return merged
}

func (p *Pipeline) sourceInNetwork(ctx context.Context, userID string) []candidate.Candidate {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SourceTimeout)
	defer cancel()

	following, err := p.graph.Following(ctx, userID)
	if err != nil {
		p.logger.Warn("in-network sourcing degraded",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	if len(following) == 0 {
		return nil
	}

	posts, err := p.posts.ListRecentByAuthors(ctx, following, p.cfg.InNetworkCap)
	if err != nil {
		p.logger.Warn("in-network sourcing degraded",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	return toCandidates(posts, true)
}

func (p *Pipeline) sourceOutOfNetwork(ctx context.Context, userVec []float32) []candidate.Candidate {
	if embedding.Norm(userVec) == 0 {
		// No taste vector yet: similarity against a zero vector is
		// meaningless, so the branch contributes nothing.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.SourceTimeout)
	defer cancel()

	vectors, err := p.embeddings.ListPostVectors(ctx, p.cfg.OONWorkingSet)
	if err != nil {
		p.logger.Warn("out-of-network sourcing degraded", slog.String("error", err.Error()))
		return nil
	}

	topIDs := embedding.TopSimilar(userVec, vectors, p.cfg.OONTopN)
	if len(topIDs) == 0 {
		return nil
	}

	posts, err := p.posts.GetByIDs(ctx, topIDs)
	if err != nil {
		p.logger.Warn("out-of-network sourcing degraded", slog.String("error", err.Error()))
		return nil
	}
	return toCandidates(posts, false)
}

func toCandidates(posts []*post.Post, inNetwork bool) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(posts))
	for _, pst := range posts {
		out = append(out, candidate.Candidate{
			ID:        pst.ID,
			Text:      pst.Text,
			AuthorID:  pst.AuthorID,
			CreatedAt: pst.CreatedAt,
			InNetwork: inNetwork,
		})
	}
	return out
}

func (p *Pipeline) socialSets(ctx context.Context, userID string) (blocked, muted []string) {
	blocked, muted, err := p.graph.BlockedAndMuted(ctx, userID)
	if err != nil {
		// Without the sets the filter passes everything through; the
		// request still succeeds.
		p.logger.Warn("social sets unavailable",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return blocked, muted
}

// rank calls the model once with the whole surviving batch. A model failure
// degrades to zero predictions rather than failing the request.
func (p *Pipeline) rank(ctx context.Context, userID string, survivors []candidate.Candidate) []ranker.Prediction {
	if len(survivors) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.SourceTimeout)
	defer cancel()

	texts := make([]string, len(survivors))
	for i, c := range survivors {
		texts[i] = c.Text
	}

	preds, err := p.model.Rank(ctx, fmt.Sprintf("User %s", userID), texts)
	if err != nil {
		p.logger.Warn("model ranking degraded",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	return preds
}

func (p *Pipeline) loadWeights(ctx context.Context) map[string]float64 {
	if p.weights == nil {
		return nil
	}
	table, err := p.weights.LoadActive(ctx)
	if err != nil {
		p.logger.Warn("weight configuration unavailable, using defaults",
			slog.String("error", err.Error()))
		return nil
	}
	return table
}
