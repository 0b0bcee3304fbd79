package deliberation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/concilium-ai/concilium/internal/council"
	"github.com/concilium-ai/concilium/internal/llm"
	"github.com/concilium-ai/concilium/internal/metrics"
)

const (
	defaultReviewConcurrency = 4
	fallbackSynthesis        = "The council could not produce a synthesized answer for this query."
)

// Config tunes the orchestrator. Zero values take defaults.
type Config struct {
	// ReviewConcurrency bounds concurrent review calls. Defaults to 4.
	ReviewConcurrency int64
	// MaxTokens is forwarded to every generation call when non-zero.
	MaxTokens int
}

// Orchestrator runs the deliberation protocol over a fixed council.
type Orchestrator struct {
	registry  *council.Registry
	provider  llm.Provider
	extractor Extractor
	cfg       Config
	logger    *logrus.Logger
}

// New builds an orchestrator over the given roster. A nil registry or an
// empty roster is a *council.ConfigurationError; after construction no
// error class escapes ProcessQuery.
func New(registry *council.Registry, provider llm.Provider, cfg Config, logger *logrus.Logger) (*Orchestrator, error) {
	if registry == nil || len(registry.Members()) == 0 {
		return nil, &council.ConfigurationError{Field: "members", Reason: "roster is empty"}
	}
	if provider == nil {
		return nil, &council.ConfigurationError{Field: "provider", Reason: "missing"}
	}
	if cfg.ReviewConcurrency <= 0 {
		cfg.ReviewConcurrency = defaultReviewConcurrency
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		registry:  registry,
		provider:  provider,
		extractor: NewExtractor(),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// ListMembers returns the roster.
func (o *Orchestrator) ListMembers() []council.Member {
	return o.registry.Members()
}

// ProcessQuery runs the full protocol: gather, review, synthesize, score.
// It never returns an error; provider failures degrade individual
// responses, and context cancellation stops between stages with whatever
// has been produced so far.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query, docContext string) *ConsensusResult {
	start := time.Now()
	members := o.registry.Members()

	result := &ConsensusResult{
		ID:      uuid.NewString(),
		Query:   query,
		Members: members,
	}

	log := o.logger.WithFields(logrus.Fields{
		"deliberation_id": result.ID,
		"members":         len(members),
	})
	log.Info("Deliberation started")

	log.WithField("stage", StageGathering).Debug("Gathering member responses")
	result.Responses = o.gather(ctx, members, query, docContext)
	if ctx.Err() != nil {
		return o.finish(result, start, log)
	}

	log.WithField("stage", StageReviewing).Debug("Running peer reviews")
	result.Reviews = o.review(ctx, members, query, result.Responses)
	if ctx.Err() != nil {
		return o.finish(result, start, log)
	}

	log.WithField("stage", StageSynthesizing).Debug("Synthesizing")
	result.Synthesis = o.synthesize(ctx, query, result.Responses, result.Reviews)
	return o.finish(result, start, log)
}

func (o *Orchestrator) finish(result *ConsensusResult, start time.Time, log *logrus.Entry) *ConsensusResult {
	result.ConsensusScore = ConsensusScore(result.Responses, result.Reviews)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	metrics.DeliberationDuration.Observe(time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"stage":     StageDone,
		"responses": len(result.Responses),
		"reviews":   len(result.Reviews),
		"consensus": result.ConsensusScore,
		"ms":        result.ExecutionTimeMs,
	}).Info("Deliberation finished")
	return result
}

// gather fans out the query to every member concurrently. Each member
// writes into its own slot, so the response order matches the roster.
func (o *Orchestrator) gather(ctx context.Context, members []council.Member, query, docContext string) []MemberResponse {
	responses := make([]MemberResponse, len(members))
	prompt := buildMemberPrompt(query, docContext)

	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m council.Member) {
			defer wg.Done()
			responses[i] = o.askMember(ctx, m, prompt)
		}(i, m)
	}
	wg.Wait()
	return responses
}

func (o *Orchestrator) askMember(ctx context.Context, m council.Member, prompt string) MemberResponse {
	req := &llm.GenerationRequest{
		Model: m.Model,
		Messages: []llm.Message{
			{Role: "system", Content: m.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: m.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}

	text, err := o.provider.Complete(ctx, req)
	if err != nil {
		o.logger.WithError(err).WithField("member", m.ID).Warn("Member response failed")
		return MemberResponse{
			MemberID:   m.ID,
			MemberName: m.Name,
			Response:   fmt.Sprintf("Error: %v", err),
			Confidence: 0,
			Reasoning:  "Unable to process",
		}
	}

	return MemberResponse{
		MemberID:   m.ID,
		MemberName: m.Name,
		Response:   text,
		Confidence: o.extractor.Confidence(text),
		Reasoning:  o.extractor.Reasoning(text),
	}
}

// review runs the all-pairs critique: every member reviews every other
// member's response, degraded ones included. Failed review calls are
// dropped rather than degraded, so the review list may be shorter than
// the pair count.
func (o *Orchestrator) review(ctx context.Context, members []council.Member, query string, responses []MemberResponse) []PeerReview {
	type pair struct {
		reviewer council.Member
		target   MemberResponse
	}

	var pairs []pair
	for _, reviewer := range members {
		for _, target := range responses {
			if reviewer.ID == target.MemberID {
				continue
			}
			pairs = append(pairs, pair{reviewer: reviewer, target: target})
		}
	}

	slots := make([]*PeerReview, len(pairs))
	sem := semaphore.NewWeighted(o.cfg.ReviewConcurrency)
	var wg sync.WaitGroup
	for i, p := range pairs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, p pair) {
			defer wg.Done()
			defer sem.Release(1)
			slots[i] = o.reviewOne(ctx, p.reviewer, query, p.target)
		}(i, p)
	}
	wg.Wait()

	reviews := make([]PeerReview, 0, len(pairs))
	for _, r := range slots {
		if r != nil {
			reviews = append(reviews, *r)
		}
	}
	return reviews
}

func (o *Orchestrator) reviewOne(ctx context.Context, reviewer council.Member, query string, target MemberResponse) *PeerReview {
	req := &llm.GenerationRequest{
		Model: reviewer.Model,
		Messages: []llm.Message{
			{Role: "system", Content: reviewer.SystemPrompt},
			{Role: "user", Content: buildReviewPrompt(query, target)},
		},
		Temperature: reviewer.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}

	text, err := o.provider.Complete(ctx, req)
	if err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"reviewer": reviewer.ID,
			"target":   target.MemberID,
		}).Warn("Peer review failed")
		return nil
	}

	score, parsed := o.extractor.ReviewScore(text)
	return &PeerReview{
		ReviewerID: reviewer.ID,
		TargetID:   target.MemberID,
		Evaluation: text,
		Score:      score,
		Parsed:     parsed,
		Strengths:  o.extractor.Strengths(text),
		Weaknesses: o.extractor.Weaknesses(text),
	}
}

// synthesize asks the first roster member's model to merge the analyses.
// Failure falls back to a fixed sentence; it never fails the deliberation.
func (o *Orchestrator) synthesize(ctx context.Context, query string, responses []MemberResponse, reviews []PeerReview) string {
	members := o.registry.Members()
	lead := members[0]

	req := &llm.GenerationRequest{
		Model: lead.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "You are the chair of an expert council. You merge independent analyses into one final answer."},
			{Role: "user", Content: buildSynthesisPrompt(query, responses, reviews)},
		},
		Temperature: 0.3,
		MaxTokens:   o.cfg.MaxTokens,
	}

	text, err := o.provider.Complete(ctx, req)
	if err != nil {
		o.logger.WithError(err).Warn("Synthesis failed, using fallback")
		return fallbackSynthesis
	}
	return text
}
