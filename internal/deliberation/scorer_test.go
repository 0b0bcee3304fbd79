package deliberation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsensusScore(t *testing.T) {
	responses := func(confs ...float64) []MemberResponse {
		out := make([]MemberResponse, len(confs))
		for i, c := range confs {
			out[i] = MemberResponse{Confidence: c}
		}
		return out
	}
	reviews := func(scores ...float64) []PeerReview {
		out := make([]PeerReview, len(scores))
		for i, s := range scores {
			out[i] = PeerReview{Score: s}
		}
		return out
	}

	t.Run("empty responses yield zero", func(t *testing.T) {
		assert.Zero(t, ConsensusScore(nil, reviews(8, 9)))
	})

	t.Run("empty reviews yield zero", func(t *testing.T) {
		assert.Zero(t, ConsensusScore(responses(0.9), nil))
	})

	t.Run("unanimous perfect council", func(t *testing.T) {
		// avgConf 1, avgScore 10, variance 0: 0.3 + 0.4 + 0.3.
		got := ConsensusScore(responses(1, 1), reviews(10, 10))
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("uniform mid scores", func(t *testing.T) {
		// avgConf 0.5, avgScore 5, variance 0: 0.15 + 0.2 + 0.3.
		got := ConsensusScore(responses(0.5, 0.5), reviews(5, 5, 5))
		assert.InDelta(t, 0.65, got, 1e-9)
	})

	t.Run("disagreement lowers the score", func(t *testing.T) {
		uniform := ConsensusScore(responses(0.8), reviews(6, 6))
		split := ConsensusScore(responses(0.8), reviews(2, 10))
		assert.Less(t, split, uniform)
	})

	t.Run("extreme variance floors agreement at zero", func(t *testing.T) {
		// Scores 0 and 10: stddev 5, agreement term exactly 0.
		got := ConsensusScore(responses(0), reviews(0, 10))
		// avgConf 0, avgScore 5, agreement 0: only the review term remains.
		assert.InDelta(t, 0.2, got, 1e-9)
	})

	t.Run("result stays within unit interval", func(t *testing.T) {
		got := ConsensusScore(responses(1, 1, 1), reviews(10, 10, 10, 10))
		assert.LessOrEqual(t, got, 1.0)
		assert.GreaterOrEqual(t, got, 0.0)
	})
}
