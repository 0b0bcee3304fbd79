// Package deliberation orchestrates the four-stage council protocol:
// parallel initial responses, all-pairs peer review, synthesis, and
// consensus scoring. Partial provider failure degrades the result, it
// never fails the request.
package deliberation

import (
	"github.com/concilium-ai/concilium/internal/council"
)

// MemberResponse is one member's answer to the query. Confidence and
// Reasoning are parsed from the response text, not authoritative provider
// fields.
type MemberResponse struct {
	MemberID   string  `json:"member_id"`
	MemberName string  `json:"member_name"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"` // in [0,1]
	Reasoning  string  `json:"reasoning"`
}

// PeerReview is one member's critique of another member's response.
// Parsed is false when the numeric score could not be extracted and the
// neutral default was substituted.
type PeerReview struct {
	ReviewerID string  `json:"reviewer_id"`
	TargetID   string  `json:"target_id"`
	Evaluation string  `json:"evaluation"`
	Score      float64 `json:"score"` // in [0,10]
	Parsed     bool    `json:"parsed"`
	Strengths  string  `json:"strengths,omitempty"`
	Weaknesses string  `json:"weaknesses,omitempty"`
}

// ConsensusResult is the terminal output of one deliberation.
type ConsensusResult struct {
	ID              string           `json:"id"`
	Query           string           `json:"query"`
	Members         []council.Member `json:"members"`
	Responses       []MemberResponse `json:"responses"`
	Reviews         []PeerReview     `json:"reviews"`
	Synthesis       string           `json:"synthesis"`
	ConsensusScore  float64          `json:"consensus_score"` // in [0,1]
	ExecutionTimeMs int64            `json:"execution_time_ms"`
}

// Stage identifies the orchestrator's position in the protocol. Stages
// only advance; there are no retries or backward transitions.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageGathering    Stage = "gathering"
	StageReviewing    Stage = "reviewing"
	StageSynthesizing Stage = "synthesizing"
	StageDone         Stage = "done"
)
