package deliberation

import "math"

// Weighting of the consensus components. Confidence and review quality
// carry most of the score, with agreement filling the rest.
const (
	confidenceWeight = 0.3
	reviewWeight     = 0.4
	agreementWeight  = 0.3
)

// ConsensusScore combines member confidence, peer review scores, and
// review agreement into a single value in [0,1]. Either list being
// empty yields 0.
func ConsensusScore(responses []MemberResponse, reviews []PeerReview) float64 {
	if len(responses) == 0 || len(reviews) == 0 {
		return 0
	}

	var confSum float64
	for _, r := range responses {
		confSum += r.Confidence
	}
	avgConf := confSum / float64(len(responses))

	var scoreSum float64
	for _, rv := range reviews {
		scoreSum += rv.Score
	}
	avgScore := scoreSum / float64(len(reviews))

	var varSum float64
	for _, rv := range reviews {
		d := rv.Score - avgScore
		varSum += d * d
	}
	variance := varSum / float64(len(reviews))

	agreement := 1 - math.Sqrt(variance)/5
	if agreement < 0 {
		agreement = 0
	}

	score := confidenceWeight*avgConf + reviewWeight*(avgScore/10) + agreementWeight*agreement
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
