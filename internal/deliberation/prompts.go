package deliberation

import (
	"fmt"
	"sort"
	"strings"
)

const summaryTruncation = 400

func buildMemberPrompt(query, context string) string {
	var sb strings.Builder
	if context != "" {
		sb.WriteString("Relevant context:\n")
		sb.WriteString(context)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nProvide your analysis. End with a line of the form \"Confidence: NN%\".")
	return sb.String()
}

func buildReviewPrompt(query string, target MemberResponse) string {
	var sb strings.Builder
	sb.WriteString("You are reviewing a colleague's answer to the question below.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer from ")
	sb.WriteString(target.MemberName)
	sb.WriteString(":\n")
	sb.WriteString(target.Response)
	sb.WriteString("\n\nAssess the answer's accuracy, completeness, and reasoning.\n")
	sb.WriteString("Include lines of the form:\n")
	sb.WriteString("Score: N/10\nStrengths: ...\nWeaknesses: ...")
	return sb.String()
}

func buildSynthesisPrompt(query string, responses []MemberResponse, reviews []PeerReview) string {
	var sb strings.Builder
	sb.WriteString("Synthesize a single, coherent answer to the question from the council analyses below.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	// Degraded members stay in the transcript; their error text tells the
	// chair which analyses are missing.
	for _, r := range responses {
		fmt.Fprintf(&sb, "--- %s (confidence %.0f%%) ---\n%s\n\n",
			r.MemberName, r.Confidence*100, truncate(r.Response, summaryTruncation))
	}

	top := topReviews(reviews, 8)
	if len(top) > 0 {
		sb.WriteString("Peer review highlights:\n")
		for _, rv := range top {
			fmt.Fprintf(&sb, "- %s on %s: %.1f/10", rv.ReviewerID, rv.TargetID, rv.Score)
			if rv.Strengths != "" {
				sb.WriteString("; strengths: ")
				sb.WriteString(truncate(rv.Strengths, 120))
			}
			if rv.Weaknesses != "" {
				sb.WriteString("; weaknesses: ")
				sb.WriteString(truncate(rv.Weaknesses, 120))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Weigh higher-scored analyses more heavily. Resolve disagreements explicitly. Answer directly.")
	return sb.String()
}

func topReviews(reviews []PeerReview, n int) []PeerReview {
	out := make([]PeerReview, len(reviews))
	copy(out, reviews)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
