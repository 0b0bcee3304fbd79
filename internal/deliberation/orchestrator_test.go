package deliberation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/concilium-ai/concilium/internal/council"
	"github.com/concilium-ai/concilium/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProvider routes generation calls through respond, keyed on the
// request model and the last user message.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	respond func(model, prompt string) (string, error)
}

func newFakeProvider(respond func(model, prompt string) (string, error)) *fakeProvider {
	if respond == nil {
		respond = func(string, string) (string, error) { return "", errors.New("no responder") }
	}
	return &fakeProvider{respond: respond}
}

func (f *fakeProvider) Complete(_ context.Context, req *llm.GenerationRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	return f.respond(req.Model, prompt)
}

func (f *fakeProvider) CompleteStream(ctx context.Context, req *llm.GenerationRequest, onChunk func(string)) (string, error) {
	text, err := f.Complete(ctx, req)
	if err == nil && onChunk != nil {
		onChunk(text)
	}
	return text, err
}

func testRoster(t *testing.T) *council.Registry {
	t.Helper()
	reg, err := council.NewRegistry([]council.Member{
		{ID: "analyst", Name: "Analyst", Model: "model-a"},
		{ID: "skeptic", Name: "Skeptic", Model: "model-b"},
		{ID: "innovator", Name: "Innovator", Model: "model-c"},
		{ID: "pragmatist", Name: "Pragmatist", Model: "model-d"},
	})
	require.NoError(t, err)
	return reg
}

func TestNewValidation(t *testing.T) {
	provider := newFakeProvider(nil)

	t.Run("nil registry rejected", func(t *testing.T) {
		_, err := New(nil, provider, Config{}, nil)
		var cfgErr *council.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("nil provider rejected", func(t *testing.T) {
		_, err := New(testRoster(t), nil, Config{}, nil)
		var cfgErr *council.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestProcessQueryFullProtocol(t *testing.T) {
	provider := newFakeProvider(func(model, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "You are reviewing"):
			return "Thorough work.\nScore: 8/10\nStrengths: clarity\nWeaknesses: brevity", nil
		case strings.Contains(prompt, "Synthesize a single"):
			return "The council agrees on the combined answer.", nil
		default:
			return "Detailed analysis here.\nReasoning: from the data\nConfidence: 80%", nil
		}
	})

	orch, err := New(testRoster(t), provider, Config{}, nil)
	require.NoError(t, err)

	result := orch.ProcessQuery(context.Background(), "What is the plan?", "")
	require.NotNil(t, result)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "What is the plan?", result.Query)
	assert.Len(t, result.Members, 4)

	require.Len(t, result.Responses, 4)
	for _, r := range result.Responses {
		assert.InDelta(t, 0.8, r.Confidence, 1e-9)
		assert.Equal(t, "from the data", r.Reasoning)
	}

	// Four members each review the other three.
	require.Len(t, result.Reviews, 12)
	for _, rv := range result.Reviews {
		assert.NotEqual(t, rv.ReviewerID, rv.TargetID)
		assert.InDelta(t, 8.0, rv.Score, 1e-9)
		assert.True(t, rv.Parsed)
		assert.Equal(t, "clarity", rv.Strengths)
	}

	assert.Equal(t, "The council agrees on the combined answer.", result.Synthesis)
	assert.Greater(t, result.ConsensusScore, 0.0)
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))
}

func TestProcessQueryDegradedMembers(t *testing.T) {
	// Models c and d fail only while gathering; their review calls work.
	provider := newFakeProvider(func(model, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "You are reviewing"):
			return "Score: 7/10", nil
		case strings.Contains(prompt, "Synthesize a single"):
			return "Partial synthesis.", nil
		default:
			if model == "model-c" || model == "model-d" {
				return "", errors.New("provider unavailable")
			}
			return "Answer.\nConfidence: 60%", nil
		}
	})

	orch, err := New(testRoster(t), provider, Config{}, nil)
	require.NoError(t, err)

	result := orch.ProcessQuery(context.Background(), "query", "")
	require.Len(t, result.Responses, 4)

	degraded := 0
	for _, r := range result.Responses {
		if r.Confidence == 0 {
			degraded++
			assert.True(t, strings.HasPrefix(r.Response, "Error:"))
			assert.Equal(t, "Unable to process", r.Reasoning)
		}
	}
	assert.Equal(t, 2, degraded)

	// Degradation does not shrink the pair enumeration: all four members
	// still review the other three, error responses included.
	require.Len(t, result.Reviews, 12)

	reviewers := make(map[string]int)
	targets := make(map[string]int)
	for _, rv := range result.Reviews {
		reviewers[rv.ReviewerID]++
		targets[rv.TargetID]++
	}
	for _, id := range []string{"analyst", "skeptic", "innovator", "pragmatist"} {
		assert.Equal(t, 3, reviewers[id])
		assert.Equal(t, 3, targets[id])
	}
}

func TestProcessQueryReviewCallFailuresAreDropped(t *testing.T) {
	// Models c and d fail on every call, so their gathering slots degrade
	// and their own review calls drop. Healthy members still review
	// everyone, degraded targets included.
	provider := newFakeProvider(func(model, prompt string) (string, error) {
		if model == "model-c" || model == "model-d" {
			return "", errors.New("provider unavailable")
		}
		switch {
		case strings.Contains(prompt, "You are reviewing"):
			return "Score: 7/10", nil
		case strings.Contains(prompt, "Synthesize a single"):
			return "Partial synthesis.", nil
		default:
			return "Answer.\nConfidence: 60%", nil
		}
	})

	orch, err := New(testRoster(t), provider, Config{}, nil)
	require.NoError(t, err)

	result := orch.ProcessQuery(context.Background(), "query", "")

	// analyst and skeptic each review the other three members.
	require.Len(t, result.Reviews, 6)
	degradedTargets := 0
	for _, rv := range result.Reviews {
		assert.Contains(t, []string{"analyst", "skeptic"}, rv.ReviewerID)
		if rv.TargetID == "innovator" || rv.TargetID == "pragmatist" {
			degradedTargets++
		}
	}
	assert.Equal(t, 4, degradedTargets)
}

func TestProcessQuerySynthesisFallback(t *testing.T) {
	provider := newFakeProvider(func(model, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Synthesize a single"):
			return "", errors.New("synthesis model down")
		case strings.Contains(prompt, "You are reviewing"):
			return "Score: 9/10", nil
		default:
			return "Good answer.\nConfidence: 90%", nil
		}
	})

	orch, err := New(testRoster(t), provider, Config{}, nil)
	require.NoError(t, err)

	result := orch.ProcessQuery(context.Background(), "query", "")
	assert.Equal(t, fallbackSynthesis, result.Synthesis)
	assert.Greater(t, result.ConsensusScore, 0.0)
}

func TestProcessQueryCancelledContext(t *testing.T) {
	provider := newFakeProvider(func(model, prompt string) (string, error) {
		return "unused", nil
	})

	orch, err := New(testRoster(t), provider, Config{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := orch.ProcessQuery(ctx, "query", "")
	require.NotNil(t, result)
	assert.Len(t, result.Responses, 4)
	assert.Empty(t, result.Reviews)
	assert.Empty(t, result.Synthesis)
	assert.Zero(t, result.ConsensusScore)
}

func TestListMembers(t *testing.T) {
	orch, err := New(testRoster(t), newFakeProvider(nil), Config{}, nil)
	require.NoError(t, err)

	members := orch.ListMembers()
	require.Len(t, members, 4)
	assert.Equal(t, "analyst", members[0].ID)
}
