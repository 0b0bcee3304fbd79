// Package council defines the static roster of deliberation members.
// The roster is pure configuration: fixed at startup and read-only for
// the lifetime of the process.
package council

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultTemperature = 0.7

// Member is one independently configured deliberation participant.
type Member struct {
	ID           string  `yaml:"id" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	Role         string  `yaml:"role" json:"role"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt"`
	Model        string  `yaml:"model" json:"model"`
	Temperature  float64 `yaml:"temperature" json:"temperature"`
}

// ConfigurationError reports structural misconfiguration of the council.
// It is the only error class the deliberation core lets escape to callers,
// and only at construction time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid council configuration: %s: %s", e.Field, e.Reason)
}

// Registry holds the immutable member roster.
type Registry struct {
	members []Member
}

// NewRegistry validates the roster and freezes it. An empty roster, a
// member without an id, or a member without a model binding is a
// *ConfigurationError.
func NewRegistry(members []Member) (*Registry, error) {
	if len(members) == 0 {
		return nil, &ConfigurationError{Field: "members", Reason: "roster is empty"}
	}

	seen := make(map[string]bool, len(members))
	frozen := make([]Member, len(members))
	for i, m := range members {
		if m.ID == "" {
			return nil, &ConfigurationError{Field: fmt.Sprintf("members[%d].id", i), Reason: "missing"}
		}
		if m.Model == "" {
			return nil, &ConfigurationError{Field: fmt.Sprintf("members[%d].model", i), Reason: "missing model binding"}
		}
		if seen[m.ID] {
			return nil, &ConfigurationError{Field: fmt.Sprintf("members[%d].id", i), Reason: fmt.Sprintf("duplicate id %q", m.ID)}
		}
		seen[m.ID] = true

		if m.Name == "" {
			m.Name = m.ID
		}
		if m.Temperature <= 0 {
			m.Temperature = defaultTemperature
		}
		frozen[i] = m
	}

	return &Registry{members: frozen}, nil
}

// Members returns a copy of the roster in declaration order.
func (r *Registry) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// Size returns the number of members.
func (r *Registry) Size() int {
	return len(r.members)
}

type rosterFile struct {
	Members []Member `yaml:"members"`
}

// LoadRoster reads a YAML roster file, substituting ${VAR} references in
// string fields from the environment.
func LoadRoster(path string) ([]Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}

	for i := range roster.Members {
		m := &roster.Members[i]
		m.Model = os.ExpandEnv(m.Model)
		m.SystemPrompt = os.ExpandEnv(m.SystemPrompt)
	}

	return roster.Members, nil
}

// DefaultRoster returns the reference four-member council, each persona
// bound to the given model.
func DefaultRoster(model string) []Member {
	return []Member{
		{
			ID:          "analyst",
			Name:        "The Analyst",
			Role:        "analytical reasoning",
			Model:       model,
			Temperature: 0.3,
			SystemPrompt: "You are The Analyst, a rigorous and methodical thinker. " +
				"Break the question into its parts, weigh the evidence for each, and answer precisely. " +
				"State your reasoning, then end with a line of the form 'Confidence: NN%'.",
		},
		{
			ID:          "skeptic",
			Name:        "The Skeptic",
			Role:        "critical challenge",
			Model:       model,
			Temperature: 0.5,
			SystemPrompt: "You are The Skeptic. Probe the question for hidden assumptions, " +
				"note what could go wrong with the obvious answer, and only then give your own. " +
				"State your reasoning, then end with a line of the form 'Confidence: NN%'.",
		},
		{
			ID:          "innovator",
			Name:        "The Innovator",
			Role:        "creative exploration",
			Model:       model,
			Temperature: 0.9,
			SystemPrompt: "You are The Innovator. Look for the non-obvious angle, the reframing " +
				"that makes the question easier, the connection others miss. " +
				"State your reasoning, then end with a line of the form 'Confidence: NN%'.",
		},
		{
			ID:          "pragmatist",
			Name:        "The Pragmatist",
			Role:        "practical synthesis",
			Model:       model,
			Temperature: 0.4,
			SystemPrompt: "You are The Pragmatist. Favor the answer that is actionable and " +
				"useful over the one that is merely clever. Keep it concrete. " +
				"State your reasoning, then end with a line of the form 'Confidence: NN%'.",
		},
	}
}
