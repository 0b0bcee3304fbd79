package llm

import "fmt"

// ProviderError reports a failed generation call: a transport error, a
// non-success status, or a response with no usable text content.
type ProviderError struct {
	Model  string
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider call failed for model %s: status %d - %s", e.Model, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider call failed for model %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("provider call failed for model %s: %s", e.Model, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Model  string
	Status int
	Body   string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("embedding call failed for model %s: status %d - %s", e.Model, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("embedding call failed for model %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("embedding call failed for model %s: %s", e.Model, e.Body)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
