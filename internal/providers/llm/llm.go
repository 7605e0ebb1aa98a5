package llm

import "context"

// Provider runs one structured-generation call. Implementations ask the backend for
// JSON at temperature 0 but do not validate the shape; callers must.
type Provider interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Close() error
}
