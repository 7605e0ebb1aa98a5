package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
	owns   bool
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, opts ...option.ClientOption) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, err
	}
	v := newVertexModel(c, modelName)
	v.owns = true
	return v, nil
}

// WithModel returns a provider for another model sharing the same client.
// Closing it does not close the shared client.
func (v *VertexGemini) WithModel(modelName string) *VertexGemini {
	return newVertexModel(v.client, modelName)
}

func newVertexModel(c *vertexgenai.Client, modelName string) *VertexGemini {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	m := c.GenerativeModel(modelName)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"
	return &VertexGemini{client: c, model: m}
}

func (v *VertexGemini) Close() error {
	if !v.owns {
		return nil
	}
	return v.client.Close()
}

func (v *VertexGemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break // first candidate only
	}
	if sb.Len() == 0 {
		return "", errors.New("vertex: empty response")
	}
	return sb.String(), nil
}
