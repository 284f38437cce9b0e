package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts extraction providers for policy document summarization.
type Client interface {
	SummarizePolicy(ctx context.Context, input SummarizeInput) (json.RawMessage, error)
}

// SummarizeInput captures the inputs needed for a policy summarization request.
type SummarizeInput struct {
	PolicyText             string
	DetailLevel            string
	FocusAreas             []string
	Format                 string
	IncludeRiskAssessment  bool
	IncludeRecommendations bool
	PromptVersion          string
}

type fixJSONKey struct{}

// WithFixJSON returns a context signaling a fix-JSON retry with the given raw output.
func WithFixJSON(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, fixJSONKey{}, raw)
}

// FixJSONFromContext returns the raw JSON to repair, if any.
func FixJSONFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(fixJSONKey{})
	raw, ok := val.(string)
	return raw, ok
}

type extraSystemKey struct{}

// WithExtraSystemMessage returns a context carrying an additional system message
// prepended to the provider prompt. Used by repair retries.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemKey{}, msg)
}

// ExtraSystemMessageFromContext returns the extra system message, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(extraSystemKey{})
	msg, ok := val.(string)
	return msg, ok
}

type promptHashSinkKey struct{}

// WithPromptHashSink returns a context carrying a sink the provider fills with
// the sha256 of the rendered prompt, for telemetry correlation.
func WithPromptHashSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the prompt hash sink, if any.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	val := ctx.Value(promptHashSinkKey{})
	sink, ok := val.(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// SummarizePolicy returns ErrNotImplemented.
func (PlaceholderClient) SummarizePolicy(ctx context.Context, input SummarizeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
