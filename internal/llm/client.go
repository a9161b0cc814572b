package llm

import "context"

// ApproximateLocation biases grounded web search toward the user's area.
type ApproximateLocation struct {
	City    string
	Region  string
	Country string
}

type Options struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
	// WebSearch, when set, asks the provider to ground the completion in
	// live search results near the given location.
	WebSearch *ApproximateLocation
}

type Client interface {
	Complete(ctx context.Context, system, user string, opts Options) (string, error)
}
