package pagekb

import "context"

// LLMClient is the network collaborator wrapping the LLM vendor API.
// Implementations own rate limiting, bounded retries with a fixed
// cooldown, and image encoding; callers see either a text reply or the
// failure left after retry exhaustion. Implementations must not be
// called concurrently for the same page — the pipeline is strictly
// sequential.
type LLMClient interface {
	// CallTextOnly sends a text-only prompt and returns the raw reply.
	CallTextOnly(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error)

	// CallWithImages attaches the images at the given local paths ahead
	// of the user prompt. Raster images larger than the vendor's pixel
	// limit are downscaled before encoding; SVGs pass through as-is.
	CallWithImages(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error)

	// Model returns the model identifier recorded in output metadata.
	Model() string
}
