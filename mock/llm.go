package mock

import (
	"context"

	"github.com/mwielgus/pagekb"
)

var _ pagekb.LLMClient = (*LLMClient)(nil)

// LLMClient is a mock implementation of pagekb.LLMClient.
type LLMClient struct {
	CallTextOnlyFn   func(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error)
	CallWithImagesFn func(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error)
	ModelFn          func() string
}

func (c *LLMClient) CallTextOnly(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	return c.CallTextOnlyFn(ctx, systemPrompt, userPrompt, maxOutputTokens)
}

func (c *LLMClient) CallWithImages(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error) {
	return c.CallWithImagesFn(ctx, systemPrompt, userPrompt, imagePaths, maxOutputTokens)
}

func (c *LLMClient) Model() string {
	if c.ModelFn == nil {
		return "mock-model"
	}
	return c.ModelFn()
}
