// Package zhipuai implements the LLM Provider contract against ZhipuAI's
// (bigmodel.cn) OpenAI-compatible chat completions endpoint. ZhipuAI's
// wire format is a strict subset of OpenAI's chat completions API (per
// original_source's locus-llms zai/ziai providers), so this package
// delegates request/response/stream translation to providers/openai and
// only supplies ZhipuAI's default base URL and provider name.
package zhipuai

import (
	"context"

	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/llm/providers/openai"
)

const defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// Provider calls ZhipuAI's OpenAI-compatible chat completions endpoint.
type Provider struct {
	delegate *openai.Provider
}

// New creates a provider. baseURL may be "" to use ZhipuAI's public API.
func New(apiKey, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{delegate: openai.New(apiKey, baseURL)}
}

func (p *Provider) Name() string { return "zhipuai" }

func init() {
	llm.RegisterFactory("zhipuai", func(cfg llm.ProviderConfig) llm.Provider {
		return New(cfg.APIKey, cfg.BaseURL)
	})
}

func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return p.delegate.Generate(ctx, req)
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	return p.delegate.Stream(ctx, req)
}
