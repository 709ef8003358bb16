package generator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const FallbackProvider = "fallback"

// FallbackGenerator returns a deterministic template that carries an example
// affiliate link. It keeps the service usable without a provider.
type FallbackGenerator struct {
	tag string
}

func NewFallbackGenerator(affiliateTag string) *FallbackGenerator {
	if affiliateTag == "" {
		affiliateTag = "demo-tag"
	}
	return &FallbackGenerator{tag: affiliateTag}
}

func (f *FallbackGenerator) Generate(_ context.Context, prompt string) (Generation, bool) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n\n[Example content. Configure a generator API key for real articles.]\n")
	fmt.Fprintf(&b, "Buy here: https://amazon.com/dp/EXAMPLE?tag=%s\n", url.QueryEscape(f.tag))

	return Generation{
		Text:     b.String(),
		Provider: FallbackProvider,
		Fallback: true,
	}, true
}
