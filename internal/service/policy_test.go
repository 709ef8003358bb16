package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ifuryst/affpress/internal/config"
)

func strictPolicy() *PublishPolicy {
	return NewPublishPolicy(&config.PolicyConfig{
		Mode:             config.PolicyModeStrict,
		AffiliateDomains: config.DefaultAffiliateDomains,
	})
}

func TestPolicyQualifies(t *testing.T) {
	p := strictPolicy()

	cases := []struct {
		body string
		want bool
	}{
		{"Buy now: https://amazon.com/dp/X?tag=abc", true},
		{"see AMAZON.COM for deals", true},
		{"offer at https://hop.ClickBank.net/xyz", true},
		{"shop https://example.org/p?tag=me-20", true},
		{"shop https://example.org/p?Affiliate=42", true},
		{"https://example.org/p?aff_id=7", true},
		{"https://example.org/p?ref=newsletter", true},
		{"https://example.org/?UTM_SOURCE=mail", true},
		{"Some tips with no links", false},
		{"hashtag=nope is not a token", false},
		{"prefer=dark", false},
		{"tag = spaced", false},
		{"", false},
		{"   \n\t", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Qualifies(tc.body), "body %q", tc.body)
	}
}

func TestPolicyCustomDomains(t *testing.T) {
	p := NewPublishPolicy(&config.PolicyConfig{
		Mode:             config.PolicyModeStrict,
		AffiliateDomains: []string{"Partner.Example, awin1.com"},
	})

	assert.True(t, p.Qualifies("go to https://partner.example/item"))
	assert.True(t, p.Qualifies("go to https://www.AWIN1.com/cread.php"))
	assert.False(t, p.Qualifies("go to https://amazon.com"))
}

func TestPolicyDemoMode(t *testing.T) {
	p := NewPublishPolicy(&config.PolicyConfig{Mode: "DEMO"})

	assert.True(t, p.DemoMode())
	assert.True(t, p.Qualifies("no links at all"))
	assert.False(t, p.Qualifies(""))
}
