package service

import (
	"regexp"
	"strings"

	"github.com/ifuryst/affpress/internal/config"
	"github.com/ifuryst/affpress/pkg/util"
)

var affiliateTokenPattern = regexp.MustCompile(`(?i)\b(tag|affiliate|aff_id|ref|utm_source)=`)

// PublishPolicy decides whether a body qualifies for publication. It performs no I/O.
type PublishPolicy struct {
	demo    bool
	domains []string
}

func NewPublishPolicy(cfg *config.PolicyConfig) *PublishPolicy {
	var domains []string
	for _, entry := range cfg.AffiliateDomains {
		// entries may arrive comma separated from an environment variable
		for _, d := range util.ParseList(entry) {
			domains = append(domains, strings.ToLower(d))
		}
	}

	return &PublishPolicy{
		demo:    cfg.DemoMode(),
		domains: domains,
	}
}

// DemoMode reports whether every non-empty body qualifies.
func (p *PublishPolicy) DemoMode() bool {
	return p.demo
}

// Qualifies reports whether body carries an affiliate marker.
func (p *PublishPolicy) Qualifies(body string) bool {
	if strings.TrimSpace(body) == "" {
		return false
	}
	if p.demo {
		return true
	}

	lower := strings.ToLower(body)
	for _, d := range p.domains {
		if strings.Contains(lower, d) {
			return true
		}
	}

	return affiliateTokenPattern.MatchString(body)
}
