package enrichment

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const (
	SourceDirect   = "direct"
	SourceSearch   = "search"
	SourceSocial   = "social"
	SourceReferral = "referral"
)

var searchEngines = []string{
	"google.", "bing.com", "yahoo.com", "duckduckgo.com",
	"baidu.com", "yandex.", "ecosia.org",
}

var socialNetworks = []string{
	"facebook.com", "twitter.com", "x.com", "t.co", "instagram.com",
	"linkedin.com", "lnkd.in", "pinterest.com", "reddit.com",
	"tiktok.com", "youtube.com", "threads.net", "mastodon.social",
}

// ClassifySource maps a Referer header to a traffic source. A missing or
// unparsable referer counts as direct traffic.
func ClassifySource(referer string) string {
	if referer == "" {
		return SourceDirect
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Hostname() == "" {
		return SourceDirect
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if lo.SomeBy(searchEngines, func(d string) bool { return hostMatches(host, d) }) {
		return SourceSearch
	}
	if lo.SomeBy(socialNetworks, func(d string) bool { return hostMatches(host, d) }) {
		return SourceSocial
	}
	return SourceReferral
}

// hostMatches matches host against a registered domain or, for entries ending
// in a dot, any domain with that label prefix (google.com, google.de, ...).
func hostMatches(host, domain string) bool {
	if strings.HasSuffix(domain, ".") {
		return strings.HasPrefix(host, domain) || strings.Contains(host, "."+domain)
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
