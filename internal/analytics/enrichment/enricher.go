// Package enrichment derives click attributes from request metadata.
package enrichment

import (
	"net"

	"linkboard/internal/domain"
)

// RequestMeta is the request information captured when a redirect is served.
type RequestMeta struct {
	UserAgent string
	Referer   string
	ClientIP  string
}

type Enricher struct {
	countries CountryResolver
}

// NewEnricher creates an Enricher. A nil resolver reports every country as unknown.
func NewEnricher(countries CountryResolver) *Enricher {
	if countries == nil {
		countries = NoopCountryResolver{}
	}
	return &Enricher{countries: countries}
}

func (e *Enricher) Enrich(meta RequestMeta) domain.ClickAttributes {
	return domain.ClickAttributes{
		DeviceType:    DetectDevice(meta.UserAgent),
		TrafficSource: ClassifySource(meta.Referer),
		CountryCode:   e.countries.ResolveCountry(stripPort(meta.ClientIP)),
	}
}

// stripPort accepts both "ip" and "ip:port" forms of RemoteAddr.
func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
