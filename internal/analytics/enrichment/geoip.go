package enrichment

import (
	"net"

	geoip2 "github.com/oschwald/geoip2-golang"
)

const CountryUnknown = "Unknown"

// CountryResolver maps a client IP to an ISO country code.
type CountryResolver interface {
	ResolveCountry(ip string) string
}

// GeoIPResolver resolves countries from a MaxMind GeoIP2/GeoLite2 database.
type GeoIPResolver struct {
	db *geoip2.Reader
}

// NewGeoIPResolver opens the database at dbPath.
func NewGeoIPResolver(dbPath string) (*GeoIPResolver, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &GeoIPResolver{db: db}, nil
}

func (g *GeoIPResolver) Close() error {
	return g.db.Close()
}

// ResolveCountry returns CountryUnknown for unparsable, private or unmapped
// addresses.
func (g *GeoIPResolver) ResolveCountry(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsPrivate() || ip.IsLoopback() {
		return CountryUnknown
	}

	record, err := g.db.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return CountryUnknown
	}
	return record.Country.IsoCode
}

// NoopCountryResolver is used when no GeoIP database is configured.
type NoopCountryResolver struct{}

func (NoopCountryResolver) ResolveCountry(string) string { return CountryUnknown }
