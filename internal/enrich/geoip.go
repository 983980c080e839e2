package enrich

import (
	"context"
	"log/slog"
	"net"

	"github.com/oschwald/maxminddb-golang"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// geoipRecord mirrors the subset of a MaxMind City database this
// enricher projects into ECS geo fields.
type geoipRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		Names   map[string]string `maxminddb:"names"`
		ISOCode string            `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Continent struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"continent"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
		TimeZone  string  `maxminddb:"time_zone"`
	} `maxminddb:"location"`
	Postal struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"postal"`
}

// GeoIPEnricher adds source.geo / destination.geo from a local MMDB.
// A missing or unreadable database makes it a permanent no-op rather
// than an error, since GeoIP is best-effort.
type GeoIPEnricher struct {
	reader *maxminddb.Reader
	logger *slog.Logger
}

// NewGeoIPEnricher opens the database at dbPath. A failure to open is
// logged and the returned enricher is inert.
func NewGeoIPEnricher(dbPath string, logger *slog.Logger) *GeoIPEnricher {
	log := logger.With("component", "geoip-enricher")
	if dbPath == "" {
		log.Info("no GeoIP database configured, enricher disabled")
		return &GeoIPEnricher{logger: log}
	}

	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		log.Warn("GeoIP database not available", "path", dbPath, "error", err)
		return &GeoIPEnricher{logger: log}
	}

	log.Info("GeoIP database loaded", "path", dbPath)
	return &GeoIPEnricher{reader: reader, logger: log}
}

// Enrich implements Enricher.
func (g *GeoIPEnricher) Enrich(_ context.Context, evt *types.Event) {
	if g.reader == nil {
		return
	}
	if evt.Source != nil && evt.Source.IP != "" {
		evt.Source.Geo = g.lookup(evt.Source.IP)
	}
	if evt.Destination != nil && evt.Destination.IP != "" {
		evt.Destination.Geo = g.lookup(evt.Destination.IP)
	}
}

func (g *GeoIPEnricher) lookup(ip string) *types.Geo {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}

	var rec geoipRecord
	if err := g.reader.Lookup(parsed, &rec); err != nil {
		g.logger.Debug("GeoIP lookup failed", "ip", ip, "error", err)
		return nil
	}
	if rec.Country.ISOCode == "" && rec.City.Names["en"] == "" {
		return nil
	}

	return &types.Geo{
		CityName:       rec.City.Names["en"],
		CountryName:    rec.Country.Names["en"],
		CountryISOCode: rec.Country.ISOCode,
		ContinentName:  rec.Continent.Names["en"],
		Location:       &types.GeoPoint{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude},
		PostalCode:     rec.Postal.Code,
		Timezone:       rec.Location.TimeZone,
	}
}

// Close releases the underlying database handle, if any.
func (g *GeoIPEnricher) Close() error {
	if g.reader == nil {
		return nil
	}
	return g.reader.Close()
}
