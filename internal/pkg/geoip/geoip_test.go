package geoip

import (
	"errors"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
)

type fakeLookup struct {
	record *geoip2.Country
	err    error
	calls  int
}

func (f *fakeLookup) Country(net.IP) (*geoip2.Country, error) {
	f.calls++
	return f.record, f.err
}

func countryRecord(iso string, names map[string]string) *geoip2.Country {
	rec := &geoip2.Country{}
	rec.Country.IsoCode = iso
	rec.Country.Names = names
	return rec
}

func TestLookupCountryName(t *testing.T) {
	t.Run("english name from database", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("AT", map[string]string{"en": "Austria", "de": "Österreich"})}
		assert.Equal(t, "Austria", LookupCountryName(lookup, "81.10.0.1"))
	})

	t.Run("falls back to iso code", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("AT", nil)}
		assert.Equal(t, "Austria", LookupCountryName(lookup, "81.10.0.1"))
	})

	t.Run("lookup error", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("not found")}
		assert.Equal(t, Unknown, LookupCountryName(lookup, "81.10.0.1"))
	})

	t.Run("empty record", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("", nil)}
		assert.Equal(t, Unknown, LookupCountryName(lookup, "81.10.0.1"))
	})

	t.Run("unknown iso code", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("ZZ", nil)}
		assert.Equal(t, Unknown, LookupCountryName(lookup, "81.10.0.1"))
	})

	t.Run("private and reserved addresses skip the lookup", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("AT", map[string]string{"en": "Austria"})}
		for _, ip := range []string{"127.0.0.1", "10.0.0.7", "192.168.1.1", "::1", "0.0.0.0", "fe80::1"} {
			assert.Equal(t, Unknown, LookupCountryName(lookup, ip), ip)
		}
		assert.Zero(t, lookup.calls)
	})

	t.Run("garbage address", func(t *testing.T) {
		lookup := &fakeLookup{record: countryRecord("AT", map[string]string{"en": "Austria"})}
		assert.Equal(t, Unknown, LookupCountryName(lookup, "not-an-ip"))
		assert.Equal(t, Unknown, LookupCountryName(lookup, ""))
	})

	t.Run("no database", func(t *testing.T) {
		assert.Equal(t, Unknown, LookupCountryName(nil, "81.10.0.1"))
	})
}
