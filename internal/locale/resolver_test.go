package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(domain.LocaleConfig{
		Default:   "en-US",
		Supported: []string{"en-US", "fr-FR", "es-ES"},
	})
	require.NoError(t, err)
	return r
}

func TestNewResolver_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.LocaleConfig
	}{
		{"empty", domain.LocaleConfig{Default: "en-US"}},
		{"default not supported", domain.LocaleConfig{Default: "de-DE", Supported: []string{"en-US"}}},
		{"missing region", domain.LocaleConfig{Default: "en", Supported: []string{"en"}}},
		{"bad tag", domain.LocaleConfig{Default: "en-US", Supported: []string{"en-US", "not a tag"}}},
		{"duplicate", domain.LocaleConfig{Default: "en-US", Supported: []string{"en-US", "en-us"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name     string
		lang     string
		country  string
		code     string
		country2 string
		consent  string
		weight   string
	}{
		{"unspecified", "", "", "en-US", "US", domain.ConsentHIPAA, UnitPound},
		{"exact", "fr", "FR", "fr-FR", "FR", domain.ConsentGDPR, UnitKilogram},
		{"exact full tag", "es-ES", "", "es-ES", "ES", domain.ConsentGDPR, UnitKilogram},
		{"regional variant", "fr", "BE", "fr-FR", "BE", domain.ConsentGDPR, UnitKilogram},
		{"unsupported language", "pt", "BR", "en-US", "BR", domain.ConsentLGPD, UnitKilogram},
		{"country only", "", "es", "es-ES", "ES", domain.ConsentGDPR, UnitKilogram},
		{"country only unsupported", "", "JP", "en-US", "JP", domain.ConsentStandard, UnitKilogram},
		{"english in britain", "en", "GB", "en-US", "GB", domain.ConsentGDPR, UnitKilogram},
		{"spanish in the US", "es", "US", "es-ES", "US", domain.ConsentHIPAA, UnitPound},
		{"french in the US", "fr", "US", "fr-FR", "US", domain.ConsentHIPAA, UnitPound},
		{"garbage language", "!!", "", "en-US", "US", domain.ConsentHIPAA, UnitPound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := r.Resolve(tt.lang, tt.country)
			assert.Equal(t, tt.code, loc.Code)
			assert.Equal(t, tt.country2, loc.Country)
			assert.Equal(t, tt.consent, loc.Rules.ConsentVariant)
			assert.Equal(t, tt.weight, loc.Rules.WeightUnit)
		})
	}
}

func TestResolve_DefaultFallbackIsConfigurable(t *testing.T) {
	r, err := NewResolver(domain.LocaleConfig{Default: "fr-FR", Supported: []string{"en-US", "fr-FR"}})
	require.NoError(t, err)

	loc := r.Resolve("ja", "")
	assert.Equal(t, "fr-FR", loc.Code)
	assert.Equal(t, "fr", loc.Language)
	assert.Equal(t, "FR", loc.Country)
	assert.Equal(t, UnitCelsius, loc.Rules.TemperatureUnit)
}

func TestResolveAcceptLanguage(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		header  string
		code    string
		country string
	}{
		{"fr-FR,fr;q=0.9,en;q=0.8", "fr-FR", "FR"},
		{"es-MX,es;q=0.9", "es-ES", "MX"},
		{"ja,ko;q=0.5", "en-US", "US"},
		{"", "en-US", "US"},
		{"en", "en-US", "US"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			loc := r.ResolveAcceptLanguage(tt.header)
			assert.Equal(t, tt.code, loc.Code)
			assert.Equal(t, tt.country, loc.Country)
		})
	}
}

func TestRulesFor(t *testing.T) {
	assert.Equal(t, domain.RegionRules{WeightUnit: UnitPound, TemperatureUnit: UnitFahrenheit, ConsentVariant: domain.ConsentHIPAA}, RulesFor("us"))
	assert.Equal(t, domain.ConsentGDPR, RulesFor("DE").ConsentVariant)
	assert.Equal(t, domain.ConsentStandard, RulesFor("CA").ConsentVariant)
	assert.Equal(t, domain.ConsentStandard, RulesFor("").ConsentVariant)
}

func TestSupported_ReturnsCopy(t *testing.T) {
	r := newTestResolver(t)
	s := r.Supported()
	s[0] = "xx-XX"
	assert.Equal(t, []string{"en-US", "fr-FR", "es-ES"}, r.Supported())
}
