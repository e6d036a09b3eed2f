// Package locale resolves a participant's language and country to one of the
// supported locales together with its regional display rules.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/trialiq-server/internal/domain"
)

// Unit symbols used in regional rules.
const (
	UnitKilogram   = "kg"
	UnitPound      = "lb"
	UnitCelsius    = "°C"
	UnitFahrenheit = "°F"
)

var gdprCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true, "IS": true, "LI": true, "NO": true,
	"GB": true,
}

// Resolver maps (language, country) requests onto the configured locales.
type Resolver struct {
	tags       []language.Tag
	codes      []string
	exact      map[string]int
	matcher    language.Matcher
	defaultIdx int
}

// NewResolver builds a resolver over cfg.Supported. The default locale must
// be one of the supported ones.
func NewResolver(cfg domain.LocaleConfig) (*Resolver, error) {
	if len(cfg.Supported) == 0 {
		return nil, fmt.Errorf("no supported locales configured")
	}

	r := &Resolver{exact: make(map[string]int, len(cfg.Supported)), defaultIdx: -1}
	for _, code := range cfg.Supported {
		tag, err := language.Parse(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("parse supported locale %q: %w", code, err)
		}
		if _, conf := tag.Region(); conf != language.Exact {
			return nil, fmt.Errorf("supported locale %q must include a region", code)
		}
		canonical := tag.String()
		if _, dup := r.exact[canonical]; dup {
			return nil, fmt.Errorf("duplicate supported locale %q", code)
		}
		r.exact[canonical] = len(r.tags)
		r.tags = append(r.tags, tag)
		r.codes = append(r.codes, canonical)
	}

	defaultTag, err := language.Parse(strings.TrimSpace(cfg.Default))
	if err != nil {
		return nil, fmt.Errorf("parse default locale %q: %w", cfg.Default, err)
	}
	idx, ok := r.exact[defaultTag.String()]
	if !ok {
		return nil, fmt.Errorf("default locale %q is not in the supported list", cfg.Default)
	}
	r.defaultIdx = idx
	r.matcher = language.NewMatcher(r.tags)
	return r, nil
}

// Supported returns the canonical codes of all supported locales.
func (r *Resolver) Supported() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Default returns the fallback locale.
func (r *Resolver) Default() domain.Locale {
	return r.localeFor(r.defaultIdx, "")
}

// Resolve picks the supported locale for the requested language and country.
// An exact supported match wins, then the closest supported language with
// better than low confidence, then the default. Either input may be empty.
func (r *Resolver) Resolve(lang, country string) domain.Locale {
	lang = strings.TrimSpace(lang)
	region, hasRegion := parseCountry(country)

	if lang == "" {
		if !hasRegion {
			return r.Default()
		}
		for i, tag := range r.tags {
			if tr, _ := tag.Region(); tr == region {
				return r.localeFor(i, region.String())
			}
		}
		return r.localeFor(r.defaultIdx, region.String())
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return r.localeFor(r.defaultIdx, regionString(region, hasRegion))
	}
	if hasRegion {
		if composed, err := language.Compose(tag, region); err == nil {
			tag = composed
		}
	} else if tr, conf := tag.Region(); conf == language.Exact {
		region, hasRegion = tr, true
	}

	return r.localeFor(r.match(tag), regionString(region, hasRegion))
}

// ResolveAcceptLanguage resolves an HTTP Accept-Language header. The region of
// the most preferred tag, when given, becomes the locale country.
func (r *Resolver) ResolveAcceptLanguage(header string) domain.Locale {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return r.Default()
	}

	country := ""
	if tr, conf := tags[0].Region(); conf == language.Exact {
		country = tr.String()
	}
	for _, tag := range tags {
		if idx, ok := r.exact[tag.String()]; ok {
			return r.localeFor(idx, country)
		}
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf > language.Low {
		return r.localeFor(idx, country)
	}
	return r.localeFor(r.defaultIdx, country)
}

func (r *Resolver) match(tag language.Tag) int {
	if idx, ok := r.exact[tag.String()]; ok {
		return idx
	}
	_, idx, conf := r.matcher.Match(tag)
	if conf > language.Low {
		return idx
	}
	return r.defaultIdx
}

func (r *Resolver) localeFor(idx int, country string) domain.Locale {
	tag := r.tags[idx]
	base, _ := tag.Base()
	if country == "" {
		region, _ := tag.Region()
		country = region.String()
	}
	return domain.Locale{
		Code:     r.codes[idx],
		Language: base.String(),
		Country:  country,
		Rules:    RulesFor(country),
	}
}

// RulesFor returns the display rules for a country code.
func RulesFor(country string) domain.RegionRules {
	country = strings.ToUpper(country)
	rules := domain.RegionRules{
		WeightUnit:      UnitKilogram,
		TemperatureUnit: UnitCelsius,
		ConsentVariant:  domain.ConsentStandard,
	}
	switch {
	case country == "US":
		rules.WeightUnit = UnitPound
		rules.TemperatureUnit = UnitFahrenheit
		rules.ConsentVariant = domain.ConsentHIPAA
	case country == "BR":
		rules.ConsentVariant = domain.ConsentLGPD
	case gdprCountries[country]:
		rules.ConsentVariant = domain.ConsentGDPR
	}
	return rules
}

func parseCountry(country string) (language.Region, bool) {
	country = strings.TrimSpace(country)
	if country == "" {
		return language.Region{}, false
	}
	region, err := language.ParseRegion(country)
	if err != nil || !region.IsCountry() {
		return language.Region{}, false
	}
	return region, true
}

func regionString(region language.Region, ok bool) string {
	if !ok {
		return ""
	}
	return region.String()
}
