package domain

// Consent text variants selected by region.
const (
	ConsentStandard = "standard"
	ConsentGDPR     = "gdpr"
	ConsentHIPAA    = "hipaa"
	ConsentLGPD     = "lgpd"
)

// RegionRules are the region-specific display rules for a locale.
type RegionRules struct {
	WeightUnit      string `json:"weight_unit"`
	TemperatureUnit string `json:"temperature_unit"`
	ConsentVariant  string `json:"consent_variant"`
}

// Locale is a canonical language+region identifier with its display rules.
type Locale struct {
	Code     string      `json:"code"`
	Language string      `json:"language"`
	Country  string      `json:"country"`
	Rules    RegionRules `json:"rules"`
}
