package dispatch

import "marketnotify/internal/model"

const (
	MarketUSA    = "usa"
	MarketASX    = "asx"
	MarketEurope = "europe"
)

// Market maps a market identifier to its display name and the preference
// accessors for each channel. Unknown identifiers are rejected at the
// boundary; nothing falls through on a bad string.
type Market struct {
	ID             string
	Name           string
	EmailPrefField string
	PushEnabled    func(model.ResolvedPreference) bool
	EmailEnabled   func(model.ResolvedPreference) bool
}

var markets = map[string]Market{
	MarketUSA: {
		ID:             MarketUSA,
		Name:           "US",
		EmailPrefField: "email_usa_market_summary",
		PushEnabled:    func(p model.ResolvedPreference) bool { return p.USAMarketSummary },
		EmailEnabled:   func(p model.ResolvedPreference) bool { return p.EmailUSAMarketSummary },
	},
	MarketASX: {
		ID:             MarketASX,
		Name:           "ASX",
		EmailPrefField: "email_asx_market_summary",
		PushEnabled:    func(p model.ResolvedPreference) bool { return p.ASXMarketSummary },
		EmailEnabled:   func(p model.ResolvedPreference) bool { return p.EmailASXMarketSummary },
	},
	MarketEurope: {
		ID:             MarketEurope,
		Name:           "European",
		EmailPrefField: "email_europe_market_summary",
		PushEnabled:    func(p model.ResolvedPreference) bool { return p.EuropeMarketSummary },
		EmailEnabled:   func(p model.ResolvedPreference) bool { return p.EmailEuropeMarketSummary },
	},
}

func MarketByID(id string) (Market, bool) {
	m, ok := markets[id]
	return m, ok
}
