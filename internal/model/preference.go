package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const DefaultPriceAlertThreshold = 0.05

// Preference is the stored per-user preference row. Fields are pointers: a nil
// field (or a missing row entirely) means the documented default applies.
type Preference struct {
	ID                       primitive.ObjectID `bson:"_id,omitempty"`
	UserID                   primitive.ObjectID `bson:"user_id"`
	WatchlistPriceAlerts     *bool              `bson:"watchlist_price_alerts,omitempty"`
	USAMarketSummary         *bool              `bson:"usa_market_summary,omitempty"`
	ASXMarketSummary         *bool              `bson:"asx_market_summary,omitempty"`
	EuropeMarketSummary      *bool              `bson:"europe_market_summary,omitempty"`
	EmailUSAMarketSummary    *bool              `bson:"email_usa_market_summary,omitempty"`
	EmailASXMarketSummary    *bool              `bson:"email_asx_market_summary,omitempty"`
	EmailEuropeMarketSummary *bool              `bson:"email_europe_market_summary,omitempty"`
	PriceAlertThreshold      *float64           `bson:"price_alert_threshold,omitempty"`
	CreatedAt                primitive.DateTime `bson:"created_at"`
	UpdatedAt                primitive.DateTime `bson:"updated_at"`
}

// ResolvedPreference always has every field populated. Downstream code never
// re-implements the default-fallback rule.
type ResolvedPreference struct {
	UserID                   string  `json:"user_id"`
	WatchlistPriceAlerts     bool    `json:"watchlist_price_alerts"`
	USAMarketSummary         bool    `json:"usa_market_summary"`
	ASXMarketSummary         bool    `json:"asx_market_summary"`
	EuropeMarketSummary      bool    `json:"europe_market_summary"`
	EmailUSAMarketSummary    bool    `json:"email_usa_market_summary"`
	EmailASXMarketSummary    bool    `json:"email_asx_market_summary"`
	EmailEuropeMarketSummary bool    `json:"email_europe_market_summary"`
	PriceAlertThreshold      float64 `json:"price_alert_threshold"`
}

// ResolvePreference applies the documented defaults: summary and alert flags
// true, email flags false, threshold 0.05. p may be nil (no stored row).
func ResolvePreference(userID string, p *Preference) ResolvedPreference {
	rp := ResolvedPreference{
		UserID:                   userID,
		WatchlistPriceAlerts:     true,
		USAMarketSummary:         true,
		ASXMarketSummary:         true,
		EuropeMarketSummary:      true,
		EmailUSAMarketSummary:    false,
		EmailASXMarketSummary:    false,
		EmailEuropeMarketSummary: false,
		PriceAlertThreshold:      DefaultPriceAlertThreshold,
	}
	if p == nil {
		return rp
	}
	if p.WatchlistPriceAlerts != nil {
		rp.WatchlistPriceAlerts = *p.WatchlistPriceAlerts
	}
	if p.USAMarketSummary != nil {
		rp.USAMarketSummary = *p.USAMarketSummary
	}
	if p.ASXMarketSummary != nil {
		rp.ASXMarketSummary = *p.ASXMarketSummary
	}
	if p.EuropeMarketSummary != nil {
		rp.EuropeMarketSummary = *p.EuropeMarketSummary
	}
	if p.EmailUSAMarketSummary != nil {
		rp.EmailUSAMarketSummary = *p.EmailUSAMarketSummary
	}
	if p.EmailASXMarketSummary != nil {
		rp.EmailASXMarketSummary = *p.EmailASXMarketSummary
	}
	if p.EmailEuropeMarketSummary != nil {
		rp.EmailEuropeMarketSummary = *p.EmailEuropeMarketSummary
	}
	if p.PriceAlertThreshold != nil {
		rp.PriceAlertThreshold = *p.PriceAlertThreshold
	}
	return rp
}
