package model

import "testing"

func TestResolvePreferenceDefaults(t *testing.T) {
	rp := ResolvePreference("u1", nil)
	if !rp.WatchlistPriceAlerts {
		t.Errorf("WatchlistPriceAlerts default false, want true")
	}
	if !rp.USAMarketSummary || !rp.ASXMarketSummary || !rp.EuropeMarketSummary {
		t.Errorf("summary push defaults %+v, want all true", rp)
	}
	if rp.EmailUSAMarketSummary || rp.EmailASXMarketSummary || rp.EmailEuropeMarketSummary {
		t.Errorf("email defaults %+v, want all false", rp)
	}
	if rp.PriceAlertThreshold != DefaultPriceAlertThreshold {
		t.Errorf("threshold default %v, want %v", rp.PriceAlertThreshold, DefaultPriceAlertThreshold)
	}
	if rp.UserID != "u1" {
		t.Errorf("UserID %q, want u1", rp.UserID)
	}
}

func TestResolvePreferencePartialRow(t *testing.T) {
	no := false
	threshold := 0.10
	rp := ResolvePreference("u1", &Preference{
		WatchlistPriceAlerts: &no,
		PriceAlertThreshold:  &threshold,
	})
	if rp.WatchlistPriceAlerts {
		t.Errorf("stored false not applied")
	}
	if rp.PriceAlertThreshold != 0.10 {
		t.Errorf("threshold %v, want 0.10", rp.PriceAlertThreshold)
	}
	// Unset fields on a stored row still fall back to the defaults.
	if !rp.USAMarketSummary {
		t.Errorf("unset USAMarketSummary resolved false, want default true")
	}
	if rp.EmailUSAMarketSummary {
		t.Errorf("unset EmailUSAMarketSummary resolved true, want default false")
	}
}

func TestValidPlatform(t *testing.T) {
	tests := []struct {
		platform string
		want     bool
	}{
		{PlatformIOS, true},
		{PlatformWeb, true},
		{"android", false},
		{"IOS", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidPlatform(tt.platform); got != tt.want {
			t.Errorf("ValidPlatform(%q) = %v, want %v", tt.platform, got, tt.want)
		}
	}
}
