package dispatch

import (
	"context"

	"marketnotify/internal/model"
)

// resolvePreferences loads stored rows for the given users and resolves the
// documented defaults for everyone, including users with no row at all.
func (d Dispatcher) resolvePreferences(ctx context.Context, userIDs []string) (map[string]model.ResolvedPreference, error) {
	stored, err := d.Store.PreferencesFindByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*model.Preference, len(stored))
	for i := range stored {
		byUser[stored[i].UserID.Hex()] = &stored[i]
	}
	resolved := make(map[string]model.ResolvedPreference, len(userIDs))
	for _, id := range userIDs {
		resolved[id] = model.ResolvePreference(id, byUser[id])
	}
	return resolved, nil
}

// ResolveWatchlistTargets computes the working set the price-evaluation job
// consults: watchlist membership joined to device registrations and resolved
// preferences, one row per (watchlist entry, device).
func (d Dispatcher) ResolveWatchlistTargets(ctx context.Context) ([]model.WatchlistTarget, error) {
	items, err := d.Store.WatchlistFindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []model.WatchlistTarget{}, nil
	}

	seen := make(map[string]bool)
	var userIDs []string
	for _, it := range items {
		id := it.UserID.Hex()
		if !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}

	prefs, err := d.resolvePreferences(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	var alertUserIDs []string
	for _, id := range userIDs {
		if prefs[id].WatchlistPriceAlerts {
			alertUserIDs = append(alertUserIDs, id)
		}
	}
	if len(alertUserIDs) == 0 {
		return []model.WatchlistTarget{}, nil
	}

	devices, err := d.Store.DeviceRegistrationsFindByUserIDs(ctx, alertUserIDs)
	if err != nil {
		return nil, err
	}
	devicesByUser := make(map[string][]model.DeviceRegistration)
	for _, dev := range devices {
		id := dev.UserID.Hex()
		devicesByUser[id] = append(devicesByUser[id], dev)
	}

	targets := []model.WatchlistTarget{}
	for _, it := range items {
		id := it.UserID.Hex()
		for _, dev := range devicesByUser[id] {
			targets = append(targets, model.WatchlistTarget{
				UserID:      id,
				Ticker:      it.Ticker,
				Threshold:   prefs[id].PriceAlertThreshold,
				DeviceToken: dev.DeviceToken,
				Platform:    dev.Platform,
			})
		}
	}
	return targets, nil
}
