package database

import (
	"context"
	"time"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferenceFind returns nil without error when the user has no stored row;
// callers resolve defaults through model.ResolvePreference.
func (db Database) PreferenceFind(ctx context.Context, userID string) (*model.Preference, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}
	var p model.Preference
	err = db.Collection(CollectionPreferences).FindOne(ctx, bson.M{"user_id": objID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "error finding Preference for UserID: %s", userID)
	}
	return &p, nil
}

// PreferenceUpdate holds the partial update from PUT /preferences; nil fields
// are left untouched.
type PreferenceUpdate struct {
	WatchlistPriceAlerts     *bool    `json:"watchlist_price_alerts"`
	USAMarketSummary         *bool    `json:"usa_market_summary"`
	ASXMarketSummary         *bool    `json:"asx_market_summary"`
	EuropeMarketSummary      *bool    `json:"europe_market_summary"`
	EmailUSAMarketSummary    *bool    `json:"email_usa_market_summary"`
	EmailASXMarketSummary    *bool    `json:"email_asx_market_summary"`
	EmailEuropeMarketSummary *bool    `json:"email_europe_market_summary"`
	PriceAlertThreshold      *float64 `json:"price_alert_threshold"`
}

func (pu PreferenceUpdate) Empty() bool {
	return pu.WatchlistPriceAlerts == nil &&
		pu.USAMarketSummary == nil &&
		pu.ASXMarketSummary == nil &&
		pu.EuropeMarketSummary == nil &&
		pu.EmailUSAMarketSummary == nil &&
		pu.EmailASXMarketSummary == nil &&
		pu.EmailEuropeMarketSummary == nil &&
		pu.PriceAlertThreshold == nil
}

// PreferenceUpsert lazily creates the row on first update.
func (db Database) PreferenceUpsert(ctx context.Context, userID string, pu PreferenceUpdate) (model.Preference, error) {
	var p model.Preference

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return p, errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}

	set := bson.M{"updated_at": primitive.NewDateTimeFromTime(time.Now())}
	if pu.WatchlistPriceAlerts != nil {
		set["watchlist_price_alerts"] = *pu.WatchlistPriceAlerts
	}
	if pu.USAMarketSummary != nil {
		set["usa_market_summary"] = *pu.USAMarketSummary
	}
	if pu.ASXMarketSummary != nil {
		set["asx_market_summary"] = *pu.ASXMarketSummary
	}
	if pu.EuropeMarketSummary != nil {
		set["europe_market_summary"] = *pu.EuropeMarketSummary
	}
	if pu.EmailUSAMarketSummary != nil {
		set["email_usa_market_summary"] = *pu.EmailUSAMarketSummary
	}
	if pu.EmailASXMarketSummary != nil {
		set["email_asx_market_summary"] = *pu.EmailASXMarketSummary
	}
	if pu.EmailEuropeMarketSummary != nil {
		set["email_europe_market_summary"] = *pu.EmailEuropeMarketSummary
	}
	if pu.PriceAlertThreshold != nil {
		set["price_alert_threshold"] = *pu.PriceAlertThreshold
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err = db.Collection(CollectionPreferences).FindOneAndUpdate(
		ctx,
		bson.M{"user_id": objID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": primitive.NewDateTimeFromTime(time.Now())},
		},
		opts,
	).Decode(&p)
	return p, errors.Wrapf(err, "error upserting Preference for UserID: %s", userID)
}

func (db Database) PreferencesFindByUserIDs(ctx context.Context, userIDs []string) ([]model.Preference, error) {
	objIDs, err := objectIDsFromHex(userIDs)
	if err != nil {
		return nil, err
	}
	var ps []model.Preference
	cur, err := db.Collection(CollectionPreferences).Find(ctx, bson.M{"user_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Preferences, userIDs: %v", userIDs)
	}
	if err = cur.All(ctx, &ps); err != nil {
		return nil, errors.Wrapf(err, "error getting Preferences from cursor, userIDs: %v", userIDs)
	}
	return ps, nil
}

// PreferenceUserIDsWithFlag returns the ids of users whose stored row has the
// given boolean field set to true. Used for the email channel, where the
// default is false, so a missing row can never qualify.
func (db Database) PreferenceUserIDsWithFlag(ctx context.Context, field string) ([]string, error) {
	var ps []model.Preference
	cur, err := db.Collection(CollectionPreferences).Find(ctx, bson.M{field: true})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find Preferences with flag: %s", field)
	}
	if err = cur.All(ctx, &ps); err != nil {
		return nil, errors.Wrapf(err, "error getting Preferences from cursor with flag: %s", field)
	}
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.UserID.Hex())
	}
	return ids, nil
}
