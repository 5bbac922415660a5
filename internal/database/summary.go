package database

import (
	"context"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (db Database) MarketSummaryFindByID(ctx context.Context, summaryID string) (model.MarketSummary, error) {
	var ms model.MarketSummary
	objID, err := primitive.ObjectIDFromHex(summaryID)
	if err != nil {
		return ms, errors.Wrapf(err, "error creating ObjectID from hex: %s", summaryID)
	}
	err = db.Collection(CollectionMarketSummaries).FindOne(ctx, bson.M{"_id": objID}).Decode(&ms)
	return ms, errors.Wrapf(err, "error finding MarketSummary with ID: %s", summaryID)
}
