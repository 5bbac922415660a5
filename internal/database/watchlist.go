package database

import (
	"context"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

func (db Database) WatchlistFindAll(ctx context.Context) ([]model.WatchlistItem, error) {
	var ws []model.WatchlistItem
	cur, err := db.Collection(CollectionWatchlists).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all WatchlistItems")
	}
	if err = cur.All(ctx, &ws); err != nil {
		return nil, errors.Wrap(err, "error getting all WatchlistItems from cursor")
	}
	return ws, nil
}
