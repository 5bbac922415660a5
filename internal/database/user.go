package database

import (
	"context"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (db Database) UserFindByID(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return u, errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}
	err = db.Collection(CollectionUsers).FindOne(ctx, bson.M{"_id": objID}).Decode(&u)
	return u, errors.Wrapf(err, "error finding User with ID: %s", userID)
}

// UsersFindActiveByIDs narrows a candidate id set to users whose subscription
// gates them into the email channel.
func (db Database) UsersFindActiveByIDs(ctx context.Context, userIDs []string) ([]model.User, error) {
	objIDs, err := objectIDsFromHex(userIDs)
	if err != nil {
		return nil, err
	}
	var us []model.User
	cur, err := db.Collection(CollectionUsers).Find(ctx, bson.M{
		"_id":                 bson.M{"$in": objIDs},
		"subscription_status": model.SubscriptionStatusActive,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find active Users, userIDs: %v", userIDs)
	}
	if err = cur.All(ctx, &us); err != nil {
		return nil, errors.Wrapf(err, "error getting active Users from cursor, userIDs: %v", userIDs)
	}
	return us, nil
}
