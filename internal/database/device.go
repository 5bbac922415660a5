package database

import (
	"context"
	"time"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceRegistrationUpsert registers a push token for a user. The upsert is
// keyed on the token alone: a token already registered to another user is
// reassigned, covering a device that moved to a new account.
func (db Database) DeviceRegistrationUpsert(ctx context.Context, userID string, deviceToken string, platform string) (model.DeviceRegistration, error) {
	var d model.DeviceRegistration

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return d, errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err = db.Collection(CollectionDeviceRegistrations).FindOneAndUpdate(
		ctx,
		bson.M{"device_token": deviceToken},
		bson.M{
			"$set": bson.M{
				"user_id":    objID,
				"platform":   platform,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		opts,
	).Decode(&d)
	return d, errors.Wrapf(err, "error upserting DeviceRegistration for UserID: %s", userID)
}

func (db Database) DeviceRegistrationDelete(ctx context.Context, deviceToken string) error {
	res, err := db.Collection(CollectionDeviceRegistrations).DeleteOne(ctx, bson.M{"device_token": deviceToken})
	if err != nil {
		return errors.Wrap(err, "error deleting DeviceRegistration")
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(ErrNoDocumentsModified, "no DeviceRegistration deleted")
	}
	return nil
}

// DeviceRegistrationsDeleteByTokens purges tokens the push provider reported
// as permanently invalid. An empty token list is a no-op.
func (db Database) DeviceRegistrationsDeleteByTokens(ctx context.Context, deviceTokens []string) (int64, error) {
	if len(deviceTokens) == 0 {
		return 0, nil
	}
	res, err := db.Collection(CollectionDeviceRegistrations).DeleteMany(
		ctx,
		bson.M{"device_token": bson.M{"$in": deviceTokens}},
	)
	if err != nil {
		return 0, errors.Wrapf(err, "error deleting DeviceRegistrations by tokens: %v", deviceTokens)
	}
	return res.DeletedCount, nil
}

func (db Database) DeviceRegistrationsFindByUserIDs(ctx context.Context, userIDs []string) ([]model.DeviceRegistration, error) {
	objIDs, err := objectIDsFromHex(userIDs)
	if err != nil {
		return nil, err
	}
	var ds []model.DeviceRegistration
	cur, err := db.Collection(CollectionDeviceRegistrations).Find(ctx, bson.M{"user_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting cursor to find DeviceRegistrations, userIDs: %v", userIDs)
	}
	if err = cur.All(ctx, &ds); err != nil {
		return nil, errors.Wrapf(err, "error getting DeviceRegistrations from cursor, userIDs: %v", userIDs)
	}
	return ds, nil
}

func (db Database) DeviceRegistrationsFindAll(ctx context.Context) ([]model.DeviceRegistration, error) {
	var ds []model.DeviceRegistration
	cur, err := db.Collection(CollectionDeviceRegistrations).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all DeviceRegistrations")
	}
	if err = cur.All(ctx, &ds); err != nil {
		return nil, errors.Wrap(err, "error getting all DeviceRegistrations from cursor")
	}
	return ds, nil
}

func objectIDsFromHex(ids []string) ([]primitive.ObjectID, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating ObjectID from hex: %s", id)
		}
		objIDs = append(objIDs, objID)
	}
	return objIDs, nil
}
