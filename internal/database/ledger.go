package database

import (
	"context"
	"time"

	"marketnotify/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SentNotificationExists is a point lookup backed by the unique ledger index;
// it runs once per candidate recipient per dispatch.
func (db Database) SentNotificationExists(ctx context.Context, userID string, notificationType string, referenceID string, sentDate string) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}
	err = db.Collection(CollectionSentNotifications).FindOne(ctx, bson.M{
		"user_id":           objID,
		"notification_type": notificationType,
		"reference_id":      referenceID,
		"sent_date":         sentDate,
	}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, errors.Wrapf(err, "error finding SentNotification for UserID: %s, type: %s, reference: %s, date: %s",
			userID, notificationType, referenceID, sentDate)
	}
	return true, nil
}

// SentNotificationRecord inserts a ledger entry. A duplicate-key error is a
// silent no-op: two dispatch attempts racing on the same notification must not
// surface an error, and the loser must not double-send tomorrow either.
func (db Database) SentNotificationRecord(ctx context.Context, userID string, notificationType string, referenceID string, sentDate string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errors.Wrapf(err, "error creating ObjectID from hex: %s", userID)
	}
	_, err = db.Collection(CollectionSentNotifications).InsertOne(ctx, model.SentNotification{
		UserID:           objID,
		NotificationType: notificationType,
		ReferenceID:      referenceID,
		SentDate:         sentDate,
		CreatedAt:        primitive.NewDateTimeFromTime(time.Now()),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return errors.Wrapf(err, "error inserting SentNotification for UserID: %s, type: %s, reference: %s, date: %s",
			userID, notificationType, referenceID, sentDate)
	}
	return nil
}
