package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	NotificationTypePriceAlert    = "price_alert"
	NotificationTypeMarketSummary = "market_summary"
	NotificationTypeEmail         = "email"
)

// SentNotification is the delivery ledger entry: notification of a given type
// and reference id was sent to a user on a calendar date (UTC). Append-only;
// the unique index over (user_id, notification_type, reference_id, sent_date)
// is the subsystem's entire idempotency contract.
type SentNotification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	UserID           primitive.ObjectID `bson:"user_id"`
	NotificationType string             `bson:"notification_type"`
	ReferenceID      string             `bson:"reference_id"`
	SentDate         string             `bson:"sent_date"`
	CreatedAt        primitive.DateTime `bson:"created_at"`
}
