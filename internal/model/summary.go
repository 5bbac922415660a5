package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// MarketSummary is produced by the market-data pipeline; this service reads it
// to build notification content.
type MarketSummary struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SummaryType string             `bson:"summary_type"`
	Content     string             `bson:"content"`
	CreatedAt   primitive.DateTime `bson:"created_at"`
}
