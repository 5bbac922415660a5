package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// WatchlistItem is owned by the dashboard's watchlist feature; read-only here.
type WatchlistItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Ticker    string             `bson:"ticker"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

// WatchlistTarget is the derived working set the price-evaluation job consults:
// watchlist membership joined to device registrations and resolved preferences.
type WatchlistTarget struct {
	UserID      string  `json:"user_id"`
	Ticker      string  `json:"ticker"`
	Threshold   float64 `json:"threshold"`
	DeviceToken string  `json:"device_token"`
	Platform    string  `json:"platform"`
}
