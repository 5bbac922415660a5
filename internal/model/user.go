package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const SubscriptionStatusActive = "active"

// User is owned by the account/auth layer; this service only reads it.
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Email              string             `bson:"email"`
	FirstName          string             `bson:"first_name"`
	SubscriptionStatus string             `bson:"subscription_status"`
	SessionTokens      []SessionToken     `bson:"session_tokens"`
	CreatedAt          primitive.DateTime `bson:"created_at"`
	UpdatedAt          primitive.DateTime `bson:"updated_at"`
}

// SessionToken holds the bcrypt hash of a session JWT issued by the auth layer,
// keyed by the token's jti claim.
type SessionToken struct {
	TokenID    string             `bson:"token_id"`
	Token      []byte             `bson:"token"`
	Expiration primitive.DateTime `bson:"expiration"`
	CreatedAt  primitive.DateTime `bson:"created_at"`
}
