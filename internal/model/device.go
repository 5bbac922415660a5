package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	PlatformIOS = "ios"
	PlatformWeb = "web"
)

func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformWeb
}

// DeviceRegistration maps a push token to the user currently holding it. The
// token is globally unique; re-registering an existing token moves it to the
// registering user.
type DeviceRegistration struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	DeviceToken string             `bson:"device_token" json:"device_token"`
	Platform    string             `bson:"platform" json:"platform"`
	CreatedAt   primitive.DateTime `bson:"created_at" json:"-"`
	UpdatedAt   primitive.DateTime `bson:"updated_at" json:"updated_at"`
}
