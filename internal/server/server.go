package server

import (
	"marketnotify/internal/database"
	"marketnotify/internal/dispatch"

	"github.com/go-redis/redis/v9"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

type Server struct {
	DB             database.Database
	Redis          *redis.Client
	Dispatcher     dispatch.Dispatcher
	Logger         logger
	AuthSecretKey  jwk.Key
	InternalAPIKey string
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
	Tracef(format string, v ...any)
}
