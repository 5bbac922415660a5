package configuration

import (
	"marketnotify/internal/logger"

	"github.com/BurntSushi/toml"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"
)

type Config struct {
	ServerAddress  string
	DatabaseURI    string
	RedisAddress   string
	FCMServerKey   string
	SendGridAPIKey string
	EmailFrom      string
	InternalAPIKey string
	AuthSecretKey  jwk.Key
	LogLevel       logger.Level
	LogToFile      bool
}

type tomlConfig struct {
	ServerAddress  string `toml:"server_address"`
	DatabaseURI    string `toml:"database_uri"`
	RedisAddress   string `toml:"redis_address"`
	FCMServerKey   string `toml:"fcm_server_key"`
	SendGridAPIKey string `toml:"sendgrid_api_key"`
	EmailFrom      string `toml:"email_from"`
	InternalAPIKey string `toml:"internal_api_key"`
	AuthSecretKey  string `toml:"auth_secret_key"`
	LogLevel       string `toml:"log_level"`
	LogToFile      bool   `toml:"log_to_file"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8899"
	}

	if tc.DatabaseURI == "" {
		tc.DatabaseURI = "mongodb://localhost:27017"
	}

	if tc.RedisAddress == "" {
		tc.RedisAddress = "localhost:6379"
	}

	if tc.LogLevel == "" {
		tc.LogLevel = "INFO"
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse log_level: %s", tc.LogLevel)
	}

	if tc.InternalAPIKey == "" {
		return nil, errors.New("internal_api_key is not set")
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}
	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	// fcm_server_key and sendgrid_api_key may be empty: the delivery adapters
	// then run in unconfigured mode and report every recipient as failed.
	if tc.SendGridAPIKey != "" && tc.EmailFrom == "" {
		return nil, errors.New("email_from is not set while sendgrid_api_key is")
	}

	return &Config{
		ServerAddress:  tc.ServerAddress,
		DatabaseURI:    tc.DatabaseURI,
		RedisAddress:   tc.RedisAddress,
		FCMServerKey:   tc.FCMServerKey,
		SendGridAPIKey: tc.SendGridAPIKey,
		EmailFrom:      tc.EmailFrom,
		InternalAPIKey: tc.InternalAPIKey,
		AuthSecretKey:  authSecretKey,
		LogLevel:       logLevel,
		LogToFile:      tc.LogToFile,
	}, nil
}
