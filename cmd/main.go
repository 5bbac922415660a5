package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"marketnotify/internal/client"
	"marketnotify/internal/configuration"
	"marketnotify/internal/database"
	"marketnotify/internal/dispatch"
	"marketnotify/internal/logger"
	"marketnotify/internal/server"

	"github.com/go-redis/redis/v9"
)

func main() {
	if err := runApp(); err != nil {
		os.Exit(1)
	}
}

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelInfo, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("marketnotify.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	appLogger.Info("Connecting to DB at", config.DatabaseURI)
	dbConn, err := database.ConnectDB(appContext, config.DatabaseURI)
	if err != nil {
		appLogger.Error("Error connecting to DB:", err)
		return err
	}
	defer func() {
		if err := dbConn.Disconnect(appContext); err != nil {
			appLogger.Error("Error disconnecting from DB:", err)
		}
	}()

	db := database.Database{Database: dbConn.Database(database.Name)}
	redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddress})

	if config.FCMServerKey == "" {
		appLogger.Warn("fcm_server_key is not set, push deliveries will be reported as failed")
	}
	if config.SendGridAPIKey == "" {
		appLogger.Warn("sendgrid_api_key is not set, email deliveries will be reported as failed")
	}

	apiClient := client.Client{
		Client:      &http.Client{Timeout: 15 * time.Second},
		FCMKey:      config.FCMServerKey,
		SendGridKey: config.SendGridAPIKey,
		Logger:      appLogger,
	}

	dispatcher := dispatch.Dispatcher{
		Store:  db,
		Push:   &dispatch.PushAdapter{Client: apiClient, Store: db, Logger: appLogger},
		Email:  &dispatch.EmailAdapter{Client: apiClient, From: config.EmailFrom, Logger: appLogger},
		Logger: appLogger,
	}

	srv := server.Server{
		DB:             db,
		Redis:          redisClient,
		Dispatcher:     dispatcher,
		Logger:         appLogger,
		AuthSecretKey:  config.AuthSecretKey,
		InternalAPIKey: config.InternalAPIKey,
	}

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	appLogger.Info("Serving on", httpSrv.Addr)
	return httpSrv.ListenAndServe()
}
