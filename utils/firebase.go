package utils

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/logger"
)

// InitFirebase builds an FCM client from the service account file. A nil
// client with a nil error means push is not configured.
func InitFirebase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*messaging.Client, error) {
	credentialsPath := cfg.FCMCredentialsPath
	if credentialsPath == "" {
		credentialsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credentialsPath == "" || cfg.FCMProjectID == "" {
		log.Info("FCM not configured, push notifications disabled")
		return nil, nil
	}

	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file not found: %s", credentialsPath)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FCMProjectID}, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("firebase app initialization failed: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("FCM client initialization failed: %w", err)
	}

	log.Infof("FCM client initialized for project %s", cfg.FCMProjectID)
	return client, nil
}
