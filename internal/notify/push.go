package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type PushSender interface {
	Push(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) error
}

// FCMSender delivers device pushes through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Push(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) error {
	if len(deviceTokens) == 0 {
		return nil
	}
	_, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: deviceTokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	return err
}

// NoopPushSender is used when FCM credentials are not configured.
type NoopPushSender struct{}

func (NoopPushSender) Push(context.Context, []string, string, string, map[string]string) error {
	return nil
}
