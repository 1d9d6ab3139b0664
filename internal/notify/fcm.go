package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/DeafMist/trip-planner/internal/logger"
)

// Message is one push notification addressed to a device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers push notifications.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM sends notifications through Firebase Cloud Messaging.
type FCM struct {
	client messagingClient
	log    *slog.Logger
}

// NewFCM initializes the Firebase app. credentialsFile may be empty to use
// application default credentials.
func NewFCM(ctx context.Context, projectID, credentialsFile string, log *slog.Logger) (*FCM, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCM{client: client, log: logger.OrDiscard(log)}, nil
}

// Send delivers msg and returns the provider message id.
func (f *FCM) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", errors.New("notification token is empty")
	}
	id, err := f.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}
	f.log.Debug("notification sent", slog.String("message_id", id))
	return id, nil
}

// ErrDisabled is returned by Noop. Callers count it as a skipped
// notification, not a failed one.
var ErrDisabled = errors.New("notifications disabled")

// Noop drops every message. Used when no messaging credentials are
// configured.
type Noop struct {
	Log *slog.Logger
}

// Send logs and discards msg.
func (n Noop) Send(_ context.Context, msg Message) (string, error) {
	logger.OrDiscard(n.Log).Debug("notifications disabled, message dropped", slog.String("title", msg.Title))
	return "", ErrDisabled
}
