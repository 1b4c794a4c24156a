package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging operations
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance
func NewFCMService(credentialsPath string) (*FCMService, error) {
	ctx := context.Background()
	opt := option.WithCredentialsFile(credentialsPath)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %v", err)
	}

	return &FCMService{client: client}, nil
}

// Payload defines the structure for push notifications
type Payload struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	DeviceToken string            `json:"-"` // Not sent to FCM, used internally
}

// Send delivers a single notification to a device via the HTTP v1 API.
func (s *FCMService) Send(ctx context.Context, payload *Payload) (string, error) {
	message := &messaging.Message{
		Token: payload.DeviceToken,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
			},
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Title: payload.Title,
				Body:  payload.Body,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: "default",
					Badge: intPtr(1),
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}
	return response, nil
}

// SendToTopic sends a notification to all subscribers of a topic.
func (s *FCMService) SendToTopic(ctx context.Context, topic string, payload *Payload) (string, error) {
	message := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("error sending topic message: %w", err)
	}
	return response, nil
}

// SubscribeToTopic subscribes a device to a topic (admin consoles join
// the admin alert topic on login).
func (s *FCMService) SubscribeToTopic(ctx context.Context, deviceTokens []string, topic string) error {
	response, err := s.client.SubscribeToTopic(ctx, deviceTokens, topic)
	if err != nil {
		return fmt.Errorf("error subscribing to topic: %w", err)
	}

	log.Printf("Subscription response: %d succeeded, %d failed\n", response.SuccessCount, response.FailureCount)
	return nil
}

// IsTokenInvalid reports whether err means the device token is dead and
// should be cleared from the recipient's record.
func IsTokenInvalid(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err)
}

func intPtr(i int) *int {
	return &i
}
