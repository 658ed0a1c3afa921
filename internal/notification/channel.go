package notification

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// Mailer is satisfied by utils.Mailer.
type Mailer interface {
	Enabled() bool
	Send(to []string, subject, htmlBody string) error
}

// Messenger is the slice of the FCM client used for push.
type Messenger interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

var ErrPushDisabled = errors.New("push notifications are not configured")

// fcmBatchSize is the FCM multicast ceiling.
const fcmBatchSize = 500

// PushResult reports delivery per batch run. Stale holds tokens FCM no longer recognises.
type PushResult struct {
	Sent   int
	Failed int
	Stale  []string
}

type PushChannel struct {
	client Messenger
}

// NewPushChannel accepts a nil client, in which case every send returns ErrPushDisabled.
func NewPushChannel(client Messenger) *PushChannel {
	return &PushChannel{client: client}
}

func (p *PushChannel) Enabled() bool {
	return p != nil && p.client != nil
}

func (p *PushChannel) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushResult, error) {
	if !p.Enabled() {
		return nil, ErrPushDisabled
	}
	res := &PushResult{}
	if len(tokens) == 0 {
		return res, nil
	}

	for i := 0; i < len(tokens); i += fcmBatchSize {
		end := i + fcmBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[i:end]

		resp, err := p.client.SendEachForMulticast(ctx, multicast(batch, title, body, data))
		if err != nil {
			res.Failed += len(batch)
			continue
		}
		res.Sent += resp.SuccessCount
		res.Failed += resp.FailureCount
		for idx, r := range resp.Responses {
			if !r.Success && messaging.IsUnregistered(r.Error) {
				res.Stale = append(res.Stale, batch[idx])
			}
		}
	}

	if res.Sent == 0 && res.Failed > 0 {
		return res, fmt.Errorf("push failed for all %d tokens", res.Failed)
	}
	return res, nil
}

func multicast(tokens []string, title, body string, data map[string]string) *messaging.MulticastMessage {
	badge := 1
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    "certificate_updates",
				Priority:     messaging.PriorityHigh,
				DefaultSound: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default", Badge: &badge},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: title,
				Body:  body,
				Icon:  "/icon-192x192.png",
			},
		},
	}
}
