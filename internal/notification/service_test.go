package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Enabled() bool { return true }

func (m *fakeMailer) Send(to []string, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return m.err
}

type fakeMessenger struct {
	messages []*messaging.MulticastMessage
	failAll  bool
}

func (f *fakeMessenger) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.messages = append(f.messages, m)
	resp := &messaging.BatchResponse{}
	for range m.Tokens {
		if f.failAll {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: false, Error: errors.New("boom")})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m"})
	}
	return resp, nil
}

type fakeAdmins map[uint][]string

func (f fakeAdmins) AdminEmails(_ context.Context, lgaID uint) ([]string, error) {
	return f[lgaID], nil
}

type fixture struct {
	repo   Repository
	svc    Service
	mailer *fakeMailer
	fcm    *fakeMessenger
	hub    *LocalHub
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t, &NotificationLog{}, &InAppNotification{}, &DeviceToken{})
	f := &fixture{
		repo:   NewRepository(db),
		mailer: &fakeMailer{},
		fcm:    &fakeMessenger{},
		hub:    NewLocalHub(),
	}
	f.svc = NewService(f.repo, f.mailer, NewPushChannel(f.fcm), f.hub, fakeAdmins{3: {"admin@ikeja.gov.ng"}}, nil)
	return f
}

func submitted() event.Event {
	e := event.New(event.ApplicationSubmitted, "application", 12)
	e.UserID = 9
	e.LocalGovernmentID = 3
	e.Reference = "APP-20260101-ABC123"
	e.HolderName = "Amina Bello"
	e.Email = "amina@example.com"
	return e
}

func TestHandleDeliversOnEveryChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RegisterDevice(ctx, 9, RegisterDeviceRequest{DeviceToken: "tok-1", DeviceType: "android"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Handle(ctx, submitted()))

	items, err := f.svc.ListInApp(ctx, 9, false, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Application received", items[0].Title)
	assert.Contains(t, items[0].Message, "APP-20260101-ABC123")

	require.Len(t, f.fcm.messages, 1)
	assert.Equal(t, []string{"tok-1"}, f.fcm.messages[0].Tokens)
	assert.Equal(t, "12", f.fcm.messages[0].Data["record_id"])

	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, []string{"amina@example.com"}, f.mailer.sent[0].to)
	assert.Contains(t, f.mailer.sent[0].body, "<h2>Application received</h2>")
	assert.Equal(t, []string{"admin@ikeja.gov.ng"}, f.mailer.sent[1].to)
	assert.Equal(t, "New application APP-20260101-ABC123", f.mailer.sent[1].subject)

	logs, err := f.svc.ListLogs(ctx, 9, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}

func TestHandleSkipsRedeliveredEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := submitted()

	require.NoError(t, f.svc.Handle(ctx, e))
	require.NoError(t, f.svc.Handle(ctx, e))

	items, err := f.svc.ListInApp(ctx, 9, false, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Len(t, f.mailer.sent, 2)
}

func TestStatusChangeMessageIncludesNote(t *testing.T) {
	e := event.New(event.StatusChanged, "digitization", 4)
	e.Reference = "DIG-20260101-DEF456"
	e.Status = "under_review"
	e.Note = "Scan is blurry"

	msg, ok := Render(e)
	require.True(t, ok)
	assert.Equal(t, "Digitization request under review", msg.Title)
	assert.Equal(t, "Your digitization request DIG-20260101-DEF456 is now under review. Note from the reviewer: Scan is blurry", msg.Body)

	_, ok = Render(event.Event{Type: "unknown"})
	assert.False(t, ok)
}

func TestPushFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fcm.failAll = true
	_, err := f.svc.RegisterDevice(ctx, 9, RegisterDeviceRequest{DeviceToken: "tok-1"})
	require.NoError(t, err)

	e := event.New(event.PaymentVerified, "application", 12)
	e.UserID = 9
	e.Amount = 5000
	err = f.svc.Handle(ctx, e)
	require.Error(t, err)

	logs, err := f.svc.ListLogs(ctx, 9, 0)
	require.NoError(t, err)
	var failed int
	for _, l := range logs {
		if l.Status == StatusFailed {
			failed++
			assert.Equal(t, ChannelPush, l.Channel)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestDeviceRegistrationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RegisterDevice(ctx, 9, RegisterDeviceRequest{DeviceToken: "tok-1", DeviceName: "Pixel"})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveDevice(ctx, 9, "tok-1"))

	tokens, err := f.repo.ActiveTokens(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	second, err := f.svc.RegisterDevice(ctx, 9, RegisterDeviceRequest{DeviceToken: "tok-1", DeviceName: "Pixel 8"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Pixel 8", second.DeviceName)

	tokens, err = f.repo.ActiveTokens(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, tokens)

	_, err = f.svc.RegisterDevice(ctx, 9, RegisterDeviceRequest{DeviceToken: "  "})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Handle(ctx, submitted()))

	items, err := f.svc.ListInApp(ctx, 9, true, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.True(t, errors.Is(f.svc.MarkRead(ctx, 10, items[0].ID), apperr.ErrNotFound))
	require.NoError(t, f.svc.MarkRead(ctx, 9, items[0].ID))

	unread, err := f.svc.ListInApp(ctx, 9, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	n, err := f.svc.MarkAllRead(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubscribersReceiveInAppNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, release := f.svc.Subscribe(ctx, 9)
	defer release()

	require.NoError(t, f.svc.Handle(ctx, submitted()))

	select {
	case payload := <-ch:
		assert.Contains(t, payload, `"title":"Application received"`)
	case <-time.After(time.Second):
		t.Fatal("no notification streamed")
	}
}

func TestPushChannelDisabled(t *testing.T) {
	p := NewPushChannel(nil)
	assert.False(t, p.Enabled())
	_, err := p.Send(context.Background(), []string{"t"}, "a", "b", nil)
	assert.ErrorIs(t, err, ErrPushDisabled)
}
