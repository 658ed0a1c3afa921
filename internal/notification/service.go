package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/logger"
)

// AdminDirectory resolves the LG admins who review a local government's records.
type AdminDirectory interface {
	AdminEmails(ctx context.Context, localGovernmentID uint) ([]string, error)
}

type Service interface {
	event.Handler

	RegisterDevice(ctx context.Context, userID uint, req RegisterDeviceRequest) (*DeviceToken, error)
	RemoveDevice(ctx context.Context, userID uint, token string) error
	ListInApp(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]InAppNotification, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	ListLogs(ctx context.Context, userID uint, limit int) ([]NotificationLog, error)
	Subscribe(ctx context.Context, userID uint) (<-chan string, func())
}

type service struct {
	repo   Repository
	mailer Mailer
	push   *PushChannel
	hub    Hub
	admins AdminDirectory
	log    *logger.Logger
}

func NewService(repo Repository, mailer Mailer, push *PushChannel, hub Hub, admins AdminDirectory, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	if hub == nil {
		hub = NewLocalHub()
	}
	return &service{repo: repo, mailer: mailer, push: push, hub: hub, admins: admins, log: log}
}

// Handle delivers one domain event. Events already handled are skipped so
// redelivery from the broker does not notify twice.
func (s *service) Handle(ctx context.Context, e event.Event) error {
	if e.ID != "" {
		done, err := s.repo.Handled(ctx, e.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	msg, ok := Render(e)
	if !ok {
		return nil
	}

	var errs []error
	if e.UserID != 0 {
		if err := s.inApp(ctx, e, msg); err != nil {
			errs = append(errs, err)
		}
		if err := s.sendPush(ctx, e, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Email != "" {
		if err := s.sendEmail(ctx, e, msg, []string{e.Email}); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Type == event.ApplicationSubmitted {
		if err := s.notifyAdmins(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *service) inApp(ctx context.Context, e event.Event, msg Message) error {
	n := &InAppNotification{
		UserID:     e.UserID,
		Title:      msg.Title,
		Message:    msg.Body,
		Category:   msg.Category,
		RecordType: e.RecordType,
		RecordID:   e.RecordID,
	}
	if err := s.repo.CreateInApp(ctx, n); err != nil {
		return fmt.Errorf("in-app notification: %w", err)
	}
	s.record(ctx, e, ChannelInApp, msg, []string{strconv.FormatUint(uint64(e.UserID), 10)}, nil)

	payload, err := json.Marshal(n)
	if err == nil {
		if err := s.hub.Publish(ctx, e.UserID, string(payload)); err != nil {
			s.log.Warnf("notification stream for user %d: %v", e.UserID, err)
		}
	}
	return nil
}

func (s *service) sendPush(ctx context.Context, e event.Event, msg Message) error {
	if !s.push.Enabled() {
		return nil
	}
	tokens, err := s.repo.ActiveTokens(ctx, e.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	res, err := s.push.Send(ctx, tokens, msg.Title, msg.Body, map[string]string{
		"event":       string(e.Type),
		"record_type": e.RecordType,
		"record_id":   strconv.FormatUint(uint64(e.RecordID), 10),
		"reference":   e.Reference,
	})
	if res != nil && len(res.Stale) > 0 {
		if derr := s.repo.DeactivateTokens(ctx, res.Stale); derr != nil {
			s.log.Warnf("deactivate %d stale device tokens: %v", len(res.Stale), derr)
		}
	}
	s.record(ctx, e, ChannelPush, msg, tokens, err)
	if err != nil {
		return fmt.Errorf("push to user %d: %w", e.UserID, err)
	}
	return nil
}

func (s *service) sendEmail(ctx context.Context, e event.Event, msg Message, to []string) error {
	if s.mailer == nil || !s.mailer.Enabled() {
		return nil
	}
	err := s.mailer.Send(to, msg.Title, msg.HTML)
	s.record(ctx, e, ChannelEmail, msg, to, err)
	if err != nil {
		return fmt.Errorf("email %s: %w", strings.Join(to, ", "), err)
	}
	return nil
}

func (s *service) notifyAdmins(ctx context.Context, e event.Event) error {
	if s.admins == nil || e.LocalGovernmentID == 0 {
		return nil
	}
	emails, err := s.admins.AdminEmails(ctx, e.LocalGovernmentID)
	if err != nil || len(emails) == 0 {
		return err
	}
	msg, ok := renderAdmin(e)
	if !ok {
		return nil
	}
	return s.sendEmail(ctx, e, msg, emails)
}

func (s *service) record(ctx context.Context, e event.Event, channel string, msg Message, recipients []string, sendErr error) {
	raw, _ := json.Marshal(recipients)
	entry := &NotificationLog{
		UserID:     e.UserID,
		EventID:    e.ID,
		EventType:  string(e.Type),
		RecordType: e.RecordType,
		RecordID:   e.RecordID,
		Channel:    channel,
		Subject:    msg.Title,
		Body:       msg.Body,
		Recipients: datatypes.JSON(raw),
		Status:     StatusSent,
	}
	if sendErr != nil {
		text := sendErr.Error()
		entry.Status = StatusFailed
		entry.Error = &text
	}
	if err := s.repo.CreateLog(ctx, entry); err != nil {
		s.log.Errorf(err, "notification log for %s", e.Type)
	}
}

func (s *service) RegisterDevice(ctx context.Context, userID uint, req RegisterDeviceRequest) (*DeviceToken, error) {
	token := strings.TrimSpace(req.DeviceToken)
	if token == "" {
		return nil, fmt.Errorf("device token is required: %w", apperr.ErrInvalidInput)
	}
	d := &DeviceToken{
		UserID:     userID,
		Token:      token,
		DeviceType: req.DeviceType,
		DeviceName: strings.TrimSpace(req.DeviceName),
	}
	if err := s.repo.SaveDeviceToken(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) RemoveDevice(ctx context.Context, userID uint, token string) error {
	return s.repo.RemoveDeviceToken(ctx, userID, token)
}

func (s *service) ListInApp(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]InAppNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListInApp(ctx, userID, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, id uint) error {
	if err := s.repo.MarkInAppRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllInAppRead(ctx, userID)
}

func (s *service) ListLogs(ctx context.Context, userID uint, limit int) ([]NotificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListLogsByUser(ctx, userID, limit)
}

func (s *service) Subscribe(ctx context.Context, userID uint) (<-chan string, func()) {
	return s.hub.Subscribe(ctx, userID)
}
