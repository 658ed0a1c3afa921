package notification

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChannelEmail = "email"
	ChannelPush  = "push"
	ChannelInApp = "inapp"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// NotificationLog is one delivery attempt on one channel.
type NotificationLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index" json:"user_id"`
	EventID    string         `gorm:"size:64;index" json:"event_id"`
	EventType  string         `gorm:"size:40;not null" json:"event_type"`
	RecordType string         `gorm:"size:20" json:"record_type"`
	RecordID   uint           `json:"record_id"`
	Channel    string         `gorm:"size:20;not null" json:"channel"`
	Subject    string         `gorm:"size:255" json:"subject,omitempty"`
	Body       string         `gorm:"type:text;not null" json:"body"`
	Recipients datatypes.JSON `json:"recipients"`
	Status     string         `gorm:"size:20;not null" json:"status"`
	Error      *string        `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// InAppNotification backs the portal's notification bell.
type InAppNotification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Title      string    `gorm:"size:150;not null" json:"title"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Category   string    `gorm:"size:30;not null" json:"category"`
	RecordType string    `gorm:"size:20" json:"record_type,omitempty"`
	RecordID   uint      `json:"record_id,omitempty"`
	IsRead     bool      `gorm:"not null" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeviceToken is an FCM registration for one of a user's devices.
type DeviceToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_device_token" json:"user_id"`
	Token      string    `gorm:"size:255;not null;index:idx_user_device_token,unique" json:"device_token"`
	DeviceType string    `gorm:"size:20" json:"device_type"`
	DeviceName string    `gorm:"size:100" json:"device_name"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
	DeviceType  string `json:"device_type" binding:"omitempty,oneof=android ios web"`
	DeviceName  string `json:"device_name"`
}

// Message is the rendered content for one event.
type Message struct {
	Title    string
	Body     string
	HTML     string
	Category string
}
