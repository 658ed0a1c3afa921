package localgovernment

import "time"

type LocalGovernment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:120;not null" json:"name"`
	State           string    `gorm:"size:80;not null;index" json:"state"`
	Code            string    `gorm:"size:12;not null;uniqueIndex" json:"code"`
	ApplicationFee  float64   `gorm:"not null;default:0" json:"application_fee"`
	DigitizationFee float64   `gorm:"not null;default:0" json:"digitization_fee"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Fees is the public fee schedule of one local government.
type Fees struct {
	LocalGovernmentID uint    `json:"local_government_id"`
	ApplicationFee    float64 `json:"application_fee"`
	DigitizationFee   float64 `json:"digitization_fee"`
}

type Filter struct {
	State      string
	Search     string
	ActiveOnly bool
}

type Input struct {
	Name            string  `json:"name" binding:"required"`
	State           string  `json:"state" binding:"required"`
	Code            string  `json:"code" binding:"required"`
	ApplicationFee  float64 `json:"application_fee"`
	DigitizationFee float64 `json:"digitization_fee"`
	IsActive        *bool   `json:"is_active"`
}
