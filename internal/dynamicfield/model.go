package dynamicfield

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindTextarea Kind = "textarea"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindDate, KindSelect, KindTextarea:
		return true
	}
	return false
}

// DynamicField is an extra application input configured per local government.
type DynamicField struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	LocalGovernmentID uint           `gorm:"not null;index;uniqueIndex:idx_field_lga_key" json:"local_government_id"`
	Label             string         `gorm:"size:120;not null" json:"label"`
	Key               string         `gorm:"column:field_key;size:80;not null;uniqueIndex:idx_field_lga_key" json:"key"`
	Kind              Kind           `gorm:"size:20;not null" json:"kind"`
	Required          bool           `gorm:"not null" json:"required"`
	Options           datatypes.JSON `json:"options"`
	Position          int            `gorm:"not null;default:0" json:"position"`
	CreatedBy         uint           `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (f DynamicField) Choices() []string {
	var out []string
	if len(f.Options) > 0 {
		_ = json.Unmarshal(f.Options, &out)
	}
	return out
}

type Input struct {
	LocalGovernmentID uint     `json:"local_government_id"`
	Label             string   `json:"label" binding:"required"`
	Key               string   `json:"key"`
	Kind              Kind     `json:"kind" binding:"required"`
	Required          bool     `json:"required"`
	Options           []string `json:"options"`
	Position          int      `json:"position"`
}
