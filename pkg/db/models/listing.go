package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing is one sellable crop-production unit as stored in the listings table.
type Listing struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ExternalRef string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_listings_external_ref"`
	CropType    string          `gorm:"type:varchar(64);not null"`
	Farmer      string          `gorm:"type:varchar(255);not null"`
	Location    string          `gorm:"type:varchar(255);not null"`
	TokenType   string          `gorm:"type:varchar(16);not null"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TrustScore  float64         `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null;index:idx_listings_created_at"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
