package contact

import (
	"context"

	"github.com/harvestlink/agrimarket/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists contact messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the message, filling its id and timestamp.
func (r *Repository) Create(ctx context.Context, msg *models.ContactMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListRecent returns the newest messages first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	var rows []models.ContactMessage
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
