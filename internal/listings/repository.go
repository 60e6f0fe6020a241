package listings

import (
	"context"
	"time"

	"github.com/harvestlink/agrimarket/pkg/db/models"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes the listings table.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Fetch implements Source by loading every listing, newest first.
func (r *Repository) Fetch(ctx context.Context) ([]Listing, error) {
	var rows []models.Listing
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings")
	}
	out := make([]Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Upsert inserts listings keyed by their ID, updating rows whose external_ref already exists.
func (r *Repository) Upsert(ctx context.Context, items []Listing) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.Listing, 0, len(items))
	for _, item := range items {
		row := toModel(item)
		row.UpdatedAt = now
		rows = append(rows, row)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{"crop_type", "farmer", "location", "token_type", "price", "trust_score", "updated_at"}),
	}).CreateInBatches(&rows, 100).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert listings")
	}
	return nil
}

// DeleteByRef removes a listing by its public id.
func (r *Repository) DeleteByRef(ctx context.Context, ref string) error {
	res := r.db.WithContext(ctx).Where("external_ref = ?", ref).Delete(&models.Listing{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete listing")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "listing %q not found", ref)
	}
	return nil
}

// Count returns the number of stored listings.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings")
	}
	return count, nil
}

func fromModel(row models.Listing) Listing {
	return Listing{
		ID:         row.ExternalRef,
		CropType:   row.CropType,
		Farmer:     row.Farmer,
		Location:   row.Location,
		TokenType:  row.TokenType,
		Price:      row.Price.InexactFloat64(),
		TrustScore: row.TrustScore,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func toModel(item Listing) models.Listing {
	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return models.Listing{
		ExternalRef: item.ID,
		CropType:    item.CropType,
		Farmer:      item.Farmer,
		Location:    item.Location,
		TokenType:   item.TokenType,
		Price:       decimal.NewFromFloat(item.Price).Round(2),
		TrustScore:  item.TrustScore,
		CreatedAt:   createdAt,
	}
}
