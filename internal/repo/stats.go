// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the small aggregate queries behind the
// operational stats endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// CatalogStats returns the catalog size for a kind and the greatest
// UpdatedAt among its rows. When the catalog is empty, maxUpdatedAt is nil.
func CatalogStats(ctx context.Context, db *gorm.DB, kind string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Phrase{}).Where("kind = ?", kind)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// OpenProposalCount returns how many proposals are currently awaiting votes.
func OpenProposalCount(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Proposal{}).
		Where("voting_ended = ?", false).
		Count(&total).Error
	return total, err
}
