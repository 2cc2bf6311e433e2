// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Phrase
// catalog.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// CreatePhrase inserts a new catalog entry. The store assigns the numeric id.
func CreatePhrase(ctx context.Context, db *gorm.DB, p *domain.Phrase) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// SavePhrase persists the full phrase record.
func SavePhrase(ctx context.Context, db *gorm.DB, p *domain.Phrase) error {
	return db.WithContext(ctx).Save(p).Error
}

// GetPhrase fetches a phrase by id, or gorm.ErrRecordNotFound if missing.
func GetPhrase(ctx context.Context, db *gorm.DB, id uint) (*domain.Phrase, error) {
	var p domain.Phrase
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPhrases returns the whole catalog for a kind, ordered by id. This is
// the scan behind similarity matching and random selection; the per-kind
// cache in PhraseService keeps it off the hot path.
func ListPhrases(ctx context.Context, db *gorm.DB, kind string) ([]domain.Phrase, error) {
	var out []domain.Phrase
	err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountPhrases returns the catalog size for a kind.
func CountPhrases(ctx context.Context, db *gorm.DB, kind string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("kind = ?", kind).
		Count(&total).Error
	return total, err
}

// ListPhrasesPage returns a page of phrases for a kind ordered by score
// descending (then id for stable pagination). Use CountPhrases for totals.
func ListPhrasesPage(ctx context.Context, db *gorm.DB, kind string, offset, limit int) ([]domain.Phrase, error) {
	var out []domain.Phrase
	err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("score desc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPhrasesByAuthor returns how many catalog entries an identity authored.
func CountPhrasesByAuthor(ctx context.Context, db *gorm.DB, authorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("author_id = ?", authorID).
		Count(&total).Error
	return total, err
}

// ReassignPhraseAuthor rewrites authorship from one identity to another and
// returns how many rows moved. Used by account merging.
func ReassignPhraseAuthor(ctx context.Context, db *gorm.DB, fromID, toID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Phrase{}).
		Where("author_id = ?", fromID).
		Update("author_id", toID)
	return res.RowsAffected, res.Error
}
