// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// UsageEvent ledger.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// AppendEvent inserts one usage event. Events are never updated or deleted.
func AppendEvent(ctx context.Context, db *gorm.DB, userID, platform, action string, phraseID *uint, metadata string) (*domain.UsageEvent, error) {
	e := &domain.UsageEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Platform:  platform,
		Action:    action,
		PhraseID:  phraseID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// CountEvents returns how many events of one action a user has recorded.
func CountEvents(ctx context.Context, db *gorm.DB, userID, action string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.UsageEvent{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&total).Error
	return total, err
}

// EventCountsByAction returns a user's event counts grouped by action in a
// single query. Actions with no events are absent from the map.
func EventCountsByAction(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	type row struct {
		Action string
		N      int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.UsageEvent{}).
		Select("action, count(*) as n").
		Where("user_id = ?", userID).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Action] = r.N
	}
	return out, nil
}
