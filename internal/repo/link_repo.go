// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for TTL-bounded
// account link requests.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// CreateLinkRequest inserts a pending link token with the given lifetime.
func CreateLinkRequest(ctx context.Context, db *gorm.DB, token, sourceUserID, sourcePlatform string, ttl time.Duration) (*domain.LinkRequest, error) {
	now := time.Now().UTC()
	lr := &domain.LinkRequest{
		Token:          token,
		SourceUserID:   sourceUserID,
		SourcePlatform: sourcePlatform,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(lr).Error; err != nil {
		return nil, err
	}
	return lr, nil
}

// GetLinkRequest fetches a link request by token, expired or not; expiry is
// the service's decision because an expired token must also be deleted.
func GetLinkRequest(ctx context.Context, db *gorm.DB, token string) (*domain.LinkRequest, error) {
	var lr domain.LinkRequest
	if err := db.WithContext(ctx).Where("token = ?", token).First(&lr).Error; err != nil {
		return nil, err
	}
	return &lr, nil
}

// DeleteLinkRequest removes a token. Deleting an absent token is not an error.
func DeleteLinkRequest(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).Delete(&domain.LinkRequest{}, "token = ?", token).Error
}

// DeleteExpiredLinkRequests sweeps tokens whose deadline passed and returns
// how many were removed.
func DeleteExpiredLinkRequests(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.LinkRequest{})
	return res.RowsAffected, res.Error
}
