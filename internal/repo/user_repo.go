// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User and
// UserBadge models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Alias resolution lives in the service
// layer; everything here reads and writes exact ids.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// GetUser fetches a user by exact id, or gorm.ErrRecordNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user row with CreatedAt set to UTC.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(u).Error
}

// SaveUser persists the full user record (read-modify-write style).
func SaveUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Save(u).Error
}

// ListAliasesOf returns every user whose linked_to points at masterID.
// Used by the cross-platform badge predicate and by merge diagnostics.
func ListAliasesOf(ctx context.Context, db *gorm.DB, masterID string) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Where("linked_to = ?", masterID).Find(&out).Error
	return out, err
}

// ListBadges returns the badge rows for a user, oldest first.
func ListBadges(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserBadge, error) {
	var out []domain.UserBadge
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// AwardBadge inserts one badge row for the user. It reports awarded=false
// when the badge was already present (unique violation), which makes
// awarding idempotent without a prior read.
func AwardBadge(ctx context.Context, db *gorm.DB, userID, badgeID string) (awarded bool, err error) {
	b := &domain.UserBadge{
		ID:        uuid.NewString(),
		UserID:    userID,
		BadgeID:   badgeID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteBadges removes every badge row for a user. Only account merging
// calls this, after the badges were unioned onto the master.
func DeleteBadges(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.UserBadge{}).Error
}

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey. glebarez/sqlite often returns
// plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: unique") ||
		strings.Contains(msg, "duplicate key")
}
