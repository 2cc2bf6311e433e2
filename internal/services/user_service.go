// Package services – UserService
//
// This file implements the user ledger: create-or-update on first contact,
// point credits, usage counters, privacy and GDPR toggles, and the alias
// chain resolution that makes linked accounts transparent. Every mutation
// re-reads the record from the store before writing, per the no-stale-write
// rule of the single-threaded handler model.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// maxLastUsages caps the trailing usage-timestamp window kept on a user.
const maxLastUsages = 20

// maxAliasHops bounds alias chain traversal; chains are a forest by
// construction, the bound only guards corrupted data.
const maxAliasHops = 16

// UserService provides ledger operations over identities. All operations
// that take an identity accept aliases and resolve to the master before
// mutating, except Ensure, which works on the exact record.
type UserService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewUserService constructs a UserService with the system clock.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db, Clock: SystemClock{}}
}

func (s *UserService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// FollowLinks resolves an identity through its alias chain to the master
// record. Traversal keeps a visited set so a corrupted cycle terminates at
// the last unvisited hop instead of looping.
func (s *UserService) FollowLinks(ctx context.Context, id string) (*domain.User, error) {
	visited := make(map[string]struct{}, 2)
	cur := id
	for range maxAliasHops {
		if _, seen := visited[cur]; seen {
			break
		}
		visited[cur] = struct{}{}

		u, err := repo.GetUser(ctx, s.DB, cur)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if !u.IsAlias() {
			return u, nil
		}
		if _, seen := visited[*u.LinkedTo]; seen {
			return u, nil
		}
		cur = *u.LinkedTo
	}
	return nil, ErrConflict
}

// Ensure creates or updates the record with the exact id. Display name and
// username changes are written back, a previously set GDPR flag is cleared,
// and platform is refreshed since the identity was resolved through its own
// id.
func (s *UserService) Ensure(ctx context.Context, id, platform, displayName, username string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	if platform != domain.PlatformTelegram && platform != domain.PlatformSlack {
		return nil, ErrInvalidInput
	}

	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = &domain.User{
			ID:          id,
			Platform:    platform,
			DisplayName: displayName,
			Username:    username,
			CreatedAt:   s.now().UTC(),
		}
		if err := repo.CreateUser(ctx, s.DB, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if displayName != "" && u.DisplayName != displayName {
		u.DisplayName = displayName
		changed = true
	}
	if username != "" && u.Username != username {
		u.Username = username
		changed = true
	}
	if u.Platform != platform {
		u.Platform = platform
		changed = true
	}
	if u.GDPR {
		u.GDPR = false
		changed = true
	}
	if changed {
		if err := repo.SaveUser(ctx, s.DB, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Get returns the master record behind an identity, or ErrNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.FollowLinks(ctx, id)
}

// Credit adds delta points to the identity's master record. An empty or
// zero identity, or a missing user, is a no-op. Points never go below zero.
func (s *UserService) Credit(ctx context.Context, id string, delta int) error {
	if id == "" || id == "0" {
		return nil
	}
	u, err := s.FollowLinks(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	u.Points += delta
	if u.Points < 0 {
		u.Points = 0
	}
	return repo.SaveUser(ctx, s.DB, u)
}

// RecordUse advances the identity's total usage counter and appends the
// current time to the trailing window, truncating to the newest 20.
func (s *UserService) RecordUse(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.FollowLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	u.TotalUsages++
	u.LastUsages = append(u.LastUsages, s.now().UTC())
	if n := len(u.LastUsages); n > maxLastUsages {
		u.LastUsages = u.LastUsages[n-maxLastUsages:]
	}
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	return u, nil
}

// TogglePrivacy flips the master record's profile privacy and returns the
// new value.
func (s *UserService) TogglePrivacy(ctx context.Context, id string) (bool, error) {
	u, err := s.FollowLinks(ctx, id)
	if err != nil {
		return false, err
	}
	u.IsPrivate = !u.IsPrivate
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		return false, err
	}
	return u.IsPrivate, nil
}

// SoftDelete marks the master record as GDPR-erased. No data is removed;
// the next Ensure on the identity clears the flag again.
func (s *UserService) SoftDelete(ctx context.Context, id string) error {
	u, err := s.FollowLinks(ctx, id)
	if err != nil {
		return err
	}
	u.GDPR = true
	return repo.SaveUser(ctx, s.DB, u)
}
