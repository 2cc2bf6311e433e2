// Package services – BadgeService
//
// This file implements badge evaluation: building the read-only snapshot a
// predicate sees, awarding badges that newly hold, and reporting progress
// for the profile surface. Awarding goes through the unique-indexed
// user_badges table, so a badge can never be granted twice even when two
// evaluations overlap.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// BadgeService derives achievements from user state and event counts.
type BadgeService struct {
	DB    *gorm.DB
	Users *UserService
	Clock Clock
}

// NewBadgeService constructs a BadgeService with the system clock.
func NewBadgeService(db *gorm.DB, users *UserService) *BadgeService {
	return &BadgeService{DB: db, Users: users, Clock: SystemClock{}}
}

// snapshot assembles the evaluation state for the master record behind id.
func (s *BadgeService) snapshot(ctx context.Context, id string) (*BadgeSnapshot, map[string]struct{}, error) {
	u, err := s.Users.FollowLinks(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	counts, err := repo.EventCountsByAction(ctx, s.DB, u.ID)
	if err != nil {
		return nil, nil, err
	}
	authored, err := repo.CountPhrasesByAuthor(ctx, s.DB, u.ID)
	if err != nil {
		return nil, nil, err
	}
	aliases, err := repo.ListAliasesOf(ctx, s.DB, u.ID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := repo.ListBadges(ctx, s.DB, u.ID)
	if err != nil {
		return nil, nil, err
	}
	have := make(map[string]struct{}, len(rows))
	for _, b := range rows {
		have[b.BadgeID] = struct{}{}
	}

	snap := &BadgeSnapshot{
		User:            u,
		Counts:          counts,
		AuthoredPhrases: authored,
		HasAlias:        u.IsAlias() || len(aliases) > 0,
		Now:             s.Clock.Now(),
	}
	return snap, have, nil
}

// Evaluate awards every badge whose predicate newly holds for the identity
// and returns the specs awarded by this call. Badges already present are
// never re-awarded.
func (s *BadgeService) Evaluate(ctx context.Context, id string) ([]BadgeSpec, error) {
	snap, have, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	var awarded []BadgeSpec
	for _, spec := range badgeCatalog {
		if _, ok := have[spec.ID]; ok {
			continue
		}
		if !spec.Predicate(snap) {
			continue
		}
		fresh, err := repo.AwardBadge(ctx, s.DB, snap.User.ID, spec.ID)
		if err != nil {
			return awarded, err
		}
		if fresh {
			awarded = append(awarded, spec)
		}
	}
	return awarded, nil
}

// Progress reports every badge with its achieved state and counter progress
// for the identity's master record.
func (s *BadgeService) Progress(ctx context.Context, id string) ([]BadgeProgress, error) {
	snap, have, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]BadgeProgress, 0, len(badgeCatalog))
	for _, spec := range badgeCatalog {
		_, achieved := have[spec.ID]
		cur := spec.Current(snap)
		if achieved && spec.Target > 0 && cur < spec.Target {
			// counters can lag behind a merge-unioned badge
			cur = spec.Target
		}
		out = append(out, BadgeProgress{
			ID:          spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Achieved:    achieved,
			Current:     cur,
			Target:      spec.Target,
		})
	}
	return out, nil
}
