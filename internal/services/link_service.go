// Package services – LinkService
//
// This file implements cross-platform account linking: issuing short-lived
// tokens and merging the requesting identity into the completing one. After
// a merge the source record is an alias (zeroed counters, linked_to set)
// and every read or credit through it lands on the master.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// DefaultLinkTTL is how long a link token stays redeemable.
const DefaultLinkTTL = 15 * time.Minute

// crossPlatformBadge is always part of the badge union on merge.
const crossPlatformBadge = "cross-platform"

// LinkResult summarizes a completed merge.
type LinkResult struct {
	Master           *domain.User `json:"master"`
	AliasID          string       `json:"alias_id"`
	PhrasesRewired   int64        `json:"phrases_rewired"`
	ProposalsRewired int64        `json:"proposals_rewired"`
}

// LinkService issues link tokens and performs merges.
type LinkService struct {
	DB    *gorm.DB
	Users *UserService
	TTL   time.Duration
	Clock Clock
}

// NewLinkService constructs a LinkService with the default TTL.
func NewLinkService(db *gorm.DB, users *UserService) *LinkService {
	return &LinkService{DB: db, Users: users, TTL: DefaultLinkTTL, Clock: SystemClock{}}
}

func (s *LinkService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// newToken returns a 6-character uppercase hex code.
func newToken() (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b[:])), nil
}

// Request issues a token for the identity. The identity must already exist
// (the adapters Ensure on every interaction). Token collisions are retried a
// few times before giving up.
func (s *LinkService) Request(ctx context.Context, id, platform string) (string, error) {
	if _, err := repo.GetUser(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	// Opportunistic sweep so abandoned tokens do not accumulate; only the
	// specifically redeemed token is deleted on the Complete path.
	if _, err := repo.DeleteExpiredLinkRequests(ctx, s.DB, s.now().UTC()); err != nil {
		log.Warn().Err(err).Msg("expired link token sweep failed")
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	for range 3 {
		token, err := newToken()
		if err != nil {
			return "", err
		}
		if _, err := repo.CreateLinkRequest(ctx, s.DB, token, id, platform, ttl); err == nil {
			return token, nil
		}
	}
	return "", ErrExternalUnavailable
}

// Complete merges the token's source identity into the target identity.
//
// Order of operations follows the merge contract: stats move first, content
// is re-owned next, the source is persisted as a zeroed alias, and the
// token is deleted only at the end, so an interrupted merge can be retried
// with the same token.
func (s *LinkService) Complete(ctx context.Context, token, targetID, targetPlatform string) (*LinkResult, error) {
	tr := otel.Tracer("services/LinkService")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("target.id", targetID)),
	)
	defer span.End()

	lr, err := repo.GetLinkRequest(ctx, s.DB, strings.ToUpper(strings.TrimSpace(token)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lr.ExpiresAt.Before(s.now().UTC()) {
		if err := repo.DeleteLinkRequest(ctx, s.DB, lr.Token); err != nil {
			return nil, err
		}
		return nil, ErrLinkExpired
	}

	// Source by raw id: a source that is already an alias stays pointed at
	// its own master; only its direct record is merged.
	source, err := repo.GetUser(ctx, s.DB, lr.SourceUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	target, err := s.Users.FollowLinks(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if source.ID == target.ID {
		return nil, ErrSameIdentity
	}

	// 1) merge stats onto the master
	target.Points += source.Points
	target.TotalUsages += source.TotalUsages
	if source.HighScore > target.HighScore {
		target.HighScore = source.HighScore
	}
	target.Plays += source.Plays
	if source.Streak > target.Streak {
		target.Streak = source.Streak
	}
	if err := repo.SaveUser(ctx, s.DB, target); err != nil {
		return nil, err
	}

	// 2) union badges, cross-platform included
	sourceBadges, err := repo.ListBadges(ctx, s.DB, source.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range sourceBadges {
		if _, err := repo.AwardBadge(ctx, s.DB, target.ID, b.BadgeID); err != nil {
			return nil, err
		}
	}
	if _, err := repo.AwardBadge(ctx, s.DB, target.ID, crossPlatformBadge); err != nil {
		return nil, err
	}

	// 3) re-own content
	phrases, err := repo.ReassignPhraseAuthor(ctx, s.DB, source.ID, target.ID)
	if err != nil {
		return nil, err
	}
	proposals, err := repo.ReassignProposalAuthor(ctx, s.DB, source.ID, target.ID)
	if err != nil {
		return nil, err
	}

	// 4) zero the source and persist it as an alias
	if err := repo.DeleteBadges(ctx, s.DB, source.ID); err != nil {
		return nil, err
	}
	source.Points = 0
	source.TotalUsages = 0
	source.LastUsages = nil
	source.HighScore = 0
	source.Plays = 0
	source.Streak = 0
	source.LinkedTo = &target.ID
	if err := repo.SaveUser(ctx, s.DB, source); err != nil {
		return nil, err
	}

	// 5) consume the token
	if err := repo.DeleteLinkRequest(ctx, s.DB, lr.Token); err != nil {
		return nil, err
	}

	return &LinkResult{
		Master:           target,
		AliasID:          source.ID,
		PhrasesRewired:   phrases,
		ProposalsRewired: proposals,
	}, nil
}
