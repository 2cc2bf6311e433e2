// Package services – UsageService
//
// This file implements usage recording, the exposed operation every
// platform adapter calls on each interaction: it ensures the identity
// exists, appends the event, advances the ledger counters, bumps the phrase
// counters when a phrase was involved, and returns any badges the event
// earned.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// validActions guards the event taxonomy at the edge.
var validActions = map[string]struct{}{
	domain.ActionCommand: {}, domain.ActionPhrase: {}, domain.ActionAudio: {},
	domain.ActionSticker: {}, domain.ActionVision: {}, domain.ActionAIAsk: {},
	domain.ActionPropose: {}, domain.ActionApprove: {}, domain.ActionReject: {},
	domain.ActionVote: {}, domain.ActionReactionReceived: {},
	domain.ActionSubscription: {}, domain.ActionGiftSent: {}, domain.ActionGiftReceived: {},
}

// RecordResult is what an adapter gets back from a recorded usage: the
// master user state and the badges this event earned.
type RecordResult struct {
	User      *domain.User   `json:"user"`
	NewBadges []BadgeSpec    `json:"-"`
	Phrase    *domain.Phrase `json:"phrase,omitempty"`
}

// UsageService records interactions and fans out their side effects.
type UsageService struct {
	DB      *gorm.DB
	Users   *UserService
	Badges  *BadgeService
	Phrases *PhraseService
}

// Record registers one interaction by an identity. displayName and username
// keep the user record fresh; phraseID is set for phrase, audio, and
// sticker actions and advances the phrase counters too.
func (s *UsageService) Record(ctx context.Context, id, platform, displayName, username, action string, phraseID *uint, metadata string) (*RecordResult, error) {
	if _, ok := validActions[action]; !ok {
		return nil, ErrInvalidInput
	}

	if _, err := s.Users.Ensure(ctx, id, platform, displayName, username); err != nil {
		return nil, err
	}
	master, err := s.Users.FollowLinks(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := repo.AppendEvent(ctx, s.DB, master.ID, platform, action, phraseID, metadata); err != nil {
		return nil, err
	}
	user, err := s.Users.RecordUse(ctx, master.ID)
	if err != nil {
		return nil, err
	}

	res := &RecordResult{User: user}
	if phraseID != nil {
		switch action {
		case domain.ActionPhrase, domain.ActionAudio, domain.ActionSticker:
			p, err := s.Phrases.RegisterUse(ctx, *phraseID, action)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			res.Phrase = p
		}
	}

	badges, err := s.Badges.Evaluate(ctx, master.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, nil
		}
		return nil, err
	}
	res.NewBadges = badges
	return res, nil
}
