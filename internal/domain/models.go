// Package domain defines the persistence models for users, phrases,
// proposals, votes, badges, usage events, and link requests. These types are
// mapped with GORM and form the core data layer of the bot backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Platforms an identity can belong to.
const (
	PlatformTelegram = "telegram"
	PlatformSlack    = "slack"
)

// Phrase kinds. Short phrases are single vocatives ("maquina"); long phrases
// are full sentences. Per-kind behavior elsewhere is table-driven on these
// values, never subclassed.
const (
	KindShort = "short"
	KindLong  = "long"
)

// Usage actions recorded as events. Events are append-only and used only for
// counting; badge predicates aggregate over them.
const (
	ActionCommand          = "command"
	ActionPhrase           = "phrase"
	ActionAudio            = "audio"
	ActionSticker          = "sticker"
	ActionVision           = "vision"
	ActionAIAsk            = "ai_ask"
	ActionPropose          = "propose"
	ActionApprove          = "approve"
	ActionReject           = "reject"
	ActionVote             = "vote"
	ActionReactionReceived = "reaction_received"
	ActionSubscription     = "subscription"
	ActionGiftSent         = "gift_sent"
	ActionGiftReceived     = "gift_received"
)

// User represents one identity on one platform. A user whose LinkedTo is
// non-nil is an alias: all reads and mutations resolve to the master record
// it points to, and its own counters stay zeroed after the merge.
//
// Fields:
//   - ID: opaque platform identity (Telegram numeric id or Slack user id,
//     stored as text).
//   - Platform: "telegram" or "slack"; the pair (ID, Platform) is unique.
//   - Points / TotalUsages: gamification counters, always >= 0.
//   - LastUsages: trailing usage timestamps, capped at 20, newest last.
//   - LinkedTo: master identity when this record is an alias.
//   - GDPR: soft-delete marker; cleared again on the next Ensure.
type User struct {
	ID          string  `json:"id"           gorm:"type:varchar(64);primaryKey"`
	Platform    string  `json:"platform"     gorm:"type:varchar(16);not null;index;check:platform IN ('telegram','slack')"`
	DisplayName string  `json:"display_name" gorm:"type:varchar(255);not null"`
	Username    string  `json:"username,omitempty" gorm:"type:varchar(255)"`
	Points      int     `json:"points"       gorm:"not null;default:0"`
	TotalUsages int     `json:"total_usages" gorm:"not null;default:0"`
	LinkedTo    *string `json:"linked_to,omitempty" gorm:"type:varchar(64);index"`
	IsPrivate   bool    `json:"is_private"   gorm:"not null;default:false"`
	GDPR        bool    `json:"-"            gorm:"column:gdpr;not null;default:false"`

	// LastUsages is serialized as JSON; it is approximate by design and is
	// never written atomically with the matching UsageEvent.
	LastUsages []time.Time `json:"-" gorm:"serializer:json"`

	// Game counters, owned by the web game but merged with the rest of the
	// identity on account linking.
	HighScore  int        `json:"high_score" gorm:"not null;default:0"`
	Plays      int        `json:"plays"      gorm:"not null;default:0"`
	Streak     int        `json:"streak"     gorm:"not null;default:0"`
	LastPlayed *time.Time `json:"last_played,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAlias reports whether this record redirects to a master identity.
func (u *User) IsAlias() bool { return u.LinkedTo != nil && *u.LinkedTo != "" }

// UserBadge records one earned badge. The unique index makes awarding
// idempotent at the store level: a badge already present is never re-awarded.
type UserBadge struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;index;uniqueIndex:ux_user_badge"`
	BadgeID   string    `json:"badge_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_user_badge"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for UserBadge.
func (UserBadge) TableName() string { return "user_badges" }

// Phrase is an approved catalog entry. Phrases are created on proposal
// approval (or seeded) and live indefinitely.
//
// Score is derived popularity: 5*(likes-dislikes) at admission, then +1 per
// subsequent use. NormText caches the normalized form used for similarity
// and substring search so catalog scans never re-normalize.
type Phrase struct {
	ID               uint    `json:"id"   gorm:"primaryKey;autoIncrement"`
	Kind             string  `json:"kind" gorm:"type:varchar(8);not null;index;check:kind IN ('short','long')"`
	Text             string  `json:"text" gorm:"type:text;not null"`
	NormText         string  `json:"-"    gorm:"type:text;not null;index"`
	AuthorID         *string `json:"author_id,omitempty" gorm:"type:varchar(64);index"`
	OriginChatID     *string `json:"origin_chat_id,omitempty" gorm:"type:varchar(64)"`
	OriginProposalID *string `json:"origin_proposal_id,omitempty" gorm:"type:varchar(128)"`
	Usages           int     `json:"usages"         gorm:"not null;default:0"`
	AudioUsages      int     `json:"audio_usages"   gorm:"not null;default:0"`
	StickerUsages    int     `json:"sticker_usages" gorm:"not null;default:0"`
	Score            int     `json:"score"          gorm:"not null;default:0;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Phrase.
func (Phrase) TableName() string { return "phrases" }

// Proposal is a submitted candidate phrase awaiting curator votes. Its ID is
// derived from the origin chat and message, which makes submission naturally
// idempotent: a retried submit lands on the same row.
//
// Terminal proposals (approved or rejected) are soft-deleted with
// VotingEnded set; live queries no longer see them, while the
// previously-rejected duplicate scan reads them unscoped.
type Proposal struct {
	ID              string     `json:"id"   gorm:"type:varchar(128);primaryKey"`
	Kind            string     `json:"kind" gorm:"type:varchar(8);not null;index;check:kind IN ('short','long')"`
	Text            string     `json:"text" gorm:"type:text;not null"`
	NormText        string     `json:"-"    gorm:"type:text;not null"`
	AuthorID        string     `json:"author_id" gorm:"type:varchar(64);not null;index"`
	OriginChatID    string     `json:"origin_chat_id"    gorm:"type:varchar(64);not null"`
	OriginMessageID string     `json:"origin_message_id" gorm:"type:varchar(64);not null"`
	VotingEnded     bool       `json:"voting_ended" gorm:"not null;default:false"`
	VotingEndedAt   *time.Time `json:"voting_ended_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Proposal.
func (Proposal) TableName() string { return "proposals" }

// ProposalVote is one curator's current side on a proposal. The unique index
// on (proposal_id, voter_id) guarantees a voter sits on exactly one side;
// flipping sides is an update, voting the same side twice is a no-op.
type ProposalVote struct {
	ID         string `json:"id"          gorm:"type:char(36);primaryKey"`
	ProposalID string `json:"proposal_id" gorm:"type:varchar(128);not null;index;uniqueIndex:ux_proposal_voter"`
	VoterID    string `json:"voter_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_proposal_voter"`
	Value      int    `json:"value"       gorm:"not null;check:value IN (-1,1)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ProposalVote.
func (ProposalVote) TableName() string { return "proposal_votes" }

// UsageEvent is an append-only record of one interaction. Events are never
// updated or deleted; badge predicates and profile counters aggregate them.
type UsageEvent struct {
	ID       string `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID   string `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_user_action,priority:1"`
	Platform string `json:"platform" gorm:"type:varchar(16);not null"`
	Action   string `json:"action"   gorm:"type:varchar(32);not null;index:idx_user_action,priority:2"`
	PhraseID *uint  `json:"phrase_id,omitempty" gorm:"index"`
	Metadata string `json:"metadata,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for UsageEvent.
func (UsageEvent) TableName() string { return "usage_events" }

// LinkRequest is a pending cross-platform account link. The token is a
// 6-character uppercase hex code typed into the other platform; requests are
// deleted on use or expiry.
type LinkRequest struct {
	Token          string    `json:"token" gorm:"type:char(6);primaryKey"`
	SourceUserID   string    `json:"source_user_id"   gorm:"type:varchar(64);not null;index"`
	SourcePlatform string    `json:"source_platform"  gorm:"type:varchar(16);not null"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName returns the database table name for LinkRequest.
func (LinkRequest) TableName() string { return "link_requests" }
