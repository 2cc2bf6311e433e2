// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for proposals and
// their votes.
//
// Terminal proposals are soft-deleted: live queries exclude them, while
// ListClosedProposals reads them unscoped for the previously-rejected
// duplicate scan.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
)

// CreateProposal inserts a proposal row. FirstOrCreate semantics are handled
// by the caller; this is a plain insert.
func CreateProposal(ctx context.Context, db *gorm.DB, p *domain.Proposal) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// GetProposal fetches a live (not terminal) proposal, or gorm.ErrRecordNotFound.
func GetProposal(ctx context.Context, db *gorm.DB, id string) (*domain.Proposal, error) {
	var p domain.Proposal
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProposalAny fetches a proposal regardless of terminal state.
func GetProposalAny(ctx context.Context, db *gorm.DB, id string) (*domain.Proposal, error) {
	var p domain.Proposal
	if err := db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListOpenProposals returns all live proposals of a kind, ordered by id.
func ListOpenProposals(ctx context.Context, db *gorm.DB, kind string) ([]domain.Proposal, error) {
	var out []domain.Proposal
	err := db.WithContext(ctx).
		Where("kind = ? AND voting_ended = ?", kind, false).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// ListClosedProposals returns terminal proposals of a kind, soft-deleted
// rows included.
func ListClosedProposals(ctx context.Context, db *gorm.DB, kind string) ([]domain.Proposal, error) {
	var out []domain.Proposal
	err := db.WithContext(ctx).
		Unscoped().
		Where("kind = ? AND voting_ended = ?", kind, true).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// EndVoting marks a proposal terminal and soft-deletes it. This is always
// the last write of a resolution so that a crash mid-approval leaves the
// proposal live and the path replayable.
func EndVoting(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Proposal{}).
		Where("id = ? AND voting_ended = ?", id, false).
		Updates(map[string]any{"voting_ended": true, "voting_ended_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return db.WithContext(ctx).Delete(&domain.Proposal{ID: id}).Error
}

// ReassignProposalAuthor rewrites proposal authorship (terminal rows
// included) from one identity to another. Used by account merging.
func ReassignProposalAuthor(ctx context.Context, db *gorm.DB, fromID, toID string) (int64, error) {
	res := db.WithContext(ctx).
		Unscoped().
		Model(&domain.Proposal{}).
		Where("author_id = ?", fromID).
		Update("author_id", toID)
	return res.RowsAffected, res.Error
}

// UpsertVote moves voterID onto the requested side of a proposal.
// It reports changed=false when the voter was already on that side, making
// repeated same-side votes no-ops. The unique (proposal_id, voter_id) index
// backs the read-then-write against lost races.
func UpsertVote(ctx context.Context, db *gorm.DB, proposalID, voterID string, value int) (changed bool, err error) {
	var existing domain.ProposalVote
	err = db.WithContext(ctx).
		Where("proposal_id = ? AND voter_id = ?", proposalID, voterID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Value == value {
			return false, nil
		}
		existing.Value = value
		if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
			return false, err
		}
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		v := &domain.ProposalVote{
			ID:         uuid.NewString(),
			ProposalID: proposalID,
			VoterID:    voterID,
			Value:      value,
			CreatedAt:  time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(v).Error; err != nil {
			if isUniqueViolation(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// CountVotes tallies the current sides of a proposal.
func CountVotes(ctx context.Context, db *gorm.DB, proposalID string) (likes, dislikes int64, err error) {
	type row struct {
		Value int
		N     int64
	}
	var rows []row
	err = db.WithContext(ctx).
		Model(&domain.ProposalVote{}).
		Select("value, count(*) as n").
		Where("proposal_id = ?", proposalID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Value {
		case 1:
			likes = r.N
		case -1:
			dislikes = r.N
		}
	}
	return likes, dislikes, nil
}

// ListVotes returns the current votes on a proposal.
func ListVotes(ctx context.Context, db *gorm.DB, proposalID string) ([]domain.ProposalVote, error) {
	var out []domain.ProposalVote
	err := db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
