// Proposal HTTP handlers.
//
// This file exposes the REST endpoints for the phrase curation pipeline:
//   - POST /proposals             (submit a candidate phrase)
//   - POST /proposals/{id}/votes  (cast or move a curator vote)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate domain/service errors into HTTP results. The platform
// adapters (Telegram, Slack) are the only intended clients, so identities
// arrive in request bodies rather than via end-user authentication.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ProposalService defines the curation-pipeline operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ProposalService interface {
	// Submit runs the duplicate filters and opens a proposal when they pass.
	Submit(ctx context.Context, authorID, platform, kind, text, originChatID, originMessageID string) (*services.SubmitResult, error)
	// Vote moves voterID onto the given side (+1/-1) and resolves quorum.
	Vote(ctx context.Context, voterID, proposalID string, sign int) (*services.VoteResult, error)
}

// UsageService records user interactions and their side effects.
type UsageService interface {
	// Record appends a usage event and returns the updated master profile.
	Record(ctx context.Context, id, platform, displayName, username, action string, phraseID *uint, metadata string) (*services.RecordResult, error)
}

// UserService defines profile operations consumed by HTTP handlers.
type UserService interface {
	// Get returns the raw profile stored under id.
	Get(ctx context.Context, id string) (*domain.User, error)
	// FollowLinks resolves alias chains to the master profile.
	FollowLinks(ctx context.Context, id string) (*domain.User, error)
	// TogglePrivacy flips the leaderboard opt-out and returns the new state.
	TogglePrivacy(ctx context.Context, id string) (bool, error)
	// SoftDelete marks the profile as erased until the user returns.
	SoftDelete(ctx context.Context, id string) error
}

// BadgeService reports achievement state for a profile.
type BadgeService interface {
	// Progress returns every badge with its achieved flag and counters.
	Progress(ctx context.Context, id string) ([]services.BadgeProgress, error)
}

// LinkService issues link tokens and merges identities across platforms.
type LinkService interface {
	// Request mints a short-lived token for id on platform.
	Request(ctx context.Context, id, platform string) (string, error)
	// Complete redeems token, merging the issuer into the target identity.
	Complete(ctx context.Context, token, targetID, targetPlatform string) (*services.LinkResult, error)
}

// PhraseService defines read access to the approved catalog.
type PhraseService interface {
	// Random returns a uniformly random phrase of the kind, or the sentinel.
	Random(ctx context.Context, kind string) (*domain.Phrase, error)
	// Search returns catalog phrases whose normalized text contains the query.
	Search(ctx context.Context, kind, query string) ([]domain.Phrase, error)
	// ListPage returns one page of the catalog ordered by score.
	ListPage(ctx context.Context, kind string, page, pageSize int) ([]domain.Phrase, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for proposals, usages, users, links,
// and the phrase catalog. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	propSvc   ProposalService
	usageSvc  UsageService
	userSvc   UserService
	badgeSvc  BadgeService
	linkSvc   LinkService
	phraseSvc PhraseService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(prop ProposalService, usage UsageService, user UserService, badge BadgeService, link LinkService, phrase PhraseService) *Handlers {
	return &Handlers{
		propSvc:   prop,
		usageSvc:  usage,
		userSvc:   user,
		badgeSvc:  badge,
		linkSvc:   link,
		phraseSvc: phrase,
	}
}

//
// DTOs
//

// SubmitProposalRequest is the JSON payload for submitting a candidate phrase.
//
// OriginChatID and OriginMessageID identify the chat message that carried the
// submission; together they make retried submissions idempotent.
type SubmitProposalRequest struct {
	AuthorID        string `json:"author_id" binding:"required"`
	Platform        string `json:"platform"  binding:"required,oneof=telegram slack"`
	Kind            string `json:"kind"      binding:"required,oneof=short long"`
	Text            string `json:"text"`
	OriginChatID    string `json:"origin_chat_id"    binding:"required"`
	OriginMessageID string `json:"origin_message_id" binding:"required"`
}

// VoteRequest is the JSON payload for casting a curator vote.
//
// Value must be one of:
//   - +1 : like (approve side)
//   - -1 : dislike (reject side)
//
// The binding tag enforces the domain constraint at the transport layer.
type VoteRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
	Value   int    `json:"value"    binding:"required,oneof=-1 1"`
}

//
// Endpoints
//

// SubmitProposal handles POST /proposals.
//
// Responses:
//   - 201 with the SubmitResult when a proposal was opened
//   - 200 with the SubmitResult when the submission was filtered (duplicate
//     or empty text); filtering is a business outcome, not an HTTP error
func (h *Handlers) SubmitProposal(c *gin.Context) {
	var req SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid submission payload")
		return
	}

	res, err := h.propSvc.Submit(c.Request.Context(), req.AuthorID, req.Platform, req.Kind, req.Text, req.OriginChatID, req.OriginMessageID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be short or long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	status := http.StatusOK
	if res.Outcome == services.SubmitAccepted {
		status = http.StatusCreated
	}
	ok(c, status, res)
}

// VoteProposal handles POST /proposals/:id/votes.
//
// A repeated vote on the same side is a no-op and still returns the current
// tally; voting on a resolved proposal yields 409 already_resolved.
func (h *Handlers) VoteProposal(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		return
	}

	res, err := h.propSvc.Vote(c.Request.Context(), req.VoterID, c.Param("id"), req.Value)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "proposal not found")
		case errors.Is(err, services.ErrAlreadyResolved):
			fail(c, http.StatusConflict, ErrCodeAlreadyResolved, "voting already ended for this proposal")
		case errors.Is(err, services.ErrNotCurator):
			fail(c, http.StatusForbidden, ErrCodeNotCurator, "voter is not in the curator group")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		case errors.Is(err, services.ErrExternalUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeUpstream, "curator roster unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, res)
}
