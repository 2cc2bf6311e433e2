// Usage HTTP handlers.
//
// This file exposes the single ingestion endpoint the platform adapters call
// for every tracked interaction:
//   - POST /usages
//
// One call upserts the profile, resolves alias links, appends the ledger
// event, bumps phrase counters when applicable, and re-evaluates badges.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// RecordUsageRequest is the JSON payload for recording one interaction.
//
// Action must be one of the tracked actions (command, phrase, audio,
// sticker, reaction_received, gift_sent, ...). PhraseID is set for phrase,
// audio, and sticker actions and ignored otherwise.
type RecordUsageRequest struct {
	UserID      string `json:"user_id"  binding:"required"`
	Platform    string `json:"platform" binding:"required,oneof=telegram slack"`
	DisplayName string `json:"display_name" binding:"required"`
	Username    string `json:"username"`
	Action      string `json:"action" binding:"required"`
	PhraseID    *uint  `json:"phrase_id,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// RecordUsageResponse reports the post-usage profile state plus any badges
// earned by this interaction, so adapters can announce them in-chat.
type RecordUsageResponse struct {
	User      *domain.User   `json:"user"`
	Phrase    *domain.Phrase `json:"phrase,omitempty"`
	NewBadges []BadgeBrief   `json:"new_badges,omitempty"`
}

// BadgeBrief is the announcement shape for a freshly earned badge.
type BadgeBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecordUsage handles POST /usages.
func (h *Handlers) RecordUsage(c *gin.Context) {
	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid usage payload")
		return
	}

	res, err := h.usageSvc.Record(c.Request.Context(), req.UserID, req.Platform, req.DisplayName, req.Username, req.Action, req.PhraseID, req.Metadata)
	if err != nil {
		switch err {
		case services.ErrInvalidInput:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown action or missing phrase_id")
		case services.ErrNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "phrase not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	out := RecordUsageResponse{User: res.User, Phrase: res.Phrase}
	for _, b := range res.NewBadges {
		out.NewBadges = append(out.NewBadges, BadgeBrief{ID: b.ID, Name: b.Name})
	}
	ok(c, http.StatusOK, out)
}
