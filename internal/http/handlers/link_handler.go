// Account-link HTTP handlers.
//
// This file exposes the two-step cross-platform linking flow:
//   - POST /links           (mint a short-lived token on platform A)
//   - POST /links/complete  (redeem the token on platform B, merging stats)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// RequestLinkRequest asks for a link token on behalf of an existing profile.
type RequestLinkRequest struct {
	UserID   string `json:"user_id"  binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=telegram slack"`
}

// CompleteLinkRequest redeems a token from the other platform. TargetID is
// the identity typing the token; it becomes (or resolves to) the master.
type CompleteLinkRequest struct {
	Token    string `json:"token"     binding:"required,len=6"`
	TargetID string `json:"target_id" binding:"required"`
	Platform string `json:"platform"  binding:"required,oneof=telegram slack"`
}

// RequestLink handles POST /links.
func (h *Handlers) RequestLink(c *gin.Context) {
	var req RequestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid link request payload")
		return
	}

	token, err := h.linkSvc.Request(c.Request.Context(), req.UserID, req.Platform)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, gin.H{"token": token})
}

// CompleteLink handles POST /links/complete.
func (h *Handlers) CompleteLink(c *gin.Context) {
	var req CompleteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid link completion payload")
		return
	}

	res, err := h.linkSvc.Complete(c.Request.Context(), req.Token, req.TargetID, req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown link token")
		case errors.Is(err, services.ErrLinkExpired):
			fail(c, http.StatusGone, ErrCodeLinkExpired, "link token expired")
		case errors.Is(err, services.ErrSameIdentity):
			fail(c, http.StatusConflict, ErrCodeSameIdentity, "cannot link an identity to itself")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}
