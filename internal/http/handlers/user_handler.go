// User HTTP handlers.
//
// This file exposes REST endpoints for profiles:
//   - GET    /users/{id}          (profile, alias-resolved)
//   - GET    /users/{id}/badges   (badge progress)
//   - POST   /users/{id}/privacy  (toggle leaderboard opt-out)
//   - DELETE /users/{id}          (right-to-erasure soft delete)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// GetUser handles GET /users/:id.
//
// Alias chains are followed, so querying a linked secondary identity returns
// the master profile the stats live on.
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.FollowLinks(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// GetBadges handles GET /users/:id/badges.
func (h *Handlers) GetBadges(c *gin.Context) {
	prog, err := h.badgeSvc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"badges": prog})
}

// TogglePrivacy handles POST /users/:id/privacy and returns the new state.
func (h *Handlers) TogglePrivacy(c *gin.Context) {
	private, err := h.userSvc.TogglePrivacy(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"is_private": private})
}

// DeleteUser handles DELETE /users/:id.
//
// The profile row survives with an erasure flag; the next interaction from
// the same platform identity re-activates it with fresh consent.
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.userSvc.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
