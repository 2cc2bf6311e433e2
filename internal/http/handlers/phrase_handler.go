// Phrase catalog HTTP handlers.
//
// This file exposes read access to the approved catalog:
//   - GET /phrases          (paginated, ordered by score)
//   - GET /phrases/random   (one uniformly random phrase)
//   - GET /phrases/search   (accent-insensitive substring search)
//
// All three take a `kind` query parameter (short|long, default short).
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// phraseKind validates the kind query parameter, defaulting to short.
func phraseKind(c *gin.Context) (string, bool) {
	kind := strings.ToLower(c.DefaultQuery("kind", domain.KindShort))
	if kind != domain.KindShort && kind != domain.KindLong {
		return "", false
	}
	return kind, true
}

// RandomPhrase handles GET /phrases/random.
//
// An empty catalog yields the built-in sentinel phrase (id 0) rather than an
// error, so adapters always have something to say.
func (h *Handlers) RandomPhrase(c *gin.Context) {
	kind, okKind := phraseKind(c)
	if !okKind {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be short or long")
		return
	}

	p, err := h.phraseSvc.Random(c.Request.Context(), kind)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// SearchPhrases handles GET /phrases/search?q=...
func (h *Handlers) SearchPhrases(c *gin.Context) {
	kind, okKind := phraseKind(c)
	if !okKind {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be short or long")
		return
	}
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q must not be empty")
		return
	}

	items, err := h.phraseSvc.Search(c.Request.Context(), kind, q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// ListPhrases handles GET /phrases with page/page_size query parameters.
func (h *Handlers) ListPhrases(c *gin.Context) {
	kind, okKind := phraseKind(c)
	if !okKind {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be short or long")
		return
	}

	page, size := utils.PageParams(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)

	items, total, err := h.phraseSvc.ListPage(c.Request.Context(), kind, page, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
