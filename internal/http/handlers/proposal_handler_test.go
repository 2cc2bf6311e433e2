package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// ---- stubs to satisfy handlers.New() dependencies ----
//
// Each stub exposes function fields; the zero value is a benign no-op so a
// test only wires the endpoint under scrutiny.

type stubPropSvc struct {
	submit func(ctx context.Context, authorID, platform, kind, text, chatID, msgID string) (*services.SubmitResult, error)
	vote   func(ctx context.Context, voterID, proposalID string, sign int) (*services.VoteResult, error)
}

func (s stubPropSvc) Submit(ctx context.Context, authorID, platform, kind, text, chatID, msgID string) (*services.SubmitResult, error) {
	if s.submit != nil {
		return s.submit(ctx, authorID, platform, kind, text, chatID, msgID)
	}
	return &services.SubmitResult{Outcome: services.SubmitAccepted}, nil
}

func (s stubPropSvc) Vote(ctx context.Context, voterID, proposalID string, sign int) (*services.VoteResult, error) {
	if s.vote != nil {
		return s.vote(ctx, voterID, proposalID, sign)
	}
	return &services.VoteResult{Status: services.VoteOpen}, nil
}

type stubUsageSvc struct {
	record func(ctx context.Context, id, platform, displayName, username, action string, phraseID *uint, metadata string) (*services.RecordResult, error)
}

func (s stubUsageSvc) Record(ctx context.Context, id, platform, displayName, username, action string, phraseID *uint, metadata string) (*services.RecordResult, error) {
	if s.record != nil {
		return s.record(ctx, id, platform, displayName, username, action, phraseID, metadata)
	}
	return &services.RecordResult{User: &domain.User{ID: id}}, nil
}

type stubUserSvc struct {
	get     func(ctx context.Context, id string) (*domain.User, error)
	follow  func(ctx context.Context, id string) (*domain.User, error)
	toggle  func(ctx context.Context, id string) (bool, error)
	erasure func(ctx context.Context, id string) error
}

func (s stubUserSvc) Get(ctx context.Context, id string) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (s stubUserSvc) FollowLinks(ctx context.Context, id string) (*domain.User, error) {
	if s.follow != nil {
		return s.follow(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (s stubUserSvc) TogglePrivacy(ctx context.Context, id string) (bool, error) {
	if s.toggle != nil {
		return s.toggle(ctx, id)
	}
	return false, nil
}

func (s stubUserSvc) SoftDelete(ctx context.Context, id string) error {
	if s.erasure != nil {
		return s.erasure(ctx, id)
	}
	return nil
}

type stubBadgeSvc struct {
	progress func(ctx context.Context, id string) ([]services.BadgeProgress, error)
}

func (s stubBadgeSvc) Progress(ctx context.Context, id string) ([]services.BadgeProgress, error) {
	if s.progress != nil {
		return s.progress(ctx, id)
	}
	return nil, nil
}

type stubLinkSvc struct {
	request  func(ctx context.Context, id, platform string) (string, error)
	complete func(ctx context.Context, token, targetID, targetPlatform string) (*services.LinkResult, error)
}

func (s stubLinkSvc) Request(ctx context.Context, id, platform string) (string, error) {
	if s.request != nil {
		return s.request(ctx, id, platform)
	}
	return "A1B2C3", nil
}

func (s stubLinkSvc) Complete(ctx context.Context, token, targetID, targetPlatform string) (*services.LinkResult, error) {
	if s.complete != nil {
		return s.complete(ctx, token, targetID, targetPlatform)
	}
	return &services.LinkResult{Master: &domain.User{ID: targetID}}, nil
}

type stubPhraseSvc struct {
	random func(ctx context.Context, kind string) (*domain.Phrase, error)
	search func(ctx context.Context, kind, query string) ([]domain.Phrase, error)
	list   func(ctx context.Context, kind string, page, pageSize int) ([]domain.Phrase, int64, error)
}

func (s stubPhraseSvc) Random(ctx context.Context, kind string) (*domain.Phrase, error) {
	if s.random != nil {
		return s.random(ctx, kind)
	}
	return &domain.Phrase{Kind: kind}, nil
}

func (s stubPhraseSvc) Search(ctx context.Context, kind, query string) ([]domain.Phrase, error) {
	if s.search != nil {
		return s.search(ctx, kind, query)
	}
	return nil, nil
}

func (s stubPhraseSvc) ListPage(ctx context.Context, kind string, page, pageSize int) ([]domain.Phrase, int64, error) {
	if s.list != nil {
		return s.list(ctx, kind, page, pageSize)
	}
	return nil, 0, nil
}

// newTestRouter mounts the full route set on a bare engine so every handler
// test exercises the same paths the adapters call.
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/proposals", h.SubmitProposal)
	r.POST("/proposals/:id/votes", h.VoteProposal)
	r.POST("/usages", h.RecordUsage)
	r.GET("/users/:id", h.GetUser)
	r.GET("/users/:id/badges", h.GetBadges)
	r.POST("/users/:id/privacy", h.TogglePrivacy)
	r.DELETE("/users/:id", h.DeleteUser)
	r.POST("/links", h.RequestLink)
	r.POST("/links/complete", h.CompleteLink)
	r.GET("/phrases", h.ListPhrases)
	r.GET("/phrases/random", h.RandomPhrase)
	r.GET("/phrases/search", h.SearchPhrases)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error envelope json: %v (body=%s)", err, w.Body.String())
	}
	return er
}

// ---- tests ----

func TestSubmitProposal_BindingError(t *testing.T) {
	prop := stubPropSvc{submit: func(context.Context, string, string, string, string, string, string) (*services.SubmitResult, error) {
		t.Fatalf("service should not be called on binding error")
		return nil, nil
	}}
	r := newTestRouter(New(prop, stubUsageSvc{}, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	// platform outside the oneof set
	w := postJSON(r, "/proposals", `{"author_id":"a1","platform":"irc","kind":"short","text":"x","origin_chat_id":"c","origin_message_id":"m"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if er := decodeErr(t, w); er.Code != ErrCodeBadRequest {
		t.Fatalf("code=%q, want %q", er.Code, ErrCodeBadRequest)
	}
}

func TestSubmitProposal_StatusByOutcome(t *testing.T) {
	tests := []struct {
		name       string
		outcome    services.SubmitOutcome
		wantStatus int
	}{
		{"accepted opens 201", services.SubmitAccepted, http.StatusCreated},
		{"duplicate is 200", services.SubmitDuplicateCatalog, http.StatusOK},
		{"empty text is 200", services.SubmitEmptyText, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prop := stubPropSvc{submit: func(_ context.Context, authorID, platform, kind, text, chatID, msgID string) (*services.SubmitResult, error) {
				if authorID != "a1" || platform != "telegram" || kind != "short" || chatID != "c9" || msgID != "m1" {
					t.Fatalf("args = %s/%s/%s/%s/%s", authorID, platform, kind, chatID, msgID)
				}
				return &services.SubmitResult{Outcome: tc.outcome, MatchRatio: 93}, nil
			}}
			r := newTestRouter(New(prop, stubUsageSvc{}, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

			w := postJSON(r, "/proposals", `{"author_id":"a1","platform":"telegram","kind":"short","text":"figura","origin_chat_id":"c9","origin_message_id":"m1"}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			var res services.SubmitResult
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("json: %v", err)
			}
			if res.Outcome != tc.outcome {
				t.Fatalf("outcome=%q, want %q", res.Outcome, tc.outcome)
			}
		})
	}
}

func TestSubmitProposal_EmptyTextReachesService(t *testing.T) {
	// Empty text is a business outcome, not a binding failure.
	called := false
	prop := stubPropSvc{submit: func(_ context.Context, _, _, _, text, _, _ string) (*services.SubmitResult, error) {
		called = true
		if text != "" {
			t.Fatalf("text=%q, want empty", text)
		}
		return &services.SubmitResult{Outcome: services.SubmitEmptyText}, nil
	}}
	r := newTestRouter(New(prop, stubUsageSvc{}, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := postJSON(r, "/proposals", `{"author_id":"a1","platform":"telegram","kind":"short","origin_chat_id":"c","origin_message_id":"m"}`)
	if !called {
		t.Fatalf("service was not called")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}

func TestVoteProposal_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not_found", services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"resolved", services.ErrAlreadyResolved, http.StatusConflict, ErrCodeAlreadyResolved},
		{"not_curator", services.ErrNotCurator, http.StatusForbidden, ErrCodeNotCurator},
		{"invalid", services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
		{"roster_down", services.ErrExternalUnavailable, http.StatusServiceUnavailable, ErrCodeUpstream},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prop := stubPropSvc{vote: func(_ context.Context, voterID, proposalID string, sign int) (*services.VoteResult, error) {
				if voterID != "c1" || proposalID != "chat:msg" || sign != 1 {
					t.Fatalf("args = %s/%s/%d", voterID, proposalID, sign)
				}
				return nil, tc.err
			}}
			r := newTestRouter(New(prop, stubUsageSvc{}, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

			w := postJSON(r, "/proposals/chat:msg/votes", `{"voter_id":"c1","value":1}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			if er := decodeErr(t, w); er.Code != tc.wantCode {
				t.Fatalf("code=%q, want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestVoteProposal_BindingAndSuccess(t *testing.T) {
	prop := stubPropSvc{vote: func(context.Context, string, string, int) (*services.VoteResult, error) {
		return &services.VoteResult{Status: services.VoteApproved, Likes: 2, Dislikes: 0, Quorum: 2}, nil
	}}
	r := newTestRouter(New(prop, stubUsageSvc{}, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	// Zero is outside the oneof=-1 1 set.
	w := postJSON(r, "/proposals/p1/votes", `{"voter_id":"c1","value":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("value=0 status=%d, want 400", w.Code)
	}

	w = postJSON(r, "/proposals/p1/votes", `{"voter_id":"c1","value":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
	var res services.VoteResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Status != services.VoteApproved || res.Likes != 2 || res.Quorum != 2 {
		t.Fatalf("result = %+v", res)
	}
}
