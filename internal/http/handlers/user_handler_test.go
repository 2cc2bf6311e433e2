package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

func TestGetUser_FollowsLinks(t *testing.T) {
	user := stubUserSvc{follow: func(_ context.Context, id string) (*domain.User, error) {
		if id != "alias-1" {
			t.Fatalf("id = %q", id)
		}
		// The alias resolves to the profile the stats live on.
		return &domain.User{ID: "master-1", Points: 40}, nil
	}}
	r := newTestRouter(New(stubPropSvc{}, stubUsageSvc{}, user, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/alias-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var u domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("json: %v", err)
	}
	if u.ID != "master-1" || u.Points != 40 {
		t.Fatalf("user = %+v; want resolved master", u)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	user := stubUserSvc{follow: func(context.Context, string) (*domain.User, error) {
		return nil, services.ErrNotFound
	}}
	r := newTestRouter(New(stubPropSvc{}, stubUsageSvc{}, user, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
	if er := decodeErr(t, w); er.Code != ErrCodeNotFound {
		t.Fatalf("code=%q", er.Code)
	}
}

func TestGetBadges_WrapsProgress(t *testing.T) {
	badge := stubBadgeSvc{progress: func(_ context.Context, id string) ([]services.BadgeProgress, error) {
		if id != "t1" {
			t.Fatalf("id = %q", id)
		}
		return []services.BadgeProgress{
			{ID: "author", Name: "Autor", Achieved: true, Current: 1, Target: 1},
			{ID: "persistent", Name: "Pesao", Current: 3, Target: 10},
		}, nil
	}}
	r := newTestRouter(New(stubPropSvc{}, stubUsageSvc{}, stubUserSvc{}, badge, stubLinkSvc{}, stubPhraseSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/t1/badges", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Badges []services.BadgeProgress `json:"badges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Badges) != 2 || !out.Badges[0].Achieved || out.Badges[1].Current != 3 {
		t.Fatalf("badges = %+v", out.Badges)
	}
}

func TestTogglePrivacy_ReturnsNewState(t *testing.T) {
	user := stubUserSvc{toggle: func(context.Context, string) (bool, error) { return true, nil }}
	r := newTestRouter(New(stubPropSvc{}, stubUsageSvc{}, user, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := postJSON(r, "/users/t1/privacy", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		IsPrivate bool `json:"is_private"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !out.IsPrivate {
		t.Fatalf("is_private=false, want true")
	}
}

func TestDeleteUser_NoContentAndNotFound(t *testing.T) {
	var erased string
	user := stubUserSvc{erasure: func(_ context.Context, id string) error {
		erased = id
		if id == "ghost" {
			return services.ErrNotFound
		}
		return nil
	}}
	r := newTestRouter(New(stubPropSvc{}, stubUsageSvc{}, user, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/t1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", w.Code)
	}
	if erased != "t1" {
		t.Fatalf("erased %q, want t1", erased)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("204 carried a body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
}
