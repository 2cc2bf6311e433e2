package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

func TestRecordUsage_BindingError(t *testing.T) {
	usage := stubUsageSvc{record: func(context.Context, string, string, string, string, string, *uint, string) (*services.RecordResult, error) {
		t.Fatalf("service should not be called on binding error")
		return nil, nil
	}}
	r := newTestRouter(New(stubPropSvc{}, usage, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	// display_name missing
	w := postJSON(r, "/usages", `{"user_id":"t1","platform":"telegram","action":"command"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestRecordUsage_SuccessAnnouncesBadges(t *testing.T) {
	usage := stubUsageSvc{record: func(_ context.Context, id, platform, displayName, username, action string, phraseID *uint, metadata string) (*services.RecordResult, error) {
		if id != "t1" || platform != "telegram" || displayName != "Paco" || action != "phrase" {
			t.Fatalf("args = %s/%s/%s/%s", id, platform, displayName, action)
		}
		if phraseID == nil || *phraseID != 7 || metadata != "inline" {
			t.Fatalf("phraseID=%v metadata=%q", phraseID, metadata)
		}
		return &services.RecordResult{
			User:      &domain.User{ID: "t1", TotalUsages: 1},
			Phrase:    &domain.Phrase{Kind: domain.KindShort, Text: "maquina"},
			NewBadges: []services.BadgeSpec{{ID: "first-ever-use", Name: "Primer saludo"}},
		}, nil
	}}
	r := newTestRouter(New(stubPropSvc{}, usage, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

	w := postJSON(r, "/usages", `{"user_id":"t1","platform":"telegram","display_name":"Paco","username":"paco","action":"phrase","phrase_id":7,"metadata":"inline"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d. body=%s", w.Code, w.Body.String())
	}

	var res RecordUsageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.User == nil || res.User.ID != "t1" {
		t.Fatalf("user = %+v", res.User)
	}
	if res.Phrase == nil || res.Phrase.Text != "maquina" {
		t.Fatalf("phrase = %+v", res.Phrase)
	}
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "first-ever-use" || res.NewBadges[0].Name != "Primer saludo" {
		t.Fatalf("new badges = %+v", res.NewBadges)
	}
}

func TestRecordUsage_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown action", services.ErrInvalidInput, http.StatusBadRequest},
		{"missing phrase", services.ErrNotFound, http.StatusNotFound},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			usage := stubUsageSvc{record: func(context.Context, string, string, string, string, string, *uint, string) (*services.RecordResult, error) {
				return nil, tc.err
			}}
			r := newTestRouter(New(stubPropSvc{}, usage, stubUserSvc{}, stubBadgeSvc{}, stubLinkSvc{}, stubPhraseSvc{}))

			w := postJSON(r, "/usages", `{"user_id":"t1","platform":"telegram","display_name":"Paco","action":"command"}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantStatus)
			}
			if er := decodeErr(t, w); er.Code == "" {
				t.Fatalf("error envelope missing code: %+v", er)
			}
		})
	}
}
