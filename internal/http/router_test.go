package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cunaobot/go-cunao-backend/internal/config"
	"github.com/cunaobot/go-cunao-backend/internal/notify"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
	"github.com/cunaobot/go-cunao-backend/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cunaorouter_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   50,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Curation: config.CurationConfig{
			DupCatalog:        90,
			DupOpenProposal:   90,
			DupClosedProposal: 90,
			CuratorChannel:    "curator-channel",
			CuratorTTL:        time.Minute,
		},
		LinkTTL: 15 * time.Minute,
	}
}

func TestRegisterRoutes_Health_Metrics_CORS_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()

	RegisterRoutes(r, newTestDB(t), notify.LogNotifier{}, notify.ParseStaticCurators("c1"), cfg)

	// /healthz works
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	// Security posture applies everywhere
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	// Correlation id is minted for every request
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 envelope
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != "not_found" {
		t.Fatalf("fallback envelope = %s (%v)", w.Body.String(), err)
	}

	// NoMethod → 405 (POST /healthz)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}

	RegisterRoutes(r, newTestDB(t), notify.LogNotifier{}, notify.ParseStaticCurators("c1"), cfg)

	// Allowed origin is echoed back
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("ACAO = %q, want echoed origin", got)
	}

	// Unlisted origin gets nothing
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("ACAO = %q for unlisted origin, want empty", got)
	}
}

// TestRegisterRoutes_CurationFlow drives the real service stack end to end:
// submit a phrase through the API, approve it with the single configured
// curator, then read it back from the catalog.
func TestRegisterRoutes_CurationFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	RegisterRoutes(r, newTestDB(t), notify.LogNotifier{}, notify.ParseStaticCurators("c1"), testConfig())

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/proposals", `{"author_id":"a1","platform":"telegram","kind":"short","text":"figura","origin_chat_id":"c9","origin_message_id":"m1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit = %d. body=%s", w.Code, w.Body.String())
	}
	var sub services.SubmitResult
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatalf("json: %v", err)
	}
	if sub.Outcome != services.SubmitAccepted || sub.Proposal == nil || sub.Proposal.ID != "c9:m1" {
		t.Fatalf("submit result = %+v", sub)
	}

	// One curator, quorum of one: a single like admits the phrase.
	w = post("/api/v1/proposals/c9:m1/votes", `{"voter_id":"c1","value":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("vote = %d. body=%s", w.Code, w.Body.String())
	}
	var vr services.VoteResult
	if err := json.Unmarshal(w.Body.Bytes(), &vr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if vr.Status != services.VoteApproved || vr.Phrase == nil {
		t.Fatalf("vote result = %+v", vr)
	}

	// Approved phrase is now served by the catalog.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/phrases/search?q=figura", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var out struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Total != 1 {
		t.Fatalf("search body = %s (%v)", w.Body.String(), err)
	}

	// Voting again on the resolved proposal is a conflict.
	w = post("/api/v1/proposals/c9:m1/votes", `{"voter_id":"c1","value":1}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("vote after resolve = %d, want 409", w.Code)
	}

	// The stats snapshot reflects the admission: one short phrase with a
	// known update stamp, no proposals left in the backlog.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d", w.Code)
	}
	var st struct {
		CatalogShort struct {
			Count     int64      `json:"count"`
			UpdatedAt *time.Time `json:"updated_at"`
		} `json:"catalog_short"`
		CatalogLong struct {
			Count int64 `json:"count"`
		} `json:"catalog_long"`
		OpenProposals int64 `json:"open_proposals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("stats json: %v (body=%s)", err, w.Body.String())
	}
	if st.CatalogShort.Count != 1 || st.CatalogShort.UpdatedAt == nil {
		t.Fatalf("catalog_short = %+v", st.CatalogShort)
	}
	if st.CatalogLong.Count != 0 || st.OpenProposals != 0 {
		t.Fatalf("stats = %+v; want empty long catalog and no backlog", st)
	}
}
