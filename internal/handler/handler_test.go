package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"studio-settlement/internal/auth"
	"studio-settlement/internal/bot"
	"studio-settlement/internal/calculator"
	"studio-settlement/internal/config"
	"studio-settlement/internal/domain"
	"studio-settlement/internal/middleware"
	"studio-settlement/internal/settlement"
	"studio-settlement/internal/storage/memory"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]domain.MemberSummary
}

func (m *mapCache) Get(_ context.Context, month string) ([]domain.MemberSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[month]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, month string, s []domain.MemberSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[month] = s
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, month string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, month)
	return nil
}

const kimTelegramID int64 = 555

type testEnv struct {
	router   *gin.Engine
	store    *memory.Storage
	cache    *mapCache
	admin    string
	designer string
	adminID  int64
	kimID    int64
	leeID    int64
	channel  int64
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	st := memory.NewStorage()
	hash, err := auth.HashPassword("admin-password")
	if err != nil {
		t.Fatal(err)
	}
	adminID, _ := st.CreateMember(ctx, domain.Member{Name: "Boss", Email: "boss@studio.test", Role: domain.RoleAdmin, Active: true, PasswordHash: hash})
	kimTelegram := kimTelegramID
	kimID, _ := st.CreateMember(ctx, domain.Member{Name: "Kim", Email: "kim@studio.test", Role: domain.RoleDesigner, Active: true, BankName: "Shinhan", BankAccount: "110-123", TelegramID: &kimTelegram})
	leeID, _ := st.CreateMember(ctx, domain.Member{Name: "Lee", Email: "lee@studio.test", Role: domain.RoleDesigner, Active: true})
	_, _ = st.CreateMember(ctx, domain.Member{Name: "Gone", Email: "gone@studio.test", Role: domain.RoleDesigner, Active: false, PasswordHash: hash})
	ch, _ := st.CreateChannel(ctx, domain.Channel{Name: "Marketplace", FeeRate: 0.21})

	tokens := auth.NewTokenService(config.Config{JWTSecret: "test-secret-0123456789", JWTExpiresIn: time.Hour})
	adminTok, _, _ := tokens.GenerateToken(auth.Identity{MemberID: adminID, Role: domain.RoleAdmin})
	kimTok, _, _ := tokens.GenerateToken(auth.Identity{MemberID: kimID, Role: domain.RoleDesigner})

	cache := &mapCache{data: map[string][]domain.MemberSummary{}}
	svc := settlement.NewService(st, calculator.DefaultRateTable(), nil, 2)
	h := NewHandler(st, svc, tokens, cache)

	return &testEnv{
		router:   NewRouter(h, middleware.NewAuthMiddleware(tokens), RouterOptions{CORSOrigins: []string{"http://localhost:5173"}}),
		store:    st,
		cache:    cache,
		admin:    adminTok,
		designer: kimTok,
		adminID:  adminID,
		kimID:    kimID,
		leeID:    leeID,
		channel:  ch,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

// === Auth ===

func TestLogin(t *testing.T) {
	e := newEnv(t)

	testCases := []struct {
		name string
		body any
		want int
	}{
		{"ok", gin.H{"email": "BOSS@studio.test", "password": "admin-password"}, http.StatusOK},
		{"wrong password", gin.H{"email": "boss@studio.test", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", gin.H{"email": "who@studio.test", "password": "admin-password"}, http.StatusUnauthorized},
		{"inactive member", gin.H{"email": "gone@studio.test", "password": "admin-password"}, http.StatusUnauthorized},
		{"no password set", gin.H{"email": "kim@studio.test", "password": "anything"}, http.StatusUnauthorized},
		{"invalid email", gin.H{"email": "boss", "password": "x"}, http.StatusBadRequest},
		{"bad json", "{", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/login", "", tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK {
				resp := decode[map[string]any](t, w)
				if tok, _ := resp["token"].(string); tok == "" {
					t.Error("no token in response")
				}
				if strings.Contains(w.Body.String(), "password_hash") {
					t.Error("password hash leaked")
				}
			}
		})
	}
}

func TestRoutes_RequireAuthAndRole(t *testing.T) {
	e := newEnv(t)

	if w := e.do(t, http.MethodGet, "/api/v1/projects", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/channels", e.designer, gin.H{"name": "Shop", "fee_rate": 0.1}); w.Code != http.StatusForbidden {
		t.Errorf("designer creating channel: status %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/generate", e.designer, nil); w.Code != http.StatusForbidden {
		t.Errorf("designer generating settlement: status %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health: status %d", w.Code)
	}
}

// === Calculator ===

func TestCalculateFees(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/calculator/fees", e.designer, gin.H{"gross_amount": 1_100_000, "channel_fee_rate": 0.21})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decode[struct {
		RateVersion string                  `json:"rate_version"`
		Fees        calculator.FeeBreakdown `json:"fees"`
	}](t, w)
	if resp.RateVersion != "2024-01" || resp.Fees.VATAmount != 110_000 || resp.Fees.DistributableNet != 653_400 {
		t.Errorf("unexpected response: %+v", resp)
	}

	testCases := []struct {
		name string
		body gin.H
		want string
	}{
		{"rate above one", gin.H{"gross_amount": 1000, "channel_fee_rate": 1.5}, "fraction"},
		{"discount above net", gin.H{"gross_amount": 1000, "discount_net": 5000}, "discount"},
		{"bad month", gin.H{"gross_amount": 1000, "month": "2026-9"}, "YYYY-MM"},
		{"month before rates", gin.H{"gross_amount": 1000, "month": "2019-01"}, "no rate version"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/calculator/fees", e.designer, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Errorf("body %s does not mention %q", w.Body.String(), tc.want)
			}
		})
	}
}

func TestCalculateSettlement(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/calculator/settlement", e.designer,
		gin.H{"gross_amount": 1_000_000, "designer_percent": 40})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Settlement calculator.SettlementAmount `json:"settlement"`
	}](t, w)
	if resp.Settlement.BeforeWithholding != 360_000 || resp.Settlement.WithholdingTax != 11_880 || resp.Settlement.AfterWithholding != 348_120 {
		t.Errorf("unexpected settlement: %+v", resp.Settlement)
	}
}

// === Members ===

func TestMembers_RedactBankDetails(t *testing.T) {
	e := newEnv(t)
	path := "/api/v1/members/" + itoa(e.kimID)

	self := decode[domain.Member](t, e.do(t, http.MethodGet, path, e.designer, nil))
	if self.BankAccount != "110-123" {
		t.Errorf("member cannot see own bank account: %+v", self)
	}
	admin := decode[domain.Member](t, e.do(t, http.MethodGet, path, e.admin, nil))
	if admin.BankAccount != "110-123" {
		t.Errorf("admin cannot see bank account: %+v", admin)
	}

	// Lee looks at Kim
	tokens := auth.NewTokenService(config.Config{JWTSecret: "test-secret-0123456789", JWTExpiresIn: time.Hour})
	leeTok, _, _ := tokens.GenerateToken(auth.Identity{MemberID: e.leeID, Role: domain.RoleDesigner})
	other := decode[domain.Member](t, e.do(t, http.MethodGet, path, leeTok, nil))
	if other.BankAccount != "" || other.BankName != "" {
		t.Errorf("bank details leaked to another designer: %+v", other)
	}
}

func TestMembers_CreateAndConflict(t *testing.T) {
	e := newEnv(t)

	body := gin.H{"name": "Park", "email": "park@studio.test", "role": "designer", "password": "park-password"}
	w := e.do(t, http.MethodPost, "/api/v1/members", e.admin, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if m := decode[domain.Member](t, w); !m.Active || m.Role != domain.RoleDesigner {
		t.Errorf("created member = %+v", m)
	}

	if w := e.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"email": "park@studio.test", "password": "park-password"}); w.Code != http.StatusOK {
		t.Errorf("new member cannot log in: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/members", e.admin, body); w.Code != http.StatusConflict {
		t.Errorf("duplicate email: status %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/members", e.admin, gin.H{"name": "X", "email": "x@studio.test", "role": "owner"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown role: status %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/v1/members/"+itoa(e.adminID), e.admin, nil); w.Code != http.StatusConflict {
		t.Errorf("self delete: status %d", w.Code)
	}
}

// === Channels ===

func TestChannels_FeeRateLimit(t *testing.T) {
	e := newEnv(t)

	testCases := []struct {
		name string
		rate float64
		want int
	}{
		{"at the limit", 0.87, http.StatusCreated},
		{"above the limit", 0.88, http.StatusBadRequest},
		{"whole net", 1, http.StatusBadRequest},
		{"free channel", 0, http.StatusCreated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/channels", e.admin, gin.H{"name": "Shop " + tc.name, "fee_rate": tc.rate})
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusBadRequest && !strings.Contains(w.Body.String(), "0.87") {
				t.Errorf("body %s does not name the limit", w.Body.String())
			}
		})
	}

	w := e.do(t, http.MethodPut, "/api/v1/channels/"+itoa(e.channel), e.admin, gin.H{"name": "Marketplace", "fee_rate": 0.9})
	if w.Code != http.StatusBadRequest {
		t.Errorf("update above the limit: status %d", w.Code)
	}
}

// === Projects ===

func projectBody(e *testEnv, designers ...gin.H) gin.H {
	return gin.H{
		"name":         "Brand kit",
		"channel_id":   e.channel,
		"gross_amount": 1_100_000,
		"status":       "completed",
		"settle_month": "2026-09",
		"designers":    designers,
	}
}

func withField(body gin.H, key string, value any) gin.H {
	body[key] = value
	return body
}

func TestProjects(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/projects", e.designer, projectBody(e,
		gin.H{"member_id": e.kimID, "percent": 25, "bonus_pct": 5},
		gin.H{"member_id": e.leeID, "percent": 15},
	))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", w.Code, w.Body.String())
	}
	p := decode[domain.Project](t, w)
	if p.ChannelName != "Marketplace" || len(p.Designers) != 2 || p.Designers[0].MemberName != "Kim" {
		t.Errorf("created project = %+v", p)
	}

	w = e.do(t, http.MethodGet, "/api/v1/projects/"+itoa(p.ID)+"/preview", e.designer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: status %d (%s)", w.Code, w.Body.String())
	}
	preview := decode[struct {
		Breakdown calculator.ProjectBreakdown `json:"breakdown"`
	}](t, w)
	if preview.Breakdown.Fees.DistributableNet != 653_400 || preview.Breakdown.Payouts[0].BeforeWithholding != 297_000 {
		t.Errorf("preview = %+v", preview.Breakdown)
	}

	rejected := []struct {
		name string
		body gin.H
		want int
	}{
		{"pool exceeded", projectBody(e, gin.H{"member_id": e.kimID, "percent": 30}, gin.H{"member_id": e.leeID, "percent": 20}), http.StatusBadRequest},
		{"bonus cap exceeded", projectBody(e, gin.H{"member_id": e.kimID, "percent": 10, "bonus_pct": 21}), http.StatusBadRequest},
		{"duplicate designer", projectBody(e, gin.H{"member_id": e.kimID, "percent": 10}, gin.H{"member_id": e.kimID, "percent": 10}), http.StatusBadRequest},
		{"unknown member", projectBody(e, gin.H{"member_id": 9999, "percent": 10}), http.StatusBadRequest},
		{"unknown contact", withField(projectBody(e), "contact_id", 4242), http.StatusBadRequest},
		{"unknown channel", withField(projectBody(e), "channel_id", 4242), http.StatusBadRequest},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, "/api/v1/projects", e.designer, tc.body); w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}

	t.Run("completed without month", func(t *testing.T) {
		body := projectBody(e)
		delete(body, "settle_month")
		if w := e.do(t, http.MethodPost, "/api/v1/projects", e.designer, body); w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
		}
	})

	t.Run("filter and delete", func(t *testing.T) {
		list := decode[[]domain.Project](t, e.do(t, http.MethodGet, "/api/v1/projects?month=2026-09&member_id="+itoa(e.leeID), e.designer, nil))
		if len(list) != 1 {
			t.Fatalf("filtered list = %+v", list)
		}
		if w := e.do(t, http.MethodGet, "/api/v1/projects?status=archived", e.designer, nil); w.Code != http.StatusBadRequest {
			t.Errorf("bad status filter: %d", w.Code)
		}
		if w := e.do(t, http.MethodDelete, "/api/v1/channels/"+itoa(e.channel), e.admin, nil); w.Code != http.StatusConflict {
			t.Errorf("delete channel in use: %d", w.Code)
		}
		if w := e.do(t, http.MethodDelete, "/api/v1/projects/"+itoa(p.ID), e.designer, nil); w.Code != http.StatusNoContent {
			t.Fatalf("delete: %d", w.Code)
		}
		if w := e.do(t, http.MethodGet, "/api/v1/projects/"+itoa(p.ID), e.designer, nil); w.Code != http.StatusNotFound {
			t.Errorf("get deleted: %d", w.Code)
		}
	})

	feed := decode[[]domain.FeedItem](t, e.do(t, http.MethodGet, "/api/v1/feed?limit=5", e.designer, nil))
	if len(feed) == 0 || feed[0].Kind != domain.FeedProjectDeleted {
		t.Errorf("feed = %+v", feed)
	}
}

func TestFeed_PostNote(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/feed", e.designer, gin.H{"message": "Invoice sent to client"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	note := decode[domain.FeedItem](t, w)
	if note.ActorID == nil || *note.ActorID != e.kimID || note.Kind != domain.FeedNote {
		t.Errorf("note = %+v", note)
	}

	if w := e.do(t, http.MethodPost, "/api/v1/feed", e.designer, gin.H{"message": "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank note: status %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/feed?limit=0", e.designer, nil); w.Code != http.StatusBadRequest {
		t.Errorf("zero limit: status %d", w.Code)
	}
	items := decode[[]domain.FeedItem](t, e.do(t, http.MethodGet, "/api/v1/feed?before="+itoa(note.ID+1), e.designer, nil))
	if len(items) != 1 || items[0].Message != "Invoice sent to client" {
		t.Errorf("feed = %+v", items)
	}
}

// === Telegram ===

type recordingSender struct {
	sent []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramWebhook(t *testing.T) {
	e := newEnv(t)
	sender := &recordingSender{}
	router := gin.New()
	router.POST("/telegram", TelegramWebhook(bot.NewHandler(e.store, calculator.DefaultRateTable()), sender, "hook-secret_1"))

	update := func(chatID int64, text string) string {
		return `{"update_id":1,"message":{"message_id":1,"date":0,"from":{"id":555,"first_name":"Kim"},"chat":{"id":` +
			itoa(chatID) + `,"type":"private"},"text":"` + text + `"}}`
	}
	post := func(secret, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set(HeaderTelegramSecret, secret)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	testCases := []struct {
		name   string
		secret string
		chat   int64
		text   string
		want   int
		sent   int
	}{
		{"unsigned update", "", 999, "/month", http.StatusUnauthorized, 0},
		{"wrong secret", "guess", 999, "/month", http.StatusUnauthorized, 0},
		{"secret prefix", "hook-secret", kimTelegramID, "/month", http.StatusUnauthorized, 0},
		{"signed private chat", "hook-secret_1", kimTelegramID, "/month 2026-09", http.StatusOK, 1},
		{"signed foreign chat", "hook-secret_1", 999, "/month 2026-09", http.StatusOK, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := post(tc.secret, update(tc.chat, tc.text)); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
			if len(sender.sent) != tc.sent {
				t.Fatalf("sent %d replies in total, want %d", len(sender.sent), tc.sent)
			}
		})
	}

	if len(sender.sent) < 2 {
		t.FailNow()
	}
	if got := sender.sent[0]; got.ChatID != kimTelegramID || !strings.Contains(got.Text, "No payouts for 2026-09") {
		t.Errorf("private reply = %+v", got)
	}
	if got := sender.sent[1]; got.ChatID != 999 || !strings.Contains(got.Text, "private chat") {
		t.Errorf("foreign chat reply = %+v", got)
	}
}

// === Settlements ===

func TestSettlementFlow(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/projects", e.designer, projectBody(e,
		gin.H{"member_id": e.kimID, "percent": 25, "bonus_pct": 5},
		gin.H{"member_id": e.leeID, "percent": 15},
	))
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: %d (%s)", w.Code, w.Body.String())
	}

	preview := decode[domain.Settlement](t, e.do(t, http.MethodGet, "/api/v1/settlements/2026-09/preview", e.designer, nil))
	if len(preview.Items) != 2 || preview.ID != 0 {
		t.Fatalf("preview = %+v", preview)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/settlements/2026-09", e.designer, nil); w.Code != http.StatusNotFound {
		t.Errorf("settlement before generate: %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/generate", e.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d (%s)", w.Code, w.Body.String())
	}
	st := decode[domain.Settlement](t, w)
	if st.Status != domain.SettlementDraft || st.TotalBeforeWithholding != preview.TotalBeforeWithholding {
		t.Errorf("generated = %+v", st)
	}

	first := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/v1/settlements/2026-09/summary", e.designer, nil))
	second := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/v1/settlements/2026-09/summary", e.designer, nil))
	if first["cached"] != false || second["cached"] != true {
		t.Errorf("cache flags: first %v, second %v", first["cached"], second["cached"])
	}

	w = e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/status", e.admin, gin.H{"status": "confirmed"})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d (%s)", w.Code, w.Body.String())
	}
	if _, hit, _ := e.cache.Get(context.Background(), "2026-09"); hit {
		t.Error("summary cache not invalidated on status change")
	}

	if w := e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/generate", e.admin, nil); w.Code != http.StatusConflict {
		t.Errorf("generate confirmed month: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/status", e.admin, gin.H{"status": "confirmed"}); w.Code != http.StatusConflict {
		t.Errorf("confirm twice: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/v1/settlements/2026-09/status", e.admin, gin.H{"status": "archived"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/v1/settlements/September", e.designer, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad month: %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/v1/settlements/2026-09/export", e.designer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "\xEF\xBB\xBF") {
		t.Error("CSV does not start with a UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\xEF\xBB\xBF")), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "month,status,project_id") {
		t.Fatalf("CSV = %q", body)
	}
	if !strings.Contains(lines[1], "2026-09,confirmed,") || !strings.HasSuffix(lines[1], ",297000,9801,287199") {
		t.Errorf("first row = %q", lines[1])
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "settlement-2026-09.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	list := decode[[]domain.Settlement](t, e.do(t, http.MethodGet, "/api/v1/settlements", e.designer, nil))
	if len(list) != 1 || list[0].Status != domain.SettlementConfirmed {
		t.Errorf("list = %+v", list)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
