package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"

	"rankwatch/internal/auth"
	"rankwatch/internal/db"
	"rankwatch/internal/models"
	"rankwatch/internal/rank"
)

type memoryStore struct {
	mu       sync.Mutex
	domains  map[uuid.UUID]*models.Domain
	keywords map[uuid.UUID]*models.Keyword
}

func newMemoryStore() *memoryStore {
	return &memoryStore{domains: map[uuid.UUID]*models.Domain{}, keywords: map[uuid.UUID]*models.Keyword{}}
}

func (m *memoryStore) CreateDomain(_ context.Context, d *models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.domains {
		if existing.UserID == d.UserID && existing.URL == d.URL {
			return db.ErrDuplicateDomain
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	m.domains[d.ID] = &cp
	return nil
}

func (m *memoryStore) GetDomainByID(_ context.Context, id uuid.UUID) (*models.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[id]
	if !ok {
		return nil, db.ErrDomainNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memoryStore) ListDomainsByUser(_ context.Context, userID uuid.UUID) ([]models.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Domain
	for _, d := range m.domains {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteDomain(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[id]; !ok {
		return db.ErrDomainNotFound
	}
	delete(m.domains, id)
	for kid, kw := range m.keywords {
		if kw.DomainID == id {
			delete(m.keywords, kid)
		}
	}
	return nil
}

func (m *memoryStore) CreateKeyword(_ context.Context, kw *models.Keyword) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.keywords {
		if existing.DomainID == kw.DomainID && existing.Keyword == kw.Keyword {
			return db.ErrDuplicateKeyword
		}
	}
	kw.ID = uuid.New()
	kw.History = []models.RankingHistoryEntry{}
	cp := *kw
	m.keywords[kw.ID] = &cp
	return nil
}

func (m *memoryStore) GetKeywordByID(_ context.Context, id uuid.UUID) (*models.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kw, ok := m.keywords[id]
	if !ok {
		return nil, db.ErrKeywordNotFound
	}
	cp := *kw
	return &cp, nil
}

func (m *memoryStore) ListKeywordsByDomain(_ context.Context, domainID uuid.UUID) ([]models.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Keyword
	for _, kw := range m.keywords {
		if kw.DomainID == domainID {
			out = append(out, *kw)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteKeyword(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keywords[id]; !ok {
		return db.ErrKeywordNotFound
	}
	delete(m.keywords, id)
	return nil
}

type stubTracker struct {
	result *models.RankCheckResult
	batch  *models.BatchCheckResult
	err    error
}

func (s *stubTracker) Check(_ context.Context, kw *models.Keyword) (*models.RankCheckResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	res.KeywordID = kw.ID
	return &res, nil
}

func (s *stubTracker) CheckDomain(_ context.Context, domainID uuid.UUID) (*models.BatchCheckResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

type stubResolver struct {
	outcome rank.Outcome
	err     error
	got     [2]string
}

func (s *stubResolver) Resolve(_ context.Context, domainURL, keyword string) (rank.Outcome, error) {
	s.got = [2]string{domainURL, keyword}
	return s.outcome, s.err
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

type testEnv struct {
	app      *fiber.App
	store    *memoryStore
	tracker  *stubTracker
	resolver *stubResolver
	owner    *models.User
	other    *models.User
}

// newTestEnv wires the handlers behind a middleware that signs in the user
// named by the X-Test-User header ("owner" or "other").
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newMemoryStore(),
		tracker:  &stubTracker{},
		resolver: &stubResolver{},
		owner:    &models.User{ID: uuid.New(), Email: "owner@example.com", Role: models.RoleUser},
		other:    &models.User{ID: uuid.New(), Email: "other@example.com", Role: models.RoleUser},
	}

	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		switch c.Get("X-Test-User") {
		case "owner":
			c.Locals("user", env.owner)
		case "other":
			c.Locals("user", env.other)
		}
		return c.Next()
	})

	domains := NewDomainHandler(env.store)
	ranks := NewRankHandler(env.store, env.tracker, env.resolver, nil)

	app.Get("/api/domains", domains.List)
	app.Post("/api/domains", domains.Create)
	app.Get("/api/domains/:id", domains.Get)
	app.Delete("/api/domains/:id", domains.Delete)
	app.Get("/api/domains/:id/keywords", domains.ListKeywords)
	app.Post("/api/domains/:id/keywords", domains.CreateKeyword)
	app.Delete("/api/keywords/:id", domains.DeleteKeyword)
	app.Post("/api/keywords/:id/check", ranks.CheckKeyword)
	app.Post("/api/domains/:id/check", ranks.CheckDomain)
	app.Get("/api/keywords/:id/history", ranks.History)
	app.Post("/api/rank/resolve", ranks.Resolve)

	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s: invalid JSON %q", method, path, raw)
	}
	return resp.StatusCode, env
}

func (e *testEnv) seedDomain(t *testing.T, url string) *models.Domain {
	t.Helper()
	d := &models.Domain{UserID: e.owner.ID, URL: url}
	if err := e.store.CreateDomain(context.Background(), d); err != nil {
		t.Fatalf("CreateDomain() error = %v", err)
	}
	return d
}

func (e *testEnv) seedKeyword(t *testing.T, d *models.Domain, word string) *models.Keyword {
	t.Helper()
	kw := &models.Keyword{DomainID: d.ID, Keyword: word, DomainURL: d.URL, OwnerID: d.UserID}
	if err := e.store.CreateKeyword(context.Background(), kw); err != nil {
		t.Fatalf("CreateKeyword() error = %v", err)
	}
	return kw
}

func TestCreateDomain(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		user       string
		body       string
		wantStatus int
		wantURL    string
	}{
		{"normalizes url", "owner", `{"url":"https://www.Example.com"}`, fiber.StatusCreated, "example.com"},
		{"duplicate", "owner", `{"url":"example.com"}`, fiber.StatusConflict, ""},
		{"invalid", "owner", `{"url":"not a domain"}`, fiber.StatusBadRequest, ""},
		{"bad json", "owner", `{`, fiber.StatusBadRequest, ""},
		{"anonymous", "", `{"url":"example.org"}`, fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, http.MethodPost, "/api/domains", tt.user, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", status, tt.wantStatus, resp.Error)
			}
			if tt.wantURL == "" {
				if resp.Status != "error" {
					t.Errorf("envelope status = %q, want error", resp.Status)
				}
				return
			}
			var d models.Domain
			if err := json.Unmarshal(resp.Data, &d); err != nil {
				t.Fatalf("decode domain: %v", err)
			}
			if d.URL != tt.wantURL {
				t.Errorf("url = %q, want %q", d.URL, tt.wantURL)
			}
		})
	}
}

func TestDomainAccessControl(t *testing.T) {
	env := newTestEnv(t)
	d := env.seedDomain(t, "example.com")

	if status, _ := env.do(t, http.MethodGet, "/api/domains/"+d.ID.String(), "owner", ""); status != fiber.StatusOK {
		t.Errorf("owner GET status = %d, want 200", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/domains/"+d.ID.String(), "other", ""); status != fiber.StatusForbidden {
		t.Errorf("other GET status = %d, want 403", status)
	}
	if status, _ := env.do(t, http.MethodDelete, "/api/domains/"+d.ID.String(), "other", ""); status != fiber.StatusForbidden {
		t.Errorf("other DELETE status = %d, want 403", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/domains/not-a-uuid", "owner", ""); status != fiber.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/domains/"+uuid.NewString(), "owner", ""); status != fiber.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", status)
	}

	status, resp := env.do(t, http.MethodGet, "/api/domains", "other", "")
	if status != fiber.StatusOK || string(resp.Data) != "[]" {
		t.Errorf("other list = %d %s, want 200 []", status, resp.Data)
	}

	if status, _ := env.do(t, http.MethodDelete, "/api/domains/"+d.ID.String(), "owner", ""); status != fiber.StatusOK {
		t.Errorf("owner DELETE status = %d, want 200", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/api/domains/"+d.ID.String(), "owner", ""); status != fiber.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", status)
	}
}

func TestKeywords(t *testing.T) {
	env := newTestEnv(t)
	d := env.seedDomain(t, "example.com")
	path := "/api/domains/" + d.ID.String() + "/keywords"

	status, resp := env.do(t, http.MethodPost, path, "owner", `{"keyword":"  blue   widgets "}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d, want 201 (%s)", status, resp.Error)
	}
	var kw models.Keyword
	if err := json.Unmarshal(resp.Data, &kw); err != nil {
		t.Fatalf("decode keyword: %v", err)
	}
	if kw.Keyword != "blue widgets" {
		t.Errorf("keyword = %q, want %q", kw.Keyword, "blue widgets")
	}

	if status, _ := env.do(t, http.MethodPost, path, "owner", `{"keyword":"blue widgets"}`); status != fiber.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", status)
	}
	if status, _ := env.do(t, http.MethodPost, path, "owner", `{"keyword":"   "}`); status != fiber.StatusBadRequest {
		t.Errorf("empty status = %d, want 400", status)
	}
	if status, _ := env.do(t, http.MethodPost, path, "other", `{"keyword":"gadgets"}`); status != fiber.StatusForbidden {
		t.Errorf("other create status = %d, want 403", status)
	}

	status, resp = env.do(t, http.MethodGet, path, "owner", "")
	if status != fiber.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	var list []models.Keyword
	if err := json.Unmarshal(resp.Data, &list); err != nil || len(list) != 1 {
		t.Fatalf("list = %s, want one keyword", resp.Data)
	}

	if status, _ := env.do(t, http.MethodDelete, "/api/keywords/"+kw.ID.String(), "other", ""); status != fiber.StatusForbidden {
		t.Errorf("other delete status = %d, want 403", status)
	}
	if status, _ := env.do(t, http.MethodDelete, "/api/keywords/"+kw.ID.String(), "owner", ""); status != fiber.StatusOK {
		t.Errorf("owner delete status = %d, want 200", status)
	}
}

func TestCheckKeyword(t *testing.T) {
	env := newTestEnv(t)
	d := env.seedDomain(t, "example.com")
	kw := env.seedKeyword(t, d, "widgets")
	path := "/api/keywords/" + kw.ID.String() + "/check"

	now := time.Now().UTC()
	env.tracker.result = &models.RankCheckResult{
		Keyword:     "widgets",
		Rank:        "5",
		LastChecked: now,
		History:     []models.RankingHistoryEntry{{Position: "5", CheckedAt: now}},
		Trend:       string(rank.TrendUnknown),
	}

	status, resp := env.do(t, http.MethodPost, path, "owner", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", status, resp.Error)
	}
	var res models.RankCheckResult
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Rank != "5" || res.KeywordID != kw.ID || len(res.History) != 1 {
		t.Errorf("result = %+v", res)
	}

	errTests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not configured", rank.ErrConfigMissing, fiber.StatusServiceUnavailable, "search backend is not configured"},
		{"backend", &rank.BackendError{StatusCode: 429, Message: "quota exceeded"}, fiber.StatusBadGateway, "quota exceeded"},
		{"timeout", context.DeadlineExceeded, fiber.StatusGatewayTimeout, "rank check timed out"},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			env.tracker.err = tt.err
			defer func() { env.tracker.err = nil }()

			status, resp := env.do(t, http.MethodPost, path, "owner", "")
			if status != tt.wantStatus || resp.Error != tt.wantMsg {
				t.Errorf("got %d %q, want %d %q", status, resp.Error, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestCheckDomain_MultiStatus(t *testing.T) {
	env := newTestEnv(t)
	d := env.seedDomain(t, "example.com")
	path := "/api/domains/" + d.ID.String() + "/check"

	env.tracker.batch = &models.BatchCheckResult{DomainID: d.ID, Results: []models.BatchItemResult{}}
	if status, resp := env.do(t, http.MethodPost, path, "owner", ""); status != fiber.StatusOK || resp.Status != "ok" {
		t.Errorf("clean batch = %d %q, want 200 ok", status, resp.Status)
	}

	env.tracker.batch = &models.BatchCheckResult{
		DomainID: d.ID,
		Results: []models.BatchItemResult{
			{KeywordID: uuid.New(), Keyword: "a", Result: &models.RankCheckResult{Rank: "3"}},
			{KeywordID: uuid.New(), Keyword: "b", Error: "quota exceeded"},
		},
		HasErrors: true,
	}
	status, resp := env.do(t, http.MethodPost, path, "owner", "")
	if status != fiber.StatusMultiStatus || resp.Status != "partial" {
		t.Fatalf("failed batch = %d %q, want 207 partial", status, resp.Status)
	}
	var batch models.BatchCheckResult
	if err := json.Unmarshal(resp.Data, &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch.Results) != 2 || batch.Results[1].Error != "quota exceeded" {
		t.Errorf("batch = %+v", batch)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	d := env.seedDomain(t, "example.com")
	kw := env.seedKeyword(t, d, "widgets")

	env.store.mu.Lock()
	stored := env.store.keywords[kw.ID]
	stored.CurrentRank = "4"
	stored.History = []models.RankingHistoryEntry{
		{Position: rank.NotFoundRank, CheckedAt: time.Now().Add(-time.Hour)},
		{Position: "4", CheckedAt: time.Now()},
	}
	env.store.mu.Unlock()

	status, resp := env.do(t, http.MethodGet, "/api/keywords/"+kw.ID.String()+"/history", "owner", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var hist models.KeywordHistoryResponse
	if err := json.Unmarshal(resp.Data, &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if hist.Trend != string(rank.TrendUp) || hist.Rank != "4" || len(hist.History) != 2 {
		t.Errorf("history = %+v", hist)
	}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.outcome = rank.Found(2, rank.SourcePromoted)

	status, resp := env.do(t, http.MethodPost, "/api/rank/resolve", "owner",
		`{"domainUrl":"https://www.Example.com","keyword":" blue  widgets"}`)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", status, resp.Error)
	}
	var data struct {
		DomainURL string `json:"domainUrl"`
		Keyword   string `json:"keyword"`
		Rank      string `json:"rank"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Rank != "Ad: 2" || data.DomainURL != "example.com" || data.Keyword != "blue widgets" {
		t.Errorf("resolve = %+v", data)
	}
	if env.resolver.got != [2]string{"example.com", "blue widgets"} {
		t.Errorf("resolver got %v", env.resolver.got)
	}

	if status, _ := env.do(t, http.MethodPost, "/api/rank/resolve", "owner", `{"domainUrl":"","keyword":"x"}`); status != fiber.StatusBadRequest {
		t.Errorf("empty domain status = %d, want 400", status)
	}
}

type stubLocal struct {
	users map[string]*models.User
}

func (s *stubLocal) Provider() string { return models.ProviderLocal }

func (s *stubLocal) Register(_ context.Context, email, name, _ string) (*models.User, error) {
	if _, ok := s.users[email]; ok {
		return nil, db.ErrDuplicateUser
	}
	u := &models.User{ID: uuid.New(), Email: email, Name: name, Provider: models.ProviderLocal}
	s.users[email] = u
	return u, nil
}

func (s *stubLocal) Authenticate(_ context.Context, creds auth.Credentials) (*models.User, error) {
	u, ok := s.users[creds.Email]
	if !ok || creds.Password != "secret-password" {
		return nil, auth.ErrInvalidCredentials
	}
	return u, nil
}

func TestAuthHandler(t *testing.T) {
	app := fiber.New()
	sessionMiddleware, _ := session.NewWithStore()
	app.Use(sessionMiddleware)

	h := NewAuthHandler(&stubLocal{users: map[string]*models.User{}}, nil, nil)
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/logout", h.Logout)
	app.Get("/auth/oauth/login", h.OAuthLogin)

	post := func(path, body string) int {
		req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		return resp.StatusCode
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"register", "/api/auth/register", `{"email":"a@example.com","password":"secret-password"}`, fiber.StatusCreated},
		{"register duplicate", "/api/auth/register", `{"email":"a@example.com","password":"secret-password"}`, fiber.StatusConflict},
		{"register bad email", "/api/auth/register", `{"email":"nope","password":"secret-password"}`, fiber.StatusBadRequest},
		{"register short password", "/api/auth/register", `{"email":"b@example.com","password":"short"}`, fiber.StatusBadRequest},
		{"register long password", "/api/auth/register", `{"email":"c@example.com","password":"` + strings.Repeat("p", 80) + `"}`, fiber.StatusBadRequest},
		{"login", "/api/auth/login", `{"email":"a@example.com","password":"secret-password"}`, fiber.StatusOK},
		{"login wrong password", "/api/auth/login", `{"email":"a@example.com","password":"wrong"}`, fiber.StatusUnauthorized},
		{"logout", "/api/auth/logout", ``, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := post(tt.path, tt.body); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}

	req, _ := http.NewRequest(http.MethodGet, "/auth/oauth/login", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET /auth/oauth/login failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("oauth login without OIDC = %d, want 404", resp.StatusCode)
	}
}
