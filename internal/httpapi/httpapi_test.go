package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/dbtest"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/gin-gonic/gin"
)

type stubService struct {
	loginErr   error
	lastIP     string
	lastUA     string
	logouts    []string
	identities map[string]*goSession.Identity
	authErr    error
	sessions   []goSession.SessionInfo
	revoked    []string
}

func (s *stubService) Login(_ context.Context, username, pw, ip, ua string) (string, error) {
	s.lastIP, s.lastUA = ip, ua
	if s.loginErr != nil {
		return "", s.loginErr
	}
	return "token-for-" + username, nil
}

func (s *stubService) Authenticate(_ context.Context, token string) (*goSession.Identity, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	id, ok := s.identities[token]
	if !ok {
		return nil, goSession.ErrInvalidToken
	}
	return id, nil
}

func (s *stubService) Logout(_ context.Context, token string) {
	s.logouts = append(s.logouts, token)
}

func (s *stubService) ListActiveSessions(context.Context, string) ([]goSession.SessionInfo, error) {
	return s.sessions, nil
}

func (s *stubService) ForceLogoutAll(_ context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func newStub() *stubService {
	return &stubService{identities: map[string]*goSession.Identity{
		"user":  {UserID: "u1", Username: "alice", SessionID: "s1"},
		"admin": {UserID: "u2", Username: "root", Admin: true, SessionID: "s2"},
	}}
}

func newRouter(t *testing.T, svc Service, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, nil, opts).Register(r)
	return r
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "test-client")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLoginSuccess(t *testing.T) {
	svc := newStub()
	r := newRouter(t, svc, Options{})

	rec := do(r, http.MethodPost, "/auth/login", `{"username":"alice","password":"pw"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["access_token"] != "token-for-alice" || body["token_type"] != "bearer" {
		t.Fatalf("unexpected body %v", body)
	}
	if svc.lastIP != "192.0.2.1" || svc.lastUA != "test-client" {
		t.Fatalf("client details %q / %q", svc.lastIP, svc.lastUA)
	}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", goSession.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"locked", &goSession.LockedError{Remaining: 14*time.Minute + 20*time.Second}, http.StatusLocked, "ACCOUNT_LOCKED"},
		{"unverified", goSession.ErrAccountUnverified, http.StatusForbidden, "ACCOUNT_UNVERIFIED"},
		{"store", errors.Join(goSession.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newStub()
			svc.loginErr = tc.err
			r := newRouter(t, svc, Options{})

			rec := do(r, http.MethodPost, "/auth/login", `{"username":"alice","password":"pw"}`, "")
			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d", rec.Code, tc.status)
			}
			body := decode(t, rec)
			if body["code"] != tc.code {
				t.Fatalf("code %v, want %s", body["code"], tc.code)
			}
			if tc.status == http.StatusLocked && body["remaining_minutes"] != float64(15) {
				t.Fatalf("remaining_minutes %v", body["remaining_minutes"])
			}
			if strings.Contains(rec.Body.String(), "dial tcp") {
				t.Fatal("internal error detail leaked")
			}
		})
	}
}

func TestLoginRejectsBadInput(t *testing.T) {
	r := newRouter(t, newStub(), Options{})
	for _, body := range []string{`{}`, `{"username":"alice"}`, `not json`} {
		if rec := do(r, http.MethodPost, "/auth/login", body, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: status %d", body, rec.Code)
		}
	}
}

func TestLogoutAlwaysNoContent(t *testing.T) {
	svc := newStub()
	r := newRouter(t, svc, Options{})

	if rec := do(r, http.MethodPost, "/auth/logout", "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("without token: %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/auth/logout", "", "garbage"); rec.Code != http.StatusNoContent {
		t.Fatalf("garbage token: %d", rec.Code)
	}
	if len(svc.logouts) != 1 || svc.logouts[0] != "garbage" {
		t.Fatalf("logouts %v", svc.logouts)
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	svc := newStub()
	r := newRouter(t, svc, Options{})

	rec := do(r, http.MethodGet, "/auth/me", "", "user")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body := decode(t, rec); body["user_id"] != "u1" || body["session_id"] != "s1" {
		t.Fatalf("unexpected body %v", body)
	}

	unauth := do(r, http.MethodGet, "/auth/me", "", "")
	forged := do(r, http.MethodGet, "/auth/me", "", "forged")
	if unauth.Code != http.StatusUnauthorized || forged.Code != http.StatusUnauthorized {
		t.Fatalf("status %d / %d", unauth.Code, forged.Code)
	}
	if unauth.Body.String() != forged.Body.String() {
		t.Fatal("401 bodies differ by cause")
	}

	svc.authErr = goSession.ErrSessionExpired
	if rec := do(r, http.MethodGet, "/auth/me", "", "user"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired session: %d", rec.Code)
	}
	svc.authErr = errors.Join(goSession.ErrStoreUnavailable, errors.New("down"))
	if rec := do(r, http.MethodGet, "/auth/me", "", "user"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store down: %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	svc := newStub()
	svc.sessions = []goSession.SessionInfo{{ID: "s9", UserID: "u1", IP: "1.2.3.4", UserAgent: "ua"}}
	r := newRouter(t, svc, Options{})

	if rec := do(r, http.MethodGet, "/admin/users/u1/sessions", "", "user"); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin list: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin/users/u1/sessions", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: %d", rec.Code)
	}

	rec := do(r, http.MethodGet, "/admin/users/u1/sessions", "", "admin")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: %d", rec.Code)
	}
	body := decode(t, rec)
	sessions, _ := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("sessions %v", body["sessions"])
	}
	if first, _ := sessions[0].(map[string]any); first["id"] != "s9" || first["ip_address"] != "1.2.3.4" {
		t.Fatalf("unexpected session %v", sessions[0])
	}

	if rec := do(r, http.MethodPost, "/admin/users/u1/logout-all", "", "user"); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin logout-all: %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/admin/users/u1/logout-all", "", "admin"); rec.Code != http.StatusNoContent {
		t.Fatalf("admin logout-all: %d", rec.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "u1" {
		t.Fatalf("revoked %v", svc.revoked)
	}
}

func TestClientResolverHonoredForLogin(t *testing.T) {
	svc := newStub()
	clients, err := middleware.NewClientResolver([]string{"192.0.2.0/24"})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, clients, Options{}).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 192.0.2.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if svc.lastIP != "1.2.3.4" || svc.lastUA != middleware.UnknownClient {
		t.Fatalf("client details %q / %q", svc.lastIP, svc.lastUA)
	}
}

type providerStub struct {
	user goSession.UserRecord
}

func (p providerStub) GetUserByIdentifier(_ context.Context, username string) (goSession.UserRecord, error) {
	if username != p.user.Username {
		return goSession.UserRecord{}, goSession.ErrUserNotFound
	}
	return p.user, nil
}

func (p providerStub) GetUserByID(_ context.Context, id string) (goSession.UserRecord, error) {
	if id != p.user.UserID {
		return goSession.UserRecord{}, goSession.ErrUserNotFound
	}
	return p.user, nil
}

func TestEndToEndWithEngine(t *testing.T) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Janitor.Enabled = false
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	hasher, err := password.NewArgon2(cfg.Password.Argon2())
	if err != nil {
		t.Fatalf("argon2: %v", err)
	}
	hash, err := hasher.Hash("correct-password-123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	engine, err := goSession.New().
		WithConfig(cfg).
		WithDB(dbtest.New(t, session.Migrate, rate.Migrate)).
		WithUserProvider(providerStub{user: goSession.UserRecord{
			UserID: "u-alice", Username: "alice", PasswordHash: hash, Active: true, Admin: true,
		}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	r := newRouter(t, engine, Options{Metrics: prometheus.NewPrometheusExporter(engine).Handler()})

	rec := do(r, http.MethodPost, "/auth/login", `{"username":"alice","password":"correct-password-123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["access_token"].(string)

	if rec := do(r, http.MethodGet, "/auth/me", "", token); rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin/users/u-alice/sessions", "", token); rec.Code != http.StatusOK {
		t.Fatalf("sessions: %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/auth/logout", "", token); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/auth/me", "", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", rec.Code)
	}

	for i := 0; i < 5; i++ {
		do(r, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`, "")
	}
	rec = do(r, http.MethodPost, "/auth/login", `{"username":"alice","password":"correct-password-123"}`, "")
	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}

	metrics := do(r, http.MethodGet, "/metrics", "", "")
	if metrics.Code != http.StatusOK || !strings.Contains(metrics.Body.String(), "login_success") {
		t.Fatalf("metrics: %d %s", metrics.Code, metrics.Body.String())
	}
}
