package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/circle"
	"github.com/kweku/susu/internal/credit"
	"github.com/kweku/susu/internal/identity"
	"github.com/kweku/susu/internal/ledger"
	"github.com/kweku/susu/internal/models"
	"github.com/kweku/susu/internal/storage/badgerkv"
)

const (
	adminPrincipal  = "admin"
	enginePrincipal = "circle-engine"
)

type testServer struct {
	srv    *httptest.Server
	ledger *ledger.KV
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := badgerkv.NewInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	approver := auth.ContextApprover{}
	kv := ledger.NewKV(store)
	registry := identity.NewRegistry(store, approver, nil, time.Hour)
	resolver := identity.Fallback{Primary: registry, Secondary: identity.Derived{}}

	creditEngine := credit.NewEngine(store, approver, credit.Options{})
	circleEngine := circle.NewEngine(store, creditEngine, kv, resolver, approver, enginePrincipal, circle.Options{})

	ctx := auth.WithPrincipal(context.Background(), adminPrincipal)
	if err := circleEngine.Init(ctx, adminPrincipal); err != nil {
		t.Fatalf("init circle: %v", err)
	}
	if err := creditEngine.Init(ctx, adminPrincipal); err != nil {
		t.Fatalf("init credit: %v", err)
	}
	if err := creditEngine.AuthorizeCaller(ctx, enginePrincipal); err != nil {
		t.Fatalf("authorize engine: %v", err)
	}

	users := auth.NewUserStore(store)
	authenticator := auth.NewPasswordAuthenticator(users)
	jwtManager := auth.NewJWTManager("test-secret-key-for-service-tests", time.Hour)

	svc := New(circleEngine, creditEngine, registry, kv, authenticator, users, jwtManager)
	srv := httptest.NewServer(svc.Router(nil))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, ledger: kv}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp, decoded
}

// register creates an account and returns its user ID and session token.
func (ts *testServer) register(t *testing.T, email, name string) (string, string) {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, resp.StatusCode, body)
	}
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func circleConfig() map[string]any {
	return map[string]any{
		"name":                "test susu",
		"contribution_amount": 100_000_000,
		"asset":               "USDC",
		"total_members":       3,
		"period_length":       30 * 86400,
		"grace_period":        7 * 86400,
		"late_fee_percent":    5,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	_, token := ts.register(t, "alice@example.com", "Alice")
	if token == "" {
		t.Fatal("register returned empty token")
	}

	resp, body := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d body %v", resp.StatusCode, body)
	}
	user := body["user"].(map[string]any)
	if _, hasHash := user["password_hash"]; hasHash {
		t.Error("login response leaks the password hash")
	}

	resp, body = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("bad login = %d %v, want 401 INVALID_CREDENTIALS", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice Again",
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusConflict || body["code"] != "EMAIL_EXISTS" {
		t.Errorf("duplicate register = %d %v, want 409 EMAIL_EXISTS", resp.StatusCode, body)
	}
}

func TestCreateCircleRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodPost, "/api/circles", "", circleConfig())
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "UNAUTHENTICATED" {
		t.Errorf("anonymous create = %d %v, want 401 UNAUTHENTICATED", resp.StatusCode, body)
	}
}

func TestCircleLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	aliceID, aliceToken := ts.register(t, "alice@example.com", "Alice")
	bobID, bobToken := ts.register(t, "bob@example.com", "Bob")
	carolID, carolToken := ts.register(t, "carol@example.com", "Carol")
	for _, id := range []string{aliceID, bobID, carolID} {
		if err := ts.ledger.Mint(ctx, id, 1_000_000_000); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}

	resp, created := ts.do(t, http.MethodPost, "/api/circles", aliceToken, circleConfig())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create circle: %d %v", resp.StatusCode, created)
	}
	circleID := created["id"].(string)
	inviteCode := created["invite_code"].(string)

	resp, body := ts.do(t, http.MethodPost, "/api/circles/"+circleID+"/join", bobToken, nil)
	if resp.StatusCode != http.StatusOK || body["position"].(float64) != 2 {
		t.Fatalf("bob join = %d %v, want position 2", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/circles/join", carolToken, map[string]string{
		"invite_code": inviteCode,
	})
	if resp.StatusCode != http.StatusOK || body["position"].(float64) != 3 {
		t.Fatalf("carol invite join = %d %v, want position 3", resp.StatusCode, body)
	}

	// The third join filled the circle.
	resp, body = ts.do(t, http.MethodGet, "/api/circles/"+circleID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get circle: %d %v", resp.StatusCode, body)
	}
	if body["status"].(string) != string(models.StatusActive) {
		t.Errorf("status = %v, want active", body["status"])
	}
	if body["current_round"].(float64) != 1 {
		t.Errorf("round = %v, want 1", body["current_round"])
	}

	for _, token := range []string{aliceToken, bobToken, carolToken} {
		resp, body = ts.do(t, http.MethodPost, "/api/circles/"+circleID+"/contribute", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("contribute: %d %v", resp.StatusCode, body)
		}
		if body["on_time"].(bool) != true {
			t.Errorf("contribution late: %v", body)
		}
	}

	resp, body = ts.do(t, http.MethodGet, "/api/circles/"+circleID+"/progress", "", nil)
	if resp.StatusCode != http.StatusOK || body["contributed"].(float64) != 3 {
		t.Fatalf("progress = %d %v, want 3 contributors", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/circles/"+circleID+"/payout", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payout: %d %v", resp.StatusCode, body)
	}
	if body["recipient"].(string) != aliceID {
		t.Errorf("recipient = %v, want creator %s", body["recipient"], aliceID)
	}
	if body["amount"].(float64) != 300_000_000 {
		t.Errorf("payout amount = %v, want 300000000", body["amount"])
	}

	// The contribution reports landed on the creator's derived identity.
	uid, err := identity.Derived{}.Resolve(ctx, aliceID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	resp, body = ts.do(t, http.MethodGet, "/api/credit/"+uid+"/score", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("score: %d %v", resp.StatusCode, body)
	}
	if body["score"].(float64) != 648 {
		t.Errorf("score = %v, want 648 after one on-time payment", body["score"])
	}
}

func TestErrorCodes(t *testing.T) {
	ts := newTestServer(t)

	_, aliceToken := ts.register(t, "alice@example.com", "Alice")

	resp, body := ts.do(t, http.MethodGet, "/api/circles/deadbeef", "", nil)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "CIRCLE_NOT_FOUND" {
		t.Errorf("unknown circle = %d %v, want 404 CIRCLE_NOT_FOUND", resp.StatusCode, body)
	}

	bad := circleConfig()
	bad["total_members"] = 2
	resp, body = ts.do(t, http.MethodPost, "/api/circles", aliceToken, bad)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "INVALID_CONFIG" {
		t.Errorf("bad config = %d %v, want 400 INVALID_CONFIG", resp.StatusCode, body)
	}

	// The credit reporting routes are allow-listed; an ordinary session is
	// rejected by the engine, not the router.
	resp, body = ts.do(t, http.MethodPost, "/api/credit/payments", aliceToken, map[string]any{
		"unique_id": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"circle_id": "c1",
		"round":     1,
		"amount":    100,
		"on_time":   true,
	})
	if resp.StatusCode != http.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Errorf("unlisted reporter = %d %v, want 403 FORBIDDEN", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/credit/nobody/score", "", nil)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "PROFILE_NOT_FOUND" {
		t.Errorf("unknown profile = %d %v, want 404 PROFILE_NOT_FOUND", resp.StatusCode, body)
	}
}

func TestIdentityBindOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	aliceID, aliceToken := ts.register(t, "alice@example.com", "Alice")
	uid := "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

	resp, body := ts.do(t, http.MethodPost, "/api/identity/bind", aliceToken, map[string]string{
		"unique_id": uid,
		"principal": aliceID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bind: %d %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/identity/"+aliceID, "", nil)
	if resp.StatusCode != http.StatusOK || body["unique_id"] != uid {
		t.Errorf("resolve = %d %v, want %s", resp.StatusCode, body, uid)
	}

	// Binding someone else's principal fails: the approver only accepts the
	// authenticated principal.
	bobID, _ := ts.register(t, "bob@example.com", "Bob")
	resp, body = ts.do(t, http.MethodPost, "/api/identity/bind", aliceToken, map[string]string{
		"unique_id": "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd",
		"principal": bobID,
	})
	if resp.StatusCode != http.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Errorf("bind other principal = %d %v, want 403 FORBIDDEN", resp.StatusCode, body)
	}
}
