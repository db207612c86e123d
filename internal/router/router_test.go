package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"reservation-api/internal/testutil"

	"github.com/rs/zerolog"
)

type testServer struct {
	handler http.Handler
	svc     *Services
	db      *sql.DB
	t       *testing.T
}

func newTestServer(t *testing.T, name string) *testServer {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	cfg := testutil.Config()
	svc, err := NewServices(d, nil, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	return &testServer{
		handler: SetupRouter(svc, d, nil, cfg, zerolog.Nop()),
		svc:     svc,
		db:      d,
		t:       t,
	}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func (s *testServer) register(name, email, password string) (int, string) {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/register", "", map[string]string{"name": name, "email": email, "password": password})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: expected 201, got %d %s", email, rec.Code, rec.Body.String())
	}
	return int(body["userId"].(float64)), body["token"].(string)
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	ctx := context.Background()
	if _, err := s.svc.Users.EnsureAdmin(ctx, "admin@admin.com", "123456789"); err != nil {
		s.t.Fatalf("ensure admin: %v", err)
	}
	rec, body := s.do(http.MethodPost, "/login", "", map[string]string{"email": "admin@admin.com", "password": "123456789"})
	if rec.Code != http.StatusOK || body["role"] != "admin" {
		s.t.Fatalf("admin login: %d %s", rec.Code, rec.Body.String())
	}
	return body["token"].(string)
}

func assertMessage(t *testing.T, rec *httptest.ResponseRecorder, body map[string]interface{}, code int, message string) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected %d, got %d: %s", code, rec.Code, rec.Body.String())
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if message != "" && body["message"] != message {
		t.Fatalf("expected message %q, got %v", message, body["message"])
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "router_health")

	rec, body := s.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || body["success"] != true || body["message"] != "Server is running" {
		t.Fatalf("unexpected liveness response %d %v", rec.Code, body)
	}

	rec, body = s.do(http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected readiness response %d %v", rec.Code, body)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, "router_register_login")

	rec, body := s.do(http.MethodPost, "/register", "", map[string]string{"name": "A", "email": "a@b.com", "password": "secret1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["success"] != true || body["role"] != "customer" || body["token"] == "" {
		t.Fatalf("unexpected register body %v", body)
	}
	userID := body["userId"].(float64)

	claims, err := s.svc.Auth.ValidateToken(body["token"].(string))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if float64(claims.UserID) != userID || claims.Role != "customer" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	rec, body = s.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.com", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["userId"] != userID || body["role"] != "customer" {
		t.Fatalf("unexpected login body %v", body)
	}

	rec, body = s.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.com", "password": "wrong"})
	assertMessage(t, rec, body, http.StatusUnauthorized, "Invalid credentials")

	rec, body = s.do(http.MethodPost, "/login", "", map[string]string{"email": "nobody@b.com", "password": "secret1"})
	assertMessage(t, rec, body, http.StatusUnauthorized, "Invalid credentials")
}

func TestRegisterIgnoresClientRole(t *testing.T) {
	s := newTestServer(t, "router_register_role")

	rec, body := s.do(http.MethodPost, "/register", "", map[string]string{
		"name": "M", "email": "m@b.com", "password": "pw", "role": "admin",
	})
	if rec.Code != http.StatusCreated || body["role"] != "customer" {
		t.Fatalf("expected customer role, got %d %v", rec.Code, body)
	}
}

func TestRegisterValidationAndConflict(t *testing.T) {
	s := newTestServer(t, "router_register_conflict")

	rec, body := s.do(http.MethodPost, "/register", "", map[string]string{"email": "a@b.com", "password": "pw"})
	assertMessage(t, rec, body, http.StatusBadRequest, "Name, email & password required")

	rec, body = s.do(http.MethodPost, "/login", "", map[string]string{"email": "a@b.com"})
	assertMessage(t, rec, body, http.StatusBadRequest, "Email & password required")

	s.register("A", "a@b.com", "pw")
	rec, body = s.do(http.MethodPost, "/register", "", map[string]string{"name": "B", "email": "a@b.com", "password": "other"})
	assertMessage(t, rec, body, http.StatusConflict, "")
}

func TestRestaurantAdminGate(t *testing.T) {
	s := newTestServer(t, "router_admin_gate")
	_, customer := s.register("C", "c@b.com", "pw")
	admin := s.adminToken()
	payload := map[string]string{"name": "X", "location": "Y"}

	rec, body := s.do(http.MethodPost, "/restaurants", "", payload)
	assertMessage(t, rec, body, http.StatusUnauthorized, "Missing token")

	rec, body = s.do(http.MethodPost, "/restaurants", "not-a-jwt", payload)
	assertMessage(t, rec, body, http.StatusUnauthorized, "Invalid token")

	rec, body = s.do(http.MethodPost, "/restaurants", customer, payload)
	assertMessage(t, rec, body, http.StatusForbidden, "Admins only")

	rec, body = s.do(http.MethodPost, "/restaurants", admin, payload)
	if rec.Code != http.StatusCreated || body["restaurantId"] == nil {
		t.Fatalf("expected 201 with restaurantId, got %d %v", rec.Code, body)
	}
	id := int(body["restaurantId"].(float64))

	rec, body = s.do(http.MethodGet, fmt.Sprintf("/restaurants/%d", id), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get restaurant: %d %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["name"] != "X" || data["location"] != "Y" {
		t.Fatalf("unexpected restaurant %v", data)
	}

	rec, body = s.do(http.MethodDelete, fmt.Sprintf("/restaurants/%d", id), customer, nil)
	assertMessage(t, rec, body, http.StatusForbidden, "Admins only")

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/restaurants/%d", id), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete restaurant: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = s.do(http.MethodGet, fmt.Sprintf("/restaurants/%d", id), "", nil)
	assertMessage(t, rec, body, http.StatusNotFound, "")

	rec, body = s.do(http.MethodGet, "/restaurants/abc", "", nil)
	assertMessage(t, rec, body, http.StatusBadRequest, "")
}

func TestReservationFlow(t *testing.T) {
	s := newTestServer(t, "router_reservations")
	_, alice := s.register("Alice", "alice@b.com", "pw")
	_, bob := s.register("Bob", "bob@b.com", "pw")
	restaurantID := testutil.SeedRestaurant(t, s.db, "Trattoria", "Main St")
	path := fmt.Sprintf("/restaurants/%d/reservations", restaurantID)

	rec, body := s.do(http.MethodPost, path, "", map[string]string{"date": "2026-11-05", "time": "19:30"})
	assertMessage(t, rec, body, http.StatusUnauthorized, "Missing token")

	rec, body = s.do(http.MethodPost, path, alice, map[string]string{"date": "2026-11-05"})
	assertMessage(t, rec, body, http.StatusBadRequest, "Both date and time are required.")

	rec, body = s.do(http.MethodPost, path, alice, map[string]string{"date": "05/11/2026", "time": "19:30"})
	assertMessage(t, rec, body, http.StatusBadRequest, "")

	rec, body = s.do(http.MethodPost, "/restaurants/9999/reservations", alice, map[string]string{"date": "2026-11-05", "time": "19:30"})
	assertMessage(t, rec, body, http.StatusNotFound, "")

	rec, body = s.do(http.MethodPost, path, alice, map[string]string{"date": "2026-11-05", "time": "19:30"})
	if rec.Code != http.StatusCreated || body["reservationId"] == nil {
		t.Fatalf("create reservation: %d %s", rec.Code, rec.Body.String())
	}
	reservationID := int(body["reservationId"].(float64))

	rec, body = s.do(http.MethodGet, "/users/me/reservations", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reservations: %d %s", rec.Code, rec.Body.String())
	}
	list := body["data"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("expected 1 reservation, got %v", list)
	}
	item := list[0].(map[string]interface{})
	if item["date"] != "2026-11-05" || item["time"] != "19:30" || item["restaurantName"] != "Trattoria" {
		t.Fatalf("unexpected reservation %v", item)
	}

	rec, body = s.do(http.MethodGet, "/users/me/reservations", bob, nil)
	if rec.Code != http.StatusOK || len(body["data"].([]interface{})) != 0 {
		t.Fatalf("bob should see no reservations, got %d %v", rec.Code, body)
	}

	cancelPath := fmt.Sprintf("/reservations/%d", reservationID)
	rec, body = s.do(http.MethodDelete, cancelPath, bob, nil)
	assertMessage(t, rec, body, http.StatusNotFound, "Not found or unauthorized")

	rec, _ = s.do(http.MethodDelete, cancelPath, alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = s.do(http.MethodDelete, cancelPath, alice, nil)
	assertMessage(t, rec, body, http.StatusNotFound, "Not found or unauthorized")
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t, "router_me")
	userID, token := s.register("Alice", "alice@b.com", "pw")

	rec, body := s.do(http.MethodGet, "/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get me: %d %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if int(data["id"].(float64)) != userID || data["email"] != "alice@b.com" || data["role"] != "customer" {
		t.Fatalf("unexpected profile %v", data)
	}
	if _, leaked := data["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestLoginThrottle(t *testing.T) {
	s := newTestServer(t, "router_throttle")
	s.register("T", "t@b.com", "right")
	wrong := map[string]string{"email": "t@b.com", "password": "wrong"}
	right := map[string]string{"email": "t@b.com", "password": "right"}

	// A success in between resets the counter.
	for i := 0; i < 4; i++ {
		rec, body := s.do(http.MethodPost, "/login", "", wrong)
		assertMessage(t, rec, body, http.StatusUnauthorized, "Invalid credentials")
	}
	if rec, _ := s.do(http.MethodPost, "/login", "", right); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before limit, got %d", rec.Code)
	}

	for i := 0; i < 5; i++ {
		rec, body := s.do(http.MethodPost, "/login", "", wrong)
		assertMessage(t, rec, body, http.StatusUnauthorized, "Invalid credentials")
	}
	rec, body := s.do(http.MethodPost, "/login", "", right)
	assertMessage(t, rec, body, http.StatusTooManyRequests, "Too many login attempts")

	// Unknown emails are throttled the same way.
	ghost := map[string]string{"email": "ghost@b.com", "password": "x"}
	for i := 0; i < 5; i++ {
		s.do(http.MethodPost, "/login", "", ghost)
	}
	rec, body = s.do(http.MethodPost, "/login", "", ghost)
	assertMessage(t, rec, body, http.StatusTooManyRequests, "Too many login attempts")
}

func TestLoginThrottleConcurrent(t *testing.T) {
	s := newTestServer(t, "router_throttle_concurrent")
	s.register("R", "r@b.com", "right")
	body := `{"email":"r@b.com","password":"wrong"}`

	const n = 30
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	counts := map[int]int{}
	for _, c := range codes {
		counts[c]++
	}
	if counts[http.StatusUnauthorized] != 5 || counts[http.StatusTooManyRequests] != n-5 {
		t.Fatalf("expected 5 credential checks and %d throttled, got %v", n-5, counts)
	}
}

func TestRegisterLongPassword(t *testing.T) {
	s := newTestServer(t, "router_long_password")
	password := strings.Repeat("p", 80)

	s.register("A", "long@b.com", password)

	rec, body := s.do(http.MethodPost, "/login", "", map[string]string{"email": "long@b.com", "password": password})
	if rec.Code != http.StatusOK || body["role"] != "customer" {
		t.Fatalf("expected login with long password to succeed, got %d %v", rec.Code, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, "router_unknown")
	rec, body := s.do(http.MethodGet, "/nope", "", nil)
	assertMessage(t, rec, body, http.StatusNotFound, "Not found")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "router_cors")
	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers on preflight, got %v", rec.Header())
	}
}
