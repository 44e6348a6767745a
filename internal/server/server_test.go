package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"laborline/internal/config"
	"laborline/internal/db"
	"laborline/internal/directory"
	"laborline/internal/engine"
	"laborline/internal/identity"
	"laborline/internal/migrate"
	"laborline/internal/repo"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	e := engine.New(conn, cfg)
	r := repo.Repo{DB: conn}
	ids := identity.New(r, cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	dir := directory.New(r, cfg)
	handler, err := New(Config{Engine: e, Identity: ids, Directory: dir, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func registerAndLogin(t *testing.T, ts *testServer, phone, role string) string {
	t.Helper()
	resp, b := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/register", "", map[string]any{
		"phone":      phone,
		"password":   "secret1",
		"role":       role,
		"first_name": "Test",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status=%d body=%s", role, resp.StatusCode, b)
	}
	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/login", "", map[string]any{
		"phone":    phone,
		"password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", resp.StatusCode, b)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(b, &out); err != nil || out.Token == "" {
		t.Fatalf("bad login response: %s", b)
	}
	return out.Token
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	resp, b := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s, want 401", resp.StatusCode, b)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &env); err != nil || env.Error.Code != "unauthorized" {
		t.Fatalf("bad error envelope: %s", b)
	}

	// health stays open
	resp, _ = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d, want 200", resp.StatusCode)
	}
}

func TestBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "9000000001", "CONSUMER")

	resp, b := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/login", "", map[string]any{
		"phone":    "9000000001",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s, want 401", resp.StatusCode, b)
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/register", "", map[string]any{
		"phone":    "9000000001",
		"password": "secret1",
		"role":     "CONSUMER",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate phone: status=%d body=%s, want 409", resp.StatusCode, b)
	}
}

func TestWorkSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	contractor := registerAndLogin(t, ts, "9000000010", "CONTRACTOR")
	laborer := registerAndLogin(t, ts, "9000000011", "LABOR")

	resp, b := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/projects", contractor, map[string]any{
		"name":     "Tower A",
		"address":  "12 MG Road",
		"position": map[string]float64{"lat": 12.9716, "lon": 77.5946},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: status=%d body=%s", resp.StatusCode, b)
	}
	var project struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &project); err != nil {
		t.Fatal(err)
	}

	var laborerID string
	{
		resp, b := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/me", laborer, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("me: status=%d body=%s", resp.StatusCode, b)
		}
		var me struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(b, &me); err != nil {
			t.Fatal(err)
		}
		laborerID = me.ID
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/assignments", contractor, map[string]any{
		"project_id": project.ID,
		"laborer_id": laborerID,
		"wage_rate":  "100",
		"wage_type":  "HOURLY",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create assignment: status=%d body=%s", resp.StatusCode, b)
	}

	// out of the geofence
	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/sessions/checkin", laborer, map[string]any{
		"project_id": project.ID,
		"position":   map[string]float64{"lat": 12.9716 + 0.00225, "lon": 77.5946},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("far checkin: status=%d body=%s, want 400", resp.StatusCode, b)
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/sessions/checkin", laborer, map[string]any{
		"project_id": project.ID,
		"position":   map[string]float64{"lat": 12.9716, "lon": 77.5946},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkin: status=%d body=%s", resp.StatusCode, b)
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/sessions/checkout", laborer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout: status=%d body=%s", resp.StatusCode, b)
	}
	var session struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &session); err != nil {
		t.Fatal(err)
	}
	if session.Status != "PENDING_APPROVAL" {
		t.Fatalf("session status = %s, want PENDING_APPROVAL", session.Status)
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/sessions/"+session.ID+"/approve", contractor, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: status=%d body=%s", resp.StatusCode, b)
	}
}

func TestGigFlow(t *testing.T) {
	ts := newTestServer(t)
	consumer := registerAndLogin(t, ts, "9000000020", "CONSUMER")
	laborer := registerAndLogin(t, ts, "9000000021", "LABOR")

	resp, b := doJSON(t, ts.client, http.MethodPut, ts.URL+"/v0/me/profile", laborer, map[string]any{
		"first_name": "Ravi",
		"skills":     []string{"plumbing"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: status=%d body=%s", resp.StatusCode, b)
	}
	resp, b = doJSON(t, ts.client, http.MethodPut, ts.URL+"/v0/me/position", laborer, map[string]float64{
		"lat": 12.9716, "lon": 77.5946,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("position: status=%d body=%s", resp.StatusCode, b)
	}
	resp, b = doJSON(t, ts.client, http.MethodPut, ts.URL+"/v0/me/status", laborer, map[string]any{
		"status": "AVAILABLE",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: status=%d body=%s", resp.StatusCode, b)
	}

	resp, b = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/workers/nearby?lat=12.9716&lon=77.5946&skill=plumbing", consumer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby: status=%d body=%s", resp.StatusCode, b)
	}
	var hits []struct {
		ID             string  `json:"id"`
		DistanceMeters float64 `json:"distance_meters"`
	}
	if err := json.Unmarshal(b, &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("nearby hits = %d, want 1: %s", len(hits), b)
	}

	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/gigs", consumer, map[string]any{
		"laborer_id": hits[0].ID,
		"skill":      "plumbing",
		"address":    "44 Residency Road",
		"position":   map[string]float64{"lat": 12.9716, "lon": 77.5946},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("request gig: status=%d body=%s", resp.StatusCode, b)
	}
	var gig struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &gig); err != nil {
		t.Fatal(err)
	}

	for _, step := range []struct {
		path  string
		token string
		body  any
	}{
		{"/accept", laborer, nil},
		{"/start", laborer, nil},
		{"/invoice", laborer, map[string]any{"additional_amount": "25.00"}},
		{"/pay", consumer, map[string]any{"method": "CASH"}},
		{"/rate", consumer, map[string]any{"rating": 5}},
	} {
		resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/gigs/"+gig.ID+step.path, step.token, step.body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", step.path, resp.StatusCode, b)
		}
	}

	resp, b = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/gigs/"+gig.ID, consumer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get gig: status=%d body=%s", resp.StatusCode, b)
	}
	var got struct {
		Status      string `json:"status"`
		TotalAmount string `json:"total_amount"`
		Rating      int    `json:"rating"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "COMPLETED" || got.Rating != 5 {
		t.Fatalf("unexpected gig: %s", b)
	}

	// accept after completion conflicts
	resp, b = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/gigs/"+gig.ID+"/accept", laborer, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("accept completed: status=%d body=%s, want 409", resp.StatusCode, b)
	}
}
