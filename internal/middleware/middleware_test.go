package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/karafriends/backend/internal/services"
	"github.com/karafriends/backend/internal/session"
)

func TestAuthMiddleware(t *testing.T) {
	identity := services.NewIdentityService("test-secret", time.Hour, services.NewNicknameGeneratorWithSeed(1))
	token, err := identity.GenerateToken(session.UserIdentity{DeviceID: "dev-1", Nickname: "Alice"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	var got session.UserIdentity
	handler := AuthMiddleware(identity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = session.UserIdentity{}
			req := httptest.NewRequest(http.MethodGet, "/api/queue"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (got.DeviceID != "dev-1" || got.Nickname != "Alice") {
				t.Errorf("identity = %+v", got)
			}
		})
	}
}

func TestRateLimiterPerDevice(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(deviceID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/catalog/dam/search", nil)
		req = req.WithContext(WithClaims(req.Context(), &services.Claims{DeviceID: deviceID}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("a"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	if code := do("a"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}
	if code := do("b"); code != http.StatusOK {
		t.Errorf("other device status = %d, want 200", code)
	}
}

func TestRealIPMiddleware(t *testing.T) {
	m := NewRealIPMiddleware([]string{"10.0.0.0/8", "192.168.1.1", "bogus"})

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"untrusted ignores headers", "203.0.113.5:1234", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.5"},
		{"trusted cidr uses xff", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "1.1.1.1, 10.1.2.3"}, "1.1.1.1"},
		{"trusted ip prefers cloudflare", "192.168.1.1:80", map[string]string{"CF-Connecting-IP": "2.2.2.2", "X-Forwarded-For": "1.1.1.1"}, "2.2.2.2"},
		{"trusted without headers", "10.0.0.1:80", nil, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			var got string
			m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("X-Real-IP")
			})).ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("X-Real-IP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://karaoke.local"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/queue", nil)
	req.Header.Set("Origin", "https://karaoke.local")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://karaoke.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
