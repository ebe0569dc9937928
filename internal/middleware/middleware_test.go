package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smsgateway/config"
	"smsgateway/internal/auth"
	"smsgateway/internal/domain"

	"github.com/gin-gonic/gin"
)

var jwtCfg = &config.JWTConfig{AccessSecret: "s", RefreshSecret: "r", AccessExpiry: time.Hour, RefreshExpiry: time.Hour}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	r.GET("/", handlers...)
	return r
}

func get(r *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(AuthRequired(jwtCfg))
	token, err := auth.GenerateAccessToken(jwtCfg, 7, "u@example.com", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		if got := get(r, tc.header); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestAdminRequired(t *testing.T) {
	r := newEngine(AuthRequired(jwtCfg), AdminRequired())
	user, _ := auth.GenerateAccessToken(jwtCfg, 1, "u@example.com", domain.RoleUser)
	admin, _ := auth.GenerateAccessToken(jwtCfg, 2, "a@example.com", domain.RoleAdmin)
	if got := get(r, "Bearer "+user); got != http.StatusForbidden {
		t.Errorf("Expected 403 for user, got %d", got)
	}
	if got := get(r, "Bearer "+admin); got != http.StatusOK {
		t.Errorf("Expected 200 for admin, got %d", got)
	}
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(NewInMemoryRateLimiter(2, time.Minute)))
	for i := 0; i < 2; i++ {
		if got := get(r, ""); got != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, got)
		}
	}
	if got := get(r, ""); got != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after limit, got %d", got)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Millisecond)
	l.Allow("a")
	time.Sleep(5 * time.Millisecond)
	l.sweep()
	l.mu.Lock()
	n := len(l.requests)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("Expected idle keys to be dropped, %d left", n)
	}
	if !l.Allow("a") {
		t.Errorf("Expected key to be allowed again after the window")
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	r := newEngine(RequireRole(domain.RoleAdmin))
	if got := get(r, ""); got != http.StatusUnauthorized {
		t.Errorf("Expected 401 when no role is set, got %d", got)
	}
}
