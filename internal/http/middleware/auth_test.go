package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, scopes []string, exp time.Time) string {
	t.Helper()
	claims := ScopeClaims{Scope: scopes, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), cfg)
	r := gin.New()
	r.POST("/studies/:studyId", am.RequireSystem(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PUT("/studies/:studyId/analysis/:id", am.RequireStudy(), func(c *gin.Context) {
		caller := ctxutil.GetCaller(c.Request.Context())
		if caller == nil || caller.Subject != "user-1" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthScopes(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret, SystemScope: "song.WRITE", StudyPrefix: "song.", StudySuffix: ".WRITE"}
	r := authRouter(cfg)
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
		code   string
	}{
		{"no token", http.MethodPut, "/studies/ST1/analysis/A", "", http.StatusUnauthorized, "unauthorized.token"},
		{"bad signature", http.MethodPut, "/studies/ST1/analysis/A", signed(t, "other", []string{"song.WRITE"}, future), http.StatusUnauthorized, "unauthorized.token"},
		{"expired", http.MethodPut, "/studies/ST1/analysis/A", signed(t, testSecret, []string{"song.WRITE"}, time.Now().Add(-time.Hour)), http.StatusUnauthorized, "unauthorized.token"},
		{"study scope", http.MethodPut, "/studies/ST1/analysis/A", signed(t, testSecret, []string{"song.ST1.WRITE"}, future), http.StatusOK, ""},
		{"other study", http.MethodPut, "/studies/ST2/analysis/A", signed(t, testSecret, []string{"song.ST1.WRITE"}, future), http.StatusForbidden, "forbidden.token"},
		{"system scope on study", http.MethodPut, "/studies/ST2/analysis/A", signed(t, testSecret, []string{"song.WRITE"}, future), http.StatusOK, ""},
		{"study scope on system route", http.MethodPost, "/studies/ST1", signed(t, testSecret, []string{"song.ST1.WRITE"}, future), http.StatusForbidden, "forbidden.token"},
		{"system route", http.MethodPost, "/studies/ST1", signed(t, testSecret, []string{"song.WRITE"}, future), http.StatusOK, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status want=%d got=%d body=%s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
		if tc.code != "" {
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("%s: decode: %v", tc.name, err)
			}
			if env.Error.Code != tc.code {
				t.Fatalf("%s: code want=%s got=%s", tc.name, tc.code, env.Error.Code)
			}
		}
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	r := authRouter(AuthConfig{})
	req := httptest.NewRequest(http.MethodPost, "/studies/ST1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d", rec.Code)
	}
}
