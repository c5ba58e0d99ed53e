package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/pkg/logger"
)

var secret = []byte("jwt-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestHMACTokenValidator(t *testing.T) {
	v := &HMACTokenValidator{Secret: secret}

	valid := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	claims, err := v.Validate(valid)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	expired := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	_, err = v.Validate(expired)
	assert.EqualError(t, err, "token expired")

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "u1"})
	_, err = v.Validate(wrongKey)
	assert.EqualError(t, err, "invalid token signature")

	_, err = v.Validate("not-a-token")
	assert.EqualError(t, err, "malformed token")

	hs512 := sign(t, jwt.SigningMethodHS512, secret, jwt.RegisteredClaims{Subject: "u1"})
	_, err = v.Validate(hs512)
	assert.Error(t, err)
}

func newAuthRouter(m *JWTMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/me/:userId", m.RequireAuth(), func(c *gin.Context) {
		if !CanAccessUser(c, c.Param("userId")) {
			c.Status(http.StatusForbidden)
			return
		}
		userID, _ := AuthenticatedUserID(c)
		c.String(http.StatusOK, userID)
	})
	return r
}

func TestJWTMiddleware_RequireAuth(t *testing.T) {
	router := newAuthRouter(NewJWTMiddleware(&HMACTokenValidator{Secret: secret}, logger.NewNop()))
	token := sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "u1"})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me/u1", "", http.StatusUnauthorized},
		{"not bearer", "/me/u1", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me/u1", "Bearer junk", http.StatusUnauthorized},
		{"other user", "/me/u2", "Bearer " + token, http.StatusForbidden},
		{"own user", "/me/u1", "Bearer " + token, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestJWTMiddleware_Disabled(t *testing.T) {
	m := NewJWTMiddleware(nil, logger.NewNop())
	assert.False(t, m.Enabled())

	rec := httptest.NewRecorder()
	newAuthRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/anyone", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(WebhookCORS))
	r.POST("/hook", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.OPTIONS("/hook", func(c *gin.Context) { c.String(http.StatusOK, "should not run") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/hook", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
