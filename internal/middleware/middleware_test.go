package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("user_id")})
	})
	return r
}

func TestAuth(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(-time.Hour).Unix()})
	forged := signToken(t, "other-secret", jwt.MapClaims{"user_id": 42})
	noUser := signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"lower-case scheme", "bearer " + valid, "", http.StatusOK},
		{"query token", "", "?token=" + valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"no user claim", "Bearer " + noUser, "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			authRouter().ServeHTTP(w, req)

			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
			}
		})
	}
}

func TestAuth_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() { Auth("") })
}

type countingLimiter struct {
	hits map[string]int
	err  error
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits[key]++
	return l.hits[key] > limit, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{hits: map[string]int{}}
	r := gin.New()
	r.Use(RateLimit(limiter, 2, time.Second))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(&countingLimiter{err: errors.New("redis down")}, 1, time.Second))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogger_RedactsToken(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(Logger(log))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?token=s3cr3t&x=1", nil))

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "REDACTED")
	assert.Contains(t, out, `"status_code":404`)
	assert.Contains(t, out, `"level":"warning"`)
}
