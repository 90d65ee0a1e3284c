package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savelife/hospital-api/internal/utils"
)

func newTestRouter(t *testing.T) (*gin.Engine, *utils.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := utils.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return gin.New(), tokens
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r, tokens := newTestRouter(t)
	r.GET("/protected", Auth(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
	// No internals in the body, just the message.
	assert.NotContains(t, rec.Body.String(), "goroutine")
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	r, tokens := newTestRouter(t)
	r.GET("/protected", Auth(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthSetsIdentity(t *testing.T) {
	r, tokens := newTestRouter(t)
	r.GET("/protected", Auth(tokens), func(c *gin.Context) {
		actor, err := CurrentActor(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID.Hex(), "role": actor.Role})
	})

	token, err := tokens.Issue("665f1f77bcf86cd799439011", "doctor")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id": "665f1f77bcf86cd799439011", "role": "doctor"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	r, tokens := newTestRouter(t)
	r.GET("/admin", Auth(tokens), RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	patientToken, err := tokens.Issue("665f1f77bcf86cd799439011", "patient")
	require.NoError(t, err)
	adminToken, err := tokens.Issue("665f1f77bcf86cd799439012", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+patientToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(5)
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst must pass", i+1)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
