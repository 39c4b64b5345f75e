package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraftwt/loan-backend-sub000/internal/auth"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

func newAuthTestRouter(t *testing.T, jwt *auth.JWTManager, roles ...userdomain.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", RequireAuth(jwt))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("user_role")})
	})
	return r
}

func TestRequireAuthFromCookie(t *testing.T) {
	jwt := auth.NewJWTManager("loan-backend", "loan-clients", "test-signing-key")
	r := newAuthTestRouter(t, jwt)

	tok, err := jwt.Mint("user-1", "lender", "session-1", "access", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: tok})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
}

func TestRequireAuthFromBearerHeader(t *testing.T) {
	jwt := auth.NewJWTManager("loan-backend", "loan-clients", "test-signing-key")
	r := newAuthTestRouter(t, jwt)

	tok, err := jwt.Mint("user-1", "borrower", "session-1", "access", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"borrower"`)
}

func TestRequireAuthRejections(t *testing.T) {
	jwt := auth.NewJWTManager("loan-backend", "loan-clients", "test-signing-key")
	r := newAuthTestRouter(t, jwt)

	// No credentials at all.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A refresh token must not pass as an access token.
	refresh, err := jwt.Mint("user-1", "lender", "session-1", "refresh", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	jwt := auth.NewJWTManager("loan-backend", "loan-clients", "test-signing-key")
	r := newAuthTestRouter(t, jwt, userdomain.RoleLender, userdomain.RoleAdmin)

	lender, err := jwt.Mint("user-1", "lender", "session-1", "access", time.Minute)
	require.NoError(t, err)
	borrower, err := jwt.Mint("user-2", "borrower", "session-2", "access", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+lender)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+borrower)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
