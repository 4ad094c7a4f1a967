// internal/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuswell/wellness-loans/internal/utils"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/protected", AuthRequired(), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/open", OptionalAuth(), func(c *gin.Context) {
		_, authed := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"authed": authed})
	})

	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")
	r := authTestRouter()

	studentToken, err := utils.GenerateJWT(uuid.New(), "jsmith", "student", 1)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		w := doRequest(r, "/protected", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		w := doRequest(r, "/protected", "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := doRequest(r, "/protected", studentToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user_id")
	})
}

func TestAdminRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")
	r := authTestRouter()

	studentToken, err := utils.GenerateJWT(uuid.New(), "jsmith", "student", 1)
	require.NoError(t, err)
	adminToken, err := utils.GenerateJWT(uuid.New(), "staff", "admin", 1)
	require.NoError(t, err)

	t.Run("student is forbidden", func(t *testing.T) {
		w := doRequest(r, "/admin", studentToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		w := doRequest(r, "/admin", adminToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")
	r := authTestRouter()

	t.Run("anonymous passes through", func(t *testing.T) {
		w := doRequest(r, "/open", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"authed":false`)
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		w := doRequest(r, "/open", "junk")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"authed":false`)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		token, err := utils.GenerateJWT(uuid.New(), "jsmith", "student", 1)
		require.NoError(t, err)

		w := doRequest(r, "/open", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"authed":true`)
	})
}
