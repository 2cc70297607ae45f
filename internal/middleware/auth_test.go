package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthAndRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	r := gin.New()
	r.GET("/staff", AuthMiddleware(cfg), RoleMiddleware(model.Teacher), func(c *gin.Context) {
		c.String(http.StatusOK, util.GetUserFromContext(c).Email)
	})

	token := func(role model.UserRole) string {
		u := &model.User{Email: string(role) + "@school.test", Role: role}
		u.ID = 1
		tok, err := util.GenerateJWT(u, cfg.JWT.Secret, time.Hour)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"student", "Bearer " + token(model.Student), http.StatusForbidden},
		{"teacher", "Bearer " + token(model.Teacher), http.StatusOK},
		{"superteacher", "Bearer " + token(model.SuperTeacher), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	u := &model.User{Email: "s@school.test", Role: model.Student}
	tok, err := util.GenerateJWT(u, cfg.JWT.Secret, -time.Minute)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":401,"error":"unauthorized"}`, w.Body.String())
}
