package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type authServiceMock struct {
	loginErr      error
	lastLogin     models.LoginRequest
	lastRefresh   string
	lastLogoutFor string
}

func (m *authServiceMock) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastLogin = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 900}, nil
}

func (m *authServiceMock) RefreshToken(_ context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	m.lastRefresh = req.RefreshToken
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(_ context.Context, refreshToken string, userID string, _ models.RequestMeta) error {
	m.lastRefresh = refreshToken
	m.lastLogoutFor = userID
	return nil
}

func (m *authServiceMock) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Email: "admin@centre.test", Role: models.RoleAdmin}, nil
}

func (m *authServiceMock) AccessTokenTTL() time.Duration { return 15 * time.Minute }

var testCookie = SessionCookie{Name: "tc_session", Secure: true}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	return nil
}

func TestAuthHandlerLoginSetsSessionCookie(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, testCookie)

	w := serve(t, http.MethodPost, "/auth/login", "/auth/login", `{"email":"admin@centre.test","password":"secret123"}`, h.Login)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "access-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 900, cookie.MaxAge)
	assert.Equal(t, "admin@centre.test", svc.lastLogin.Email)
}

func TestAuthHandlerLoginFailureSetsNoCookie(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")}, testCookie)

	w := serve(t, http.MethodPost, "/auth/login", "/auth/login", `{"email":"x@y.z","password":"nope"}`, h.Login)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestAuthHandlerRefresh(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, testCookie)

	w := serve(t, http.MethodPost, "/auth/refresh", "/auth/refresh", `{"refreshToken":"refresh-1"}`, h.Refresh)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refresh-1", svc.lastRefresh)
	require.NotNil(t, sessionCookie(w))
	assert.Equal(t, "access-2", sessionCookie(w).Value)
}

func TestAuthHandlerLogoutClearsCookie(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, testCookie)

	w := serve(t, http.MethodPost, "/auth/logout", "/auth/logout", `{"refreshToken":"refresh-1"}`, h.Logout)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, adminClaims.UserID, svc.lastLogoutFor)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, testCookie)

	w := serve(t, http.MethodPost, "/auth/logout", "/auth/logout", `{}`, h.Logout)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&authServiceMock{}, testCookie)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, testCookie)

	w := serve(t, http.MethodGet, "/auth/me", "/auth/me", "", h.Me)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), adminClaims.UserID))
}
