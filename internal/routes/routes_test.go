package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tuition-center-api/internal/handler"
	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/service"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type fixedCounts struct{}

func (fixedCounts) CountByStatus(context.Context) ([]models.CountByKey, error) {
	return []models.CountByKey{{Key: "active", Count: 2}}, nil
}

func (fixedCounts) CountByType(context.Context) ([]models.CountByKey, error) {
	return nil, nil
}

func (fixedCounts) CountByMode(context.Context) ([]models.CountByKey, error) {
	return nil, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	counts := fixedCounts{}
	Register(r, Handlers{
		Users:     handler.NewUserHandler(nil),
		Finance:   handler.NewFinanceHandler(nil, nil),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(counts, counts, counts, nil)),
		Metrics:   handler.NewMetricsHandler(nil, nil),
	}, Options{
		Prefix:     "/api/v1",
		CookieName: "session",
		Tokens: tokenTable{
			"admin-token": {UserID: "a1", Role: models.RoleAdmin},
			"staff-token": {UserID: "s1", Role: models.RoleStaff},
		},
	})
	return r
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterOperationalEndpointsArePublic(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)
}

func TestRegisterRequiresSession(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/dashboard/summary", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/dashboard/summary", "bogus").Code)
}

func TestRegisterSessionCookie(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "staff-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"activeStudents":2`)
}

func TestRegisterAdminOnlyGroups(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/users", "staff-token").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/v1/users/a1", "staff-token").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/finance/summary", "staff-token").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPatch, "/api/v1/users/a1/password", "staff-token").Code)
}
