package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/service"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type subjectServiceMock struct {
	lastFilter models.SubjectFilter
	lastCreate service.CreateSubjectRequest
	lastCode   string
	lastActor  string
	err        error
}

func (m *subjectServiceMock) List(_ context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, *models.Pagination, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, nil, m.err
	}
	items := []models.SubjectSummary{{Subject: models.Subject{Code: "MM4", Name: "Matematik"}, EnrolledCount: 3}}
	return items, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}

func (m *subjectServiceMock) Get(_ context.Context, code string) (*models.SubjectDetail, error) {
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return &models.SubjectDetail{Subject: models.Subject{Code: code}}, nil
}

func (m *subjectServiceMock) Create(_ context.Context, req service.CreateSubjectRequest) (*models.Subject, error) {
	m.lastCreate = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Subject{Code: req.Code, Name: req.Name}, nil
}

func (m *subjectServiceMock) Update(_ context.Context, code string, req service.UpdateSubjectRequest) (*models.Subject, error) {
	m.lastCode = code
	return &models.Subject{Code: code, Name: req.Name}, m.err
}

func (m *subjectServiceMock) Delete(_ context.Context, code, actorID string, _ models.RequestMeta) error {
	m.lastCode = code
	m.lastActor = actorID
	return m.err
}

func TestSubjectHandlerListPassesFilters(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc)

	w := serve(t, http.MethodGet, "/subjects", "/subjects?type=NORMAL&standard=F4&search=mat&page=2&limit=5", "", h.List)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NORMAL", svc.lastFilter.Type)
	assert.Equal(t, "F4", svc.lastFilter.Standard)
	assert.Equal(t, "mat", svc.lastFilter.Search)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.PageSize)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
	assert.Contains(t, string(env.Data), `"enrolledCount":3`)
}

func TestSubjectHandlerGetNotFound(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "subject not found")})

	w := serve(t, http.MethodGet, "/subjects/:code", "/subjects/ZZ", "", h.Get)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, env.Error.Code)
}

func TestSubjectHandlerCreate(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc)

	w := serve(t, http.MethodPost, "/subjects", "/subjects", `{"code":"MM4","name":"Matematik","standard":"F4","type":"NORMAL"}`, h.Create)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "MM4", svc.lastCreate.Code)
	var created models.Subject
	decodeData(t, w, &created)
	assert.Equal(t, "Matematik", created.Name)
}

func TestSubjectHandlerCreateMalformedBody(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{})

	w := serve(t, http.MethodPost, "/subjects", "/subjects", `{"code":`, h.Create)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubjectHandlerCreateConflict(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{err: appErrors.Conflictf("subject MM4 already exists")})

	w := serve(t, http.MethodPost, "/subjects", "/subjects", `{"code":"MM4"}`, h.Create)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeEnvelope(t, w).Error.Message, "MM4")
}

func TestSubjectHandlerUpdateUsesPathCode(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc)

	w := serve(t, http.MethodPut, "/subjects/:code", "/subjects/KIM4", `{"name":"Kimia","standard":"F4","type":"NORMAL"}`, h.Update)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "KIM4", svc.lastCode)
}

func TestSubjectHandlerDelete(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc)

	w := serve(t, http.MethodDelete, "/subjects/:code", "/subjects/MM4", "", h.Delete)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "MM4", svc.lastCode)
	assert.Equal(t, adminClaims.UserID, svc.lastActor)
}
