package document

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"estimate-service/internal/domain"
	apiErrors "estimate-service/internal/errors"
	"estimate-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateDocument(ctx context.Context, kind string, input CreateDocumentInput) (*DocumentResponse, error) {
	args := m.Called(ctx, kind, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentResponse), args.Error(1)
}

func (m *MockService) GetDocument(ctx context.Context, docID uint64) (*DocumentResponse, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentResponse), args.Error(1)
}

func (m *MockService) ListDocuments(ctx context.Context, kind string, page, pageSize int) (*PaginatedDocuments, error) {
	args := m.Called(ctx, kind, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedDocuments), args.Error(1)
}

func (m *MockService) UpdateStatus(ctx context.Context, docID uint64, status string) (*DocumentResponse, error) {
	args := m.Called(ctx, docID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentResponse), args.Error(1)
}

func (m *MockService) CreateVersion(ctx context.Context, docID uint64) (*DocumentResponse, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentResponse), args.Error(1)
}

func (m *MockService) ListVersions(ctx context.Context, chainID uint64) ([]VersionResponse, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VersionResponse), args.Error(1)
}

func (m *MockService) CreateSection(ctx context.Context, docID uint64, name string, sortOrder int) (*SectionResponse, error) {
	args := m.Called(ctx, docID, name, sortOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SectionResponse), args.Error(1)
}

func (m *MockService) UpdateSection(ctx context.Context, sectionID uint64, update SectionUpdate) (*SectionResponse, error) {
	args := m.Called(ctx, sectionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SectionResponse), args.Error(1)
}

func (m *MockService) DeleteSection(ctx context.Context, sectionID uint64) error {
	args := m.Called(ctx, sectionID)
	return args.Error(0)
}

func (m *MockService) CreateSubsection(ctx context.Context, sectionID uint64, input SubsectionInput) (*SubsectionResponse, error) {
	args := m.Called(ctx, sectionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubsectionResponse), args.Error(1)
}

func (m *MockService) UpdateSubsection(ctx context.Context, subsectionID uint64, update SubsectionUpdate) (*SubsectionResponse, error) {
	args := m.Called(ctx, subsectionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubsectionResponse), args.Error(1)
}

func (m *MockService) DeleteSubsection(ctx context.Context, subsectionID uint64) error {
	args := m.Called(ctx, subsectionID)
	return args.Error(0)
}

func (m *MockService) CreateCharacteristic(ctx context.Context, docID uint64, input CharacteristicInput) (*CharacteristicResponse, error) {
	args := m.Called(ctx, docID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CharacteristicResponse), args.Error(1)
}

func (m *MockService) UpdateCharacteristic(ctx context.Context, characteristicID uint64, update CharacteristicUpdate) (*CharacteristicResponse, error) {
	args := m.Called(ctx, characteristicID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CharacteristicResponse), args.Error(1)
}

func (m *MockService) DeleteCharacteristic(ctx context.Context, characteristicID uint64) error {
	args := m.Called(ctx, characteristicID)
	return args.Error(0)
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())

	router.POST("/estimates", handler.CreateEstimate)
	router.GET("/documents/:id", handler.ShowDocument)
	router.PATCH("/documents/:id", handler.UpdateStatus)
	router.POST("/documents/:id/sections", handler.CreateSection)
	router.POST("/documents/:id/characteristics", handler.CreateCharacteristic)
	router.POST("/documents/:id/versions", handler.CreateVersion)
	router.GET("/chains/:chainId/versions", handler.ListVersions)
	router.DELETE("/characteristics/:id", handler.DeleteCharacteristic)

	return router
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestShowDocument(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	doc := &DocumentResponse{ID: 1, Kind: domain.KindEstimate, Status: domain.StatusDraft, VersionNumber: 1, IsCurrent: true}
	mockService.On("GetDocument", mock.Anything, uint64(1)).Return(doc, nil)

	recorder := performRequest(router, http.MethodGet, "/documents/1", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var got DocumentResponse
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestShowDocument_NotFound(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("GetDocument", mock.Anything, uint64(9)).
		Return(nil, apiErrors.NotFound("Document not found", nil))

	recorder := performRequest(router, http.MethodGet, "/documents/9", nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Document not found")
}

func TestShowDocument_InvalidID(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	recorder := performRequest(router, http.MethodGet, "/documents/abc", nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	mockService.AssertNotCalled(t, "GetDocument")
}

func TestCreateEstimate(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	doc := &DocumentResponse{ID: 1, Kind: domain.KindEstimate, Name: "Smeta 1", Status: domain.StatusDraft, VersionNumber: 1, IsCurrent: true}
	mockService.On("CreateDocument", mock.Anything, domain.KindEstimate, mock.MatchedBy(func(input CreateDocumentInput) bool {
		return input.Name == "Smeta 1"
	})).Return(doc, nil)

	recorder := performRequest(router, http.MethodPost, "/estimates", gin.H{"name": "Smeta 1"})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestCreateEstimate_MissingName(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	recorder := performRequest(router, http.MethodPost, "/estimates", gin.H{"number": "42"})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	mockService.AssertNotCalled(t, "CreateDocument")
}

func TestUpdateStatus_InvalidTransitionResponse(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("UpdateStatus", mock.Anything, uint64(1), domain.StatusAgreed).
		Return(nil, apiErrors.InvalidTransition("Can't move from draft to agreed", nil))

	recorder := performRequest(router, http.MethodPatch, "/documents/1", gin.H{"status": domain.StatusAgreed})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, apiErrors.KindInvalidTransition, body["code"])
}

func TestCreateSection(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	section := &SectionResponse{ID: 5, DocumentID: 1, Name: "Foundations"}
	mockService.On("CreateSection", mock.Anything, uint64(1), "Foundations", 2).Return(section, nil)

	recorder := performRequest(router, http.MethodPost, "/documents/1/sections", gin.H{
		"name":       "Foundations",
		"sort_order": 2,
	})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestCreateCharacteristic_BadSourceType(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	recorder := performRequest(router, http.MethodPost, "/documents/1/characteristics", gin.H{
		"name":        "Итого",
		"source_type": "derived",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	mockService.AssertNotCalled(t, "CreateCharacteristic")
}

func TestDeleteCharacteristic_Auto(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("DeleteCharacteristic", mock.Anything, uint64(3)).
		Return(apiErrors.ForbiddenOperation("Auto characteristics can't be deleted", nil))

	recorder := performRequest(router, http.MethodDelete, "/characteristics/3", nil)

	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, apiErrors.KindForbiddenOperation, body["code"])
}

func TestCreateVersionEndpoint_Conflict(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("CreateVersion", mock.Anything, uint64(1)).
		Return(nil, apiErrors.Conflict("A new version was created concurrently", nil))

	recorder := performRequest(router, http.MethodPost, "/documents/1/versions", nil)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestListVersions(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	versions := []VersionResponse{
		{ID: 2, ChainID: 7, VersionNumber: 2, IsCurrent: true, Status: domain.StatusDraft},
		{ID: 1, ChainID: 7, VersionNumber: 1, IsCurrent: false, Status: domain.StatusApproved},
	}
	mockService.On("ListVersions", mock.Anything, uint64(7)).Return(versions, nil)

	recorder := performRequest(router, http.MethodGet, "/chains/7/versions", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var got []VersionResponse
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.True(t, got[0].IsCurrent)
	assert.False(t, got[1].IsCurrent)
}
