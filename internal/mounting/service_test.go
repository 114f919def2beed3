package mounting

import (
	"context"
	"errors"
	"testing"

	"estimate-service/internal/document"
	"estimate-service/internal/domain"
	apiErrors "estimate-service/internal/errors"
	"estimate-service/redis"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Agree(ctx context.Context, docID uint64, counterpartyID uint64) (*domain.Document, error) {
	args := m.Called(ctx, docID, counterpartyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockRepository) AddWork(ctx context.Context, docID uint64, work *domain.Work) error {
	args := m.Called(ctx, docID, work)
	return args.Error(0)
}

func (m *MockRepository) UpdateWork(ctx context.Context, workID uint64, update WorkUpdate) (*domain.Work, uint64, error) {
	args := m.Called(ctx, workID, update)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.Work), args.Get(1).(uint64), args.Error(2)
}

func (m *MockRepository) DeleteWork(ctx context.Context, workID uint64) (uint64, error) {
	args := m.Called(ctx, workID)
	return args.Get(0).(uint64), args.Error(1)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) FindDocumentTree(ctx context.Context, id uint64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) NextChainID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockDocumentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) IsVendorCapable(ctx context.Context, counterpartyID uint64) (bool, error) {
	args := m.Called(ctx, counterpartyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) ObjectName(ctx context.Context, objectID uint64) (string, error) {
	args := m.Called(ctx, objectID)
	return args.String(0), args.Error(1)
}

type serviceMocks struct {
	repo     *MockRepository
	store    *MockDocumentStore
	registry *MockRegistry
}

func newTestService() (Service, serviceMocks) {
	mocks := serviceMocks{
		repo:     new(MockRepository),
		store:    new(MockDocumentStore),
		registry: new(MockRegistry),
	}
	service := NewService(mocks.repo, mocks.store, mocks.registry, redis.NewCache(nil))
	return service, mocks
}

func assertAPIError(t *testing.T, err error, status int, kind string) {
	t.Helper()
	apiErr, ok := err.(*apiErrors.APIError)
	assert.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, kind, apiErr.Kind)
}

func estimateTree() *domain.Document {
	objectID := uint64(3)
	return &domain.Document{
		ID:            10,
		ChainID:       4,
		Kind:          domain.KindEstimate,
		Name:          "Smeta 1",
		Status:        domain.StatusApproved,
		VersionNumber: 2,
		IsCurrent:     true,
		ObjectID:      &objectID,
		ObjectName:    "Business center A",
		ManHours:      decimal.NewFromInt(120),
		Sections: []domain.Section{{
			Subsections: []domain.Subsection{{
				MaterialsSale:     decimal.NewFromInt(1000),
				WorksSale:         decimal.NewFromInt(500),
				MaterialsPurchase: decimal.NewFromInt(600),
				WorksPurchase:     decimal.NewFromInt(200),
			}},
		}},
	}
}

func TestCreateFromEstimate_SeedsFromCurrentRollup(t *testing.T) {
	service, mocks := newTestService()

	source := estimateTree()
	mocks.store.On("FindDocumentTree", mock.Anything, uint64(10)).Return(source, nil)
	mocks.store.On("NextChainID", mock.Anything).Return(uint64(5), nil)
	mocks.store.On("CreateDocument", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
		return doc.Kind == domain.KindMountingEstimate &&
			doc.ChainID == 5 &&
			doc.VersionNumber == 1 &&
			doc.IsCurrent &&
			doc.Status == domain.StatusDraft &&
			doc.SourceEstimateID != nil && *doc.SourceEstimateID == 10 &&
			doc.TotalAmount.Equal(decimal.NewFromInt(1500)) &&
			doc.ManHours.Equal(decimal.NewFromInt(120))
	})).Return(nil)

	result, err := service.CreateFromEstimate(context.Background(), 10)

	assert.NoError(t, err)
	assert.Equal(t, domain.KindMountingEstimate, result.Kind)
	assert.Equal(t, "Business center A", result.ObjectName)
	mocks.store.AssertExpectations(t)
}

func TestCreateFromEstimate_NotAnEstimate(t *testing.T) {
	service, mocks := newTestService()

	project := &domain.Document{ID: 10, Kind: domain.KindProject, IsCurrent: true}
	mocks.store.On("FindDocumentTree", mock.Anything, uint64(10)).Return(project, nil)

	_, err := service.CreateFromEstimate(context.Background(), 10)

	assertAPIError(t, err, 404, apiErrors.KindNotFound)
	mocks.store.AssertNotCalled(t, "CreateDocument")
}

func TestCreateFromEstimate_SupersededVersion(t *testing.T) {
	service, mocks := newTestService()

	source := estimateTree()
	source.IsCurrent = false
	mocks.store.On("FindDocumentTree", mock.Anything, uint64(10)).Return(source, nil)

	_, err := service.CreateFromEstimate(context.Background(), 10)

	assertAPIError(t, err, 403, apiErrors.KindForbidden)
	mocks.store.AssertNotCalled(t, "CreateDocument")
}

func TestAgree(t *testing.T) {
	service, mocks := newTestService()

	counterpartyID := uint64(77)
	agreed := &domain.Document{
		ID:                   20,
		Kind:                 domain.KindMountingEstimate,
		Status:               domain.StatusApproved,
		IsCurrent:            true,
		AgreedCounterpartyID: &counterpartyID,
	}
	mocks.registry.On("IsVendorCapable", mock.Anything, counterpartyID).Return(true, nil)
	mocks.repo.On("Agree", mock.Anything, uint64(20), counterpartyID).Return(agreed, nil)
	mocks.store.On("FindDocumentTree", mock.Anything, uint64(20)).Return(agreed, nil)

	result, err := service.Agree(context.Background(), 20, counterpartyID)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.NotNil(t, result.AgreedCounterpartyID)
	assert.Equal(t, counterpartyID, *result.AgreedCounterpartyID)
	mocks.repo.AssertExpectations(t)
}

func TestAgree_VendorIncapable(t *testing.T) {
	service, mocks := newTestService()

	mocks.registry.On("IsVendorCapable", mock.Anything, uint64(77)).Return(false, nil)

	_, err := service.Agree(context.Background(), 20, 77)

	assertAPIError(t, err, 422, apiErrors.KindUnprocessable)
	mocks.repo.AssertNotCalled(t, "Agree")
}

func TestAgree_RegistryUnavailable(t *testing.T) {
	service, mocks := newTestService()

	mocks.registry.On("IsVendorCapable", mock.Anything, uint64(77)).
		Return(false, errors.New("connection refused"))

	_, err := service.Agree(context.Background(), 20, 77)

	assertAPIError(t, err, 422, apiErrors.KindUnprocessable)
	mocks.repo.AssertNotCalled(t, "Agree")
}

func TestAgree_NotSent(t *testing.T) {
	service, mocks := newTestService()

	mocks.registry.On("IsVendorCapable", mock.Anything, uint64(77)).Return(true, nil)
	mocks.repo.On("Agree", mock.Anything, uint64(20), uint64(77)).Return(nil, ErrWrongStatus)

	_, err := service.Agree(context.Background(), 20, 77)

	assertAPIError(t, err, 409, apiErrors.KindConflict)
}

func TestAgree_SecondAttempt(t *testing.T) {
	service, mocks := newTestService()

	mocks.registry.On("IsVendorCapable", mock.Anything, uint64(77)).Return(true, nil)
	mocks.repo.On("Agree", mock.Anything, uint64(20), uint64(77)).Return(nil, ErrAlreadyAgreed)

	_, err := service.Agree(context.Background(), 20, 77)

	assertAPIError(t, err, 409, apiErrors.KindConflict)
}

func TestAgree_SupersededVersion(t *testing.T) {
	service, mocks := newTestService()

	mocks.registry.On("IsVendorCapable", mock.Anything, uint64(77)).Return(true, nil)
	mocks.repo.On("Agree", mock.Anything, uint64(20), uint64(77)).Return(nil, document.ErrNotCurrent)

	_, err := service.Agree(context.Background(), 20, 77)

	assertAPIError(t, err, 403, apiErrors.KindForbidden)
}

func TestAddWork(t *testing.T) {
	service, mocks := newTestService()

	mocks.repo.On("AddWork", mock.Anything, uint64(20), mock.MatchedBy(func(w *domain.Work) bool {
		return w.Name == "Cable laying" &&
			w.Quantity.Equal(decimal.NewFromInt(3)) &&
			w.UnitPrice.Equal(decimal.NewFromInt(250))
	})).Return(nil)

	result, err := service.AddWork(context.Background(), 20, WorkInput{
		Name:      "Cable laying",
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.NewFromInt(250),
	})

	assert.NoError(t, err)
	assert.Equal(t, "Cable laying", result.Name)
	mocks.repo.AssertExpectations(t)
}

func TestAddWork_MissingName(t *testing.T) {
	service, mocks := newTestService()

	_, err := service.AddWork(context.Background(), 20, WorkInput{
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(100),
	})

	assertAPIError(t, err, 422, apiErrors.KindValidation)
	mocks.repo.AssertNotCalled(t, "AddWork")
}

func TestAddWork_NegativeQuantity(t *testing.T) {
	service, mocks := newTestService()

	_, err := service.AddWork(context.Background(), 20, WorkInput{
		Name:     "Cable laying",
		Quantity: decimal.NewFromInt(-1),
	})

	assertAPIError(t, err, 422, apiErrors.KindValidation)
	mocks.repo.AssertNotCalled(t, "AddWork")
}

func TestUpdateWork_EmptyName(t *testing.T) {
	service, mocks := newTestService()

	empty := ""
	_, err := service.UpdateWork(context.Background(), 30, WorkUpdate{Name: &empty})

	assertAPIError(t, err, 422, apiErrors.KindValidation)
	mocks.repo.AssertNotCalled(t, "UpdateWork")
}

func TestDeleteWork_NotCurrent(t *testing.T) {
	service, mocks := newTestService()

	mocks.repo.On("DeleteWork", mock.Anything, uint64(30)).Return(uint64(0), document.ErrNotCurrent)

	err := service.DeleteWork(context.Background(), 30)

	assertAPIError(t, err, 403, apiErrors.KindForbidden)
}
