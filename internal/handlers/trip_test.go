package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/trip-service/internal/apperror"
	"github.com/ukydev/trip-service/internal/models"
)

// MockTripService is a mock implementation of TripService
type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) page(args mock.Arguments) (*models.TripPage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripPage), args.Error(1)
}

func (m *MockTripService) List(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error) {
	return m.page(m.Called(ctx, filters, page, limit))
}

func (m *MockTripService) Search(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error) {
	return m.page(m.Called(ctx, filters, page, limit))
}

func (m *MockTripService) FindByStatus(ctx context.Context, status string, page, limit int) (*models.TripPage, error) {
	return m.page(m.Called(ctx, status, page, limit))
}

func (m *MockTripService) FindByVehicleID(ctx context.Context, vehid int64, page, limit int) (*models.TripPage, error) {
	return m.page(m.Called(ctx, vehid, page, limit))
}

func (m *MockTripService) FindByDateRange(ctx context.Context, start, end time.Time, page, limit int) (*models.TripPage, error) {
	return m.page(m.Called(ctx, start, end, page, limit))
}

func (m *MockTripService) FindOne(ctx context.Context, id string) (*models.TripView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripView), args.Error(1)
}

func (m *MockTripService) Create(ctx context.Context, req models.CreateTripRequest) (*models.Trip, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockTripService) Update(ctx context.Context, id string, req models.UpdateTripRequest) (*models.TripView, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripView), args.Error(1)
}

func (m *MockTripService) Delete(ctx context.Context, id string) (*models.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func newTestRouter(service TripService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	r := gin.New()
	NewTripHandler(service, PageLimits{Default: 10, Max: 100}, logger).Register(r)
	return r
}

func do(r http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp models.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestTripHandler_List(t *testing.T) {
	service := new(MockTripService)
	page := &models.TripPage{Items: []models.TripView{}, Total: 0, Page: 2, Limit: 5}
	service.On("List", mock.Anything, map[string]interface{}{"status": "transit", "clientId": "abc"}, 2, 5).Return(page, nil)

	w, resp := do(newTestRouter(service), http.MethodGet, "/trip?page=2&limit=5&status=transit&clientId=abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestTripHandler_PaginationDefaultsAndClamp(t *testing.T) {
	service := new(MockTripService)
	service.On("List", mock.Anything, map[string]interface{}{}, 1, 10).Return(&models.TripPage{}, nil).Once()
	service.On("List", mock.Anything, map[string]interface{}{}, 1, 100).Return(&models.TripPage{}, nil).Once()
	r := newTestRouter(service)

	w, _ := do(r, http.MethodGet, "/trip", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodGet, "/trip?limit=5000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestTripHandler_InvalidPagination(t *testing.T) {
	service := new(MockTripService)
	r := newTestRouter(service)

	for _, target := range []string{"/trip?page=0", "/trip?limit=-1", "/trip?page=abc"} {
		w, resp := do(r, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.False(t, resp.Success)
	}
	service.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTripHandler_SearchInvalidID(t *testing.T) {
	service := new(MockTripService)
	service.On("Search", mock.Anything, map[string]interface{}{"_id": "not-a-valid-id"}, 1, 10).
		Return(nil, apperror.InvalidArgument("invalid _id filter %q", "not-a-valid-id"))

	w, resp := do(newTestRouter(service), http.MethodGet, "/trip/search?_id=not-a-valid-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Message, "not-a-valid-id")
}

func TestTripHandler_FindByStatus(t *testing.T) {
	service := new(MockTripService)
	service.On("FindByStatus", mock.Anything, "IN_TRANSIT", 1, 10).Return(&models.TripPage{Total: 3}, nil)

	w, _ := do(newTestRouter(service), http.MethodGet, "/trip/status/IN_TRANSIT", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestTripHandler_FindByVehicleID(t *testing.T) {
	service := new(MockTripService)
	service.On("FindByVehicleID", mock.Anything, int64(42), 1, 10).Return(&models.TripPage{}, nil)
	r := newTestRouter(service)

	w, _ := do(r, http.MethodGet, "/trip/vehicle/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodGet, "/trip/vehicle/KA01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNumberOfCalls(t, "FindByVehicleID", 1)
}

func TestTripHandler_FindByDateRange(t *testing.T) {
	service := new(MockTripService)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	service.On("FindByDateRange", mock.Anything, start, end, 1, 10).Return(&models.TripPage{}, nil)
	r := newTestRouter(service)

	w, _ := do(r, http.MethodGet, "/trip/date-range?startDate=2025-01-01&endDate=2025-01-31T12:00:00Z", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodGet, "/trip/date-range?startDate=2025-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNumberOfCalls(t, "FindByDateRange", 1)
}

func TestTripHandler_FindOne(t *testing.T) {
	service := new(MockTripService)
	view := &models.TripView{Trip: models.Trip{TripID: "TRIP-1"}}
	service.On("FindOne", mock.Anything, "507f1f77bcf86cd799439011").Return(view, nil)
	service.On("FindOne", mock.Anything, "507f1f77bcf86cd799439012").Return(nil, apperror.NotFound("trip %s not found", "507f1f77bcf86cd799439012"))
	r := newTestRouter(service)

	w, resp := do(r, http.MethodGet, "/trip/507f1f77bcf86cd799439011", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TRIP-1", data["tripId"])

	w, resp = do(r, http.MethodGet, "/trip/507f1f77bcf86cd799439012", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestTripHandler_Create(t *testing.T) {
	service := new(MockTripService)
	service.On("Create", mock.Anything, mock.MatchedBy(func(req models.CreateTripRequest) bool {
		return req.Status == "IN_TRANSIT" && req.RouteDetails.SourceHub == "507f1f77bcf86cd799439011"
	})).Return(&models.Trip{TripID: "TRIP-1"}, nil)

	body := map[string]interface{}{
		"status": "IN_TRANSIT",
		"routeDetails": map[string]interface{}{
			"sourceHub":      "507f1f77bcf86cd799439011",
			"destinationHub": "507f1f77bcf86cd799439012",
		},
	}
	w, resp := do(newTestRouter(service), http.MethodPost, "/trip", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Trip created successfully", resp.Message)
}

func TestTripHandler_CreateInvalidJSON(t *testing.T) {
	service := new(MockTripService)
	w, resp := do(newTestRouter(service), http.MethodPost, "/trip", "{bad json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTripHandler_CreateValidationErrors(t *testing.T) {
	service := new(MockTripService)
	verr := validator.New().Struct(struct {
		SourceHub string `validate:"required"`
	}{})
	service.On("Create", mock.Anything, mock.Anything).Return(nil, apperror.InvalidArgumentWithCause("invalid trip payload", verr))

	w, resp := do(newTestRouter(service), http.MethodPost, "/trip", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs, ok := resp.Errors.([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].(map[string]interface{})["rule"])
}

func TestTripHandler_CreateConflict(t *testing.T) {
	service := new(MockTripService)
	service.On("Create", mock.Anything, mock.Anything).Return(nil, apperror.Conflict("an active trip already exists"))

	w, _ := do(newTestRouter(service), http.MethodPost, "/trip", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTripHandler_Update(t *testing.T) {
	service := new(MockTripService)
	service.On("Update", mock.Anything, "507f1f77bcf86cd799439011", mock.MatchedBy(func(req models.UpdateTripRequest) bool {
		return req.Status != nil && *req.Status == "DELAYED" && req.MovementStatus == nil
	})).Return(&models.TripView{Trip: models.Trip{Status: "DELAYED"}}, nil)

	w, _ := do(newTestRouter(service), http.MethodPatch, "/trip/507f1f77bcf86cd799439011", map[string]interface{}{"status": "DELAYED"})
	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestTripHandler_DeleteInternalHidesCause(t *testing.T) {
	service := new(MockTripService)
	service.On("Delete", mock.Anything, "507f1f77bcf86cd799439011").
		Return(nil, apperror.Internal("error deleting trip", errors.New("connection refused 10.0.0.5")))

	w, resp := do(newTestRouter(service), http.MethodDelete, "/trip/507f1f77bcf86cd799439011", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error deleting trip", resp.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	healthy := true
	r.GET("/health", Health(PingFunc(func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("no reachable servers")
	})))

	w, _ := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w, _ = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
