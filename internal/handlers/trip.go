package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/apperror"
	"github.com/ukydev/trip-service/internal/models"
)

// TripService is the trip engine behind the HTTP routes.
type TripService interface {
	List(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error)
	Search(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error)
	FindByStatus(ctx context.Context, status string, page, limit int) (*models.TripPage, error)
	FindByVehicleID(ctx context.Context, vehid int64, page, limit int) (*models.TripPage, error)
	FindByDateRange(ctx context.Context, start, end time.Time, page, limit int) (*models.TripPage, error)
	FindOne(ctx context.Context, id string) (*models.TripView, error)
	Create(ctx context.Context, req models.CreateTripRequest) (*models.Trip, error)
	Update(ctx context.Context, id string, req models.UpdateTripRequest) (*models.TripView, error)
	Delete(ctx context.Context, id string) (*models.Trip, error)
}

// PageLimits bounds the limit query parameter.
type PageLimits struct {
	Default int
	Max     int
}

// TripHandler serves the /trip routes.
type TripHandler struct {
	service TripService
	limits  PageLimits
	log     logrus.FieldLogger
}

func NewTripHandler(service TripService, limits PageLimits, log logrus.FieldLogger) *TripHandler {
	if limits.Max < 1 {
		limits.Max = 1000
	}
	if limits.Default < 1 || limits.Default > limits.Max {
		limits.Default = 10
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TripHandler{service: service, limits: limits, log: log}
}

// Register mounts the trip routes on r.
func (h *TripHandler) Register(r gin.IRouter) {
	trips := r.Group("/trip")
	trips.POST("", h.Create)
	trips.GET("", h.List)
	trips.GET("/search", h.Search)
	trips.GET("/status/:status", h.FindByStatus)
	trips.GET("/vehicle/:vehid", h.FindByVehicleID)
	trips.GET("/date-range", h.FindByDateRange)
	trips.GET("/:id", h.FindOne)
	trips.PATCH("/:id", h.Update)
	trips.DELETE("/:id", h.Delete)
}

func (h *TripHandler) Create(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	trip, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successResponse(c, http.StatusCreated, "Trip created successfully", trip)
}

func (h *TripHandler) List(c *gin.Context) {
	page, limit, ok := h.pagination(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), queryFilters(c), page, limit)
	h.respondPage(c, result, err)
}

func (h *TripHandler) Search(c *gin.Context) {
	page, limit, ok := h.pagination(c)
	if !ok {
		return
	}
	result, err := h.service.Search(c.Request.Context(), queryFilters(c), page, limit)
	h.respondPage(c, result, err)
}

func (h *TripHandler) FindByStatus(c *gin.Context) {
	page, limit, ok := h.pagination(c)
	if !ok {
		return
	}
	result, err := h.service.FindByStatus(c.Request.Context(), c.Param("status"), page, limit)
	h.respondPage(c, result, err)
}

func (h *TripHandler) FindByVehicleID(c *gin.Context) {
	vehid, err := strconv.ParseInt(c.Param("vehid"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid vehicle id", nil)
		return
	}
	page, limit, ok := h.pagination(c)
	if !ok {
		return
	}
	result, err := h.service.FindByVehicleID(c.Request.Context(), vehid, page, limit)
	h.respondPage(c, result, err)
}

func (h *TripHandler) FindByDateRange(c *gin.Context) {
	start, err := parseDate(c.Query("startDate"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid or missing startDate", nil)
		return
	}
	end, err := parseDate(c.Query("endDate"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid or missing endDate", nil)
		return
	}
	page, limit, ok := h.pagination(c)
	if !ok {
		return
	}
	result, err := h.service.FindByDateRange(c.Request.Context(), start, end, page, limit)
	h.respondPage(c, result, err)
}

func (h *TripHandler) FindOne(c *gin.Context) {
	trip, err := h.service.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "Trip fetched successfully", trip)
}

func (h *TripHandler) Update(c *gin.Context) {
	var req models.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	trip, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "Trip updated successfully", trip)
}

func (h *TripHandler) Delete(c *gin.Context) {
	trip, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "Trip deleted successfully", trip)
}

func (h *TripHandler) respondPage(c *gin.Context, result *models.TripPage, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "Trips fetched successfully", result)
}

func (h *TripHandler) fail(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusOf(kind)
	if kind == apperror.KindInternal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Trip request failed")
	}

	var details interface{}
	if fields := fieldErrors(err); len(fields) > 0 {
		details = fields
	}
	errorResponse(c, status, apperror.MessageOf(err), details)
}

// pagination reads page and limit, defaulting and clamping limit. It writes
// a 400 and returns false on malformed values.
func (h *TripHandler) pagination(c *gin.Context) (page, limit int, ok bool) {
	page, limit = 1, h.limits.Default

	if ps := c.Query("page"); ps != "" {
		v, err := strconv.Atoi(ps)
		if err != nil || v < 1 {
			errorResponse(c, http.StatusBadRequest, "invalid page parameter", nil)
			return 0, 0, false
		}
		page = v
	}
	if ls := c.Query("limit"); ls != "" {
		v, err := strconv.Atoi(ls)
		if err != nil || v < 1 {
			errorResponse(c, http.StatusBadRequest, "invalid limit parameter", nil)
			return 0, 0, false
		}
		limit = v
	}
	if limit > h.limits.Max {
		limit = h.limits.Max
	}
	return page, limit, true
}

// queryFilters turns every query parameter other than page and limit into a
// filter entry. Repeated parameters keep their first value.
func queryFilters(c *gin.Context) map[string]interface{} {
	filters := map[string]interface{}{}
	for key, values := range c.Request.URL.Query() {
		if key == "page" || key == "limit" || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}
	return filters
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
