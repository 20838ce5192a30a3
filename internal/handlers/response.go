package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ukydev/trip-service/internal/apperror"
	"github.com/ukydev/trip-service/internal/models"
)

func successResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func errorResponse(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, models.APIResponse{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Errors:     details,
	})
}

// statusOf maps an error kind onto an HTTP status.
func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors lists the failed validation rules carried by err, if any.
func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
