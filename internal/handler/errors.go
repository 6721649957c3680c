package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/pkg/response"
)

// respondError maps service errors onto the response envelope
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

// paramID parses the :id path parameter, answering 400 when it is not a positive integer
func paramID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}
