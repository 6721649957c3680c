package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/pkg/response"
)

// StayHandler handles HTTP requests for stay segments
type StayHandler struct {
	service *service.StayService
}

// NewStayHandler creates a new stay handler
func NewStayHandler(service *service.StayService) *StayHandler {
	return &StayHandler{service: service}
}

// GetStays handles GET /api/v1/stays
func (h *StayHandler) GetStays(c *gin.Context) {
	var filter models.StayFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.GetStays(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// GetStayByID handles GET /api/v1/stays/:id
func (h *StayHandler) GetStayByID(c *gin.Context) {
	id, ok := paramID(c, "stay")
	if !ok {
		return
	}

	stay, err := h.service.GetStayByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stay)
}
