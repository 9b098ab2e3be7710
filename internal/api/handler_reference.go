package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"settlement-form-backend/internal/backend"
)

// GetFaculties handles the GET /api/reference/faculties request.
func (h *Handler) GetFaculties(c *gin.Context) {
	faculties, err := h.reference.Faculties(c.Request.Context())
	if err != nil {
		h.referenceError(c, "faculties", err)
		return
	}
	c.JSON(http.StatusOK, faculties)
}

// GetGroups handles the GET /api/reference/faculties/{id}/groups request.
func (h *Handler) GetGroups(c *gin.Context) {
	groups, err := h.reference.Groups(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.referenceError(c, "groups", err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetDormitories handles the GET /api/reference/dormitories request.
func (h *Handler) GetDormitories(c *gin.Context) {
	dormitories, err := h.reference.Dormitories(c.Request.Context())
	if err != nil {
		h.referenceError(c, "dormitories", err)
		return
	}
	c.JSON(http.StatusOK, dormitories)
}

func (h *Handler) referenceError(c *gin.Context, what string, err error) {
	if errors.Is(err, backend.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	h.logger.Warn("reference data lookup failed", zap.String("resource", what), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve " + what})
}
