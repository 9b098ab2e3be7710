package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/session"
	"settlement-form-backend/internal/submit"
)

// variantKey is the gin context key holding the resolved form variant.
const variantKey = "variant"

// resolveVariant looks up the :variant path parameter.
func resolveVariant(c *gin.Context) {
	v, err := form.LookupVariant(c.Param("variant"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Set(variantKey, v)
	c.Next()
}

func variantOf(c *gin.Context) form.Variant {
	return c.MustGet(variantKey).(form.Variant)
}

// formError writes the response for an error of a form operation.
func (h *Handler) formError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, form.ErrMalformedPath),
		errors.Is(err, form.ErrUnknownField),
		errors.Is(err, form.ErrIndexOutOfRange),
		errors.Is(err, session.ErrUnknownDirection):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case c.Request.Context().Err() != nil:
		c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error("form operation failed", zap.String("user_id", userID(c)), zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the form"})
	}
}

// GetForm handles the GET /api/forms/{variant} request: it opens the form
// of the calling user.
func (h *Handler) GetForm(c *gin.Context) {
	view, err := h.sessions.Open(c.Request.Context(), userID(c), variantOf(c))
	if err != nil {
		h.formError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type patchFieldRequest struct {
	Path  string `json:"path" binding:"required"`
	Value any    `json:"value"`
}

// PatchField handles the PATCH /api/forms/{variant}/fields request.
func (h *Handler) PatchField(c *gin.Context) {
	var req patchFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	value, err := form.ValueString(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.sessions.Change(c.Request.Context(), userID(c), variantOf(c), req.Path, value)
	if err != nil {
		h.formError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ValidateForm handles the POST /api/forms/{variant}/validate request.
func (h *Handler) ValidateForm(c *gin.Context) {
	view, err := h.sessions.Validate(c.Request.Context(), userID(c), variantOf(c))
	if err != nil {
		h.formError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// NextError handles the POST /api/forms/{variant}/errors/next request.
func (h *Handler) NextError(c *gin.Context) {
	view, err := h.sessions.NextError(c.Request.Context(), userID(c), variantOf(c))
	if err != nil {
		h.formError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetFocus handles the GET /api/forms/{variant}/focus?from=&dir= request.
// It answers 204 when there is no field in that direction.
func (h *Handler) GetFocus(c *gin.Context) {
	target, ok, err := h.sessions.Focus(c.Request.Context(), userID(c), variantOf(c), c.Query("from"), c.Query("dir"))
	if err != nil {
		h.formError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, target)
}

type setPageRequest struct {
	Page *int `json:"page" binding:"required"`
}

// SetPage handles the POST /api/forms/{variant}/page request.
func (h *Handler) SetPage(c *gin.Context) {
	var req setPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	view, err := h.sessions.SetPage(c.Request.Context(), userID(c), variantOf(c), *req.Page)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitForm handles the POST /api/forms/{variant}/submit request.
func (h *Handler) SubmitForm(c *gin.Context) {
	outcome, view, err := h.sessions.Submit(c.Request.Context(), userID(c), variantOf(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, outcome)
	case errors.Is(err, submit.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, view)
	case errors.Is(err, backend.ErrRejected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "form": view})
	default:
		h.logger.Error("submission failed", zap.String("user_id", userID(c)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to submit the form", "form": view})
	}
}

// DeleteForm handles the DELETE /api/forms/{variant} request: it discards
// the draft.
func (h *Handler) DeleteForm(c *gin.Context) {
	if err := h.sessions.Discard(c.Request.Context(), userID(c), variantOf(c)); err != nil {
		h.formError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
