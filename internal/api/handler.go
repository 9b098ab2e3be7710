package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/mw"
	"settlement-form-backend/internal/session"
	"settlement-form-backend/internal/store"
)

// ReferenceData lists the choices the form offers.
type ReferenceData interface {
	Faculties(ctx context.Context) ([]backend.Faculty, error)
	Groups(ctx context.Context, facultyID string) ([]backend.Group, error)
	Dormitories(ctx context.Context) ([]backend.Dormitory, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	sessions  *session.Manager
	reference ReferenceData
	store     store.Store
	webpush   *webpush.Options
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(sessions *session.Manager, reference ReferenceData, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		reference: reference,
		store:     s,
		webpush:   webpushOptions,
		logger:    logger,
	}
}

func userID(c *gin.Context) string {
	return c.GetString(mw.UserKey)
}
