// Package submit builds the settlement payload and hands it to the
// university backend.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/model"
	"settlement-form-backend/internal/validate"
)

// ErrInvalid is returned when a form with validation errors is submitted.
var ErrInvalid = errors.New("form has validation errors")

// Poster sends a payload to the backend.
type Poster interface {
	SubmitSettlement(ctx context.Context, variant, idempotencyKey string, payload map[string]any) error
}

// Recorder persists the outcome of a submission.
type Recorder interface {
	DeleteDraft(ctx context.Context, userID, storageKey string) error
	RecordSubmission(ctx context.Context, submission *model.Submission) error
}

// Notifier delivers a message to the user's devices.
type Notifier interface {
	Notify(userID, message string)
}

// Outcome describes a submission attempt.
type Outcome struct {
	ID          string              `json:"id,omitempty"`
	Redirect    string              `json:"redirect,omitempty"`
	Errors      *validate.ErrorTree `json:"errors,omitempty"`
	FieldErrors []FieldError        `json:"-"`
}

// Pipeline validates, seals and posts forms.
type Pipeline struct {
	poster     Poster
	recorder   Recorder
	enc        Encrypter
	notifier   Notifier
	logger     *zap.Logger
	landingURL string
	now        func() time.Time
}

// NewPipeline creates a submission pipeline. now defaults to time.Now.
func NewPipeline(poster Poster, recorder Recorder, enc Encrypter, notifier Notifier, logger *zap.Logger, landingURL string, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		poster:     poster,
		recorder:   recorder,
		enc:        enc,
		notifier:   notifier,
		logger:     logger,
		landingURL: landingURL,
		now:        now,
	}
}

// Submit sends s to the backend. On acceptance the draft is deleted and the
// returned outcome carries the landing page to redirect to. On rejection
// the draft is left untouched.
func (p *Pipeline) Submit(ctx context.Context, userID string, v form.Variant, s form.FormState) (Outcome, error) {
	now := p.now()
	if tree := validate.Validate(&s, v, now); !tree.Empty() {
		return Outcome{Errors: tree}, ErrInvalid
	}

	payload, failures, err := BuildPayload(s, now, p.enc)
	if err != nil {
		return Outcome{}, err
	}
	for _, f := range failures {
		p.logger.Error("field encryption failed, sending it empty",
			zap.String("user_id", userID), zap.Stringer("path", f.Path), zap.Error(f.Err))
	}

	id := uuid.NewString()
	outcome := Outcome{ID: id, FieldErrors: failures}
	if err := p.poster.SubmitSettlement(ctx, v.Name, id, payload); err != nil {
		p.logger.Warn("submission failed", zap.String("user_id", userID), zap.String("variant", v.Name), zap.Error(err))
		return outcome, fmt.Errorf("failed to submit %s: %w", v.Name, err)
	}

	if err := p.recorder.DeleteDraft(ctx, userID, v.StorageKey); err != nil {
		p.logger.Error("failed to delete draft after submission", zap.String("user_id", userID), zap.Error(err))
	}
	err = p.recorder.RecordSubmission(ctx, &model.Submission{
		ID:          id,
		UserID:      userID,
		Variant:     v.Name,
		Dormitory:   s.Dormitory,
		RoomNumber:  s.RoomNumber,
		SubmittedAt: now,
	})
	if err != nil {
		p.logger.Error("failed to record submission", zap.String("submission_id", id), zap.Error(err))
	}
	if p.notifier != nil {
		p.notifier.Notify(userID, "Договір про поселення успішно надіслано")
	}

	p.logger.Info("form submitted", zap.String("user_id", userID), zap.String("variant", v.Name), zap.String("submission_id", id))
	outcome.Redirect = p.landingURL
	return outcome, nil
}
