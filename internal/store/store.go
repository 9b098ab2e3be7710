package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"settlement-form-backend/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	LoadDraft(ctx context.Context, userID, storageKey string) (*model.Draft, error)
	SaveDraft(ctx context.Context, draft *model.Draft) error
	DeleteDraft(ctx context.Context, userID, storageKey string) error
	RecordSubmission(ctx context.Context, submission *model.Submission) error
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
	Subscription(ctx context.Context, userID, endpoint string) (*model.PushSubscription, error)
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// LoadDraft returns the draft of a form, or ErrNotFound.
func (s *gormStore) LoadDraft(ctx context.Context, userID, storageKey string) (*model.Draft, error) {
	var draft model.Draft
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND storage_key = ?", userID, storageKey).
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s for user %s: %w", storageKey, userID, err)
	}
	return &draft, nil
}

// SaveDraft inserts or replaces a draft. The last write wins.
func (s *gormStore) SaveDraft(ctx context.Context, draft *model.Draft) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(draft).Error
	if err != nil {
		return fmt.Errorf("failed to save draft %s for user %s: %w", draft.StorageKey, draft.UserID, err)
	}
	return nil
}

// DeleteDraft removes a draft. Deleting a missing draft is not an error.
func (s *gormStore) DeleteDraft(ctx context.Context, userID, storageKey string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND storage_key = ?", userID, storageKey).
		Delete(&model.Draft{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete draft %s for user %s: %w", storageKey, userID, err)
	}
	return nil
}

// RecordSubmission logs an accepted submission.
func (s *gormStore) RecordSubmission(ctx context.Context, submission *model.Submission) error {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to record submission %s: %w", submission.ID, err)
	}
	return nil
}

// SaveSubscription creates or refreshes a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription of a user.
func (s *gormStore) DeleteSubscription(ctx context.Context, userID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// Subscription returns one push subscription of a user, or ErrNotFound.
func (s *gormStore) Subscription(ctx context.Context, userID, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// SubscriptionsForUser lists every push subscription of a user.
func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}
