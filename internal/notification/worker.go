package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"settlement-form-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the pool needs.
type SubscriptionStore interface {
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
}

// Notice is one message for every device of a user.
type Notice struct {
	UserID  string
	Title   string
	Message string
}

// pushPayload is what the service worker of the browser receives.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DefaultTitle is used for notices without a title.
const DefaultTitle = "Поселення в гуртожиток"

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, size*16), // Buffered channel
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case notice := <-wp.jobs:
			wp.sendNotificationsForUser(ctx, notice)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a notice. It never blocks: when the queue is full the
// notice is dropped, since it is also returned in the HTTP response.
func (wp *WorkerPool) Dispatch(notice Notice) {
	select {
	case wp.jobs <- notice:
	default:
		wp.logger.Warn("notification queue full, dropping notice", zap.String("user_id", notice.UserID))
	}
}

// Notify queues a message with the default title.
func (wp *WorkerPool) Notify(userID, message string) {
	wp.Dispatch(Notice{UserID: userID, Message: message})
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

// sendNotificationsForUser delivers a notice to every subscription of its user.
func (wp *WorkerPool) sendNotificationsForUser(ctx context.Context, notice Notice) {
	subscriptions, err := wp.store.SubscriptionsForUser(ctx, notice.UserID)
	if err != nil {
		wp.logger.Error("error fetching subscriptions", zap.String("user_id", notice.UserID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	title := notice.Title
	if title == "" {
		title = DefaultTitle
	}
	payload, err := json.Marshal(pushPayload{Title: title, Body: notice.Message})
	if err != nil {
		wp.logger.Error("error encoding notification", zap.Error(err))
		return
	}

	wp.logger.Debug("sending notifications", zap.String("user_id", notice.UserID), zap.Int("count", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("error sending notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.UserID, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
