package store

import (
	"context"
	"errors"
	"time"

	"ratedesk/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Cost settings, one record per carrier and vehicle category.
	// Reads fall back to category defaults when nothing is stored.
	GetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error)
	UpdateSettings(ctx context.Context, carrierID string, cat model.VehicleCategory, patch model.SettingsPatch) (model.CostSettings, error)
	ResetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error)

	// Vehicles
	CreateVehicle(ctx context.Context, carrierID string, in model.VehicleRecord) (model.VehicleRecord, error)
	GetVehicle(ctx context.Context, carrierID, id string) (model.VehicleRecord, error)
	ListVehicles(ctx context.Context, carrierID string) ([]model.VehicleRecord, error)
	DeleteVehicle(ctx context.Context, carrierID, id string) error

	// Saved quotes
	SaveQuote(ctx context.Context, q model.SavedQuote) (model.SavedQuote, error)
	GetQuote(ctx context.Context, carrierID, id string) (model.SavedQuote, error)
	ListQuotes(ctx context.Context, carrierID, cursor string, limit int) ([]model.SavedQuote, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, carrierID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, carrierID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, carrierID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, carrierID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, carrierID, status, cursor string, limit int) ([]map[string]any, string, error)
}

var ErrNotFound = errors.New("not found")
