package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ratedesk/internal/model"
	"ratedesk/internal/rates"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	settings map[string]model.CostSettings // carrier|category -> settings
	vehicles map[string]model.VehicleRecord
	vehCar   map[string][]string // carrier -> vehicle ids
	quotes   map[string]model.SavedQuote
	quoteCar map[string][]string // carrier -> quote ids, insertion order
	subs     map[string][]model.Subscription
	// Webhooks queue state
	deliveries          map[string]*memDelivery
	deliveriesByCarrier map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		settings:            map[string]model.CostSettings{},
		vehicles:            map[string]model.VehicleRecord{},
		vehCar:              map[string][]string{},
		quotes:              map[string]model.SavedQuote{},
		quoteCar:            map[string][]string{},
		subs:                map[string][]model.Subscription{},
		deliveries:          map[string]*memDelivery{},
		deliveriesByCarrier: map[string][]string{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func settingsKey(carrierID string, cat model.VehicleCategory) string {
	return carrierID + "|" + string(cat)
}

func (m *Memory) GetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[settingsKey(carrierID, cat)]; ok {
		return s, nil
	}
	return rates.DefaultSettings(cat), nil
}

func (m *Memory) UpdateSettings(ctx context.Context, carrierID string, cat model.VehicleCategory, patch model.SettingsPatch) (model.CostSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := settingsKey(carrierID, cat)
	cur, ok := m.settings[key]
	if !ok {
		cur = rates.DefaultSettings(cat)
	}
	rates.ApplyPatch(&cur, &patch)
	m.settings[key] = cur
	return cur, nil
}

func (m *Memory) ResetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, settingsKey(carrierID, cat))
	return rates.DefaultSettings(cat), nil
}

func (m *Memory) CreateVehicle(ctx context.Context, carrierID string, in model.VehicleRecord) (model.VehicleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = uuid.New().String()
	m.vehicles[in.ID] = in
	m.vehCar[carrierID] = append(m.vehCar[carrierID], in.ID)
	return in, nil
}

func (m *Memory) GetVehicle(ctx context.Context, carrierID, id string) (model.VehicleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vid := range m.vehCar[carrierID] {
		if vid == id {
			return m.vehicles[id], nil
		}
	}
	return model.VehicleRecord{}, ErrNotFound
}

func (m *Memory) ListVehicles(ctx context.Context, carrierID string) ([]model.VehicleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.VehicleRecord{}
	for _, id := range m.vehCar[carrierID] {
		out = append(out, m.vehicles[id])
	}
	return out, nil
}

func (m *Memory) DeleteVehicle(ctx context.Context, carrierID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.vehCar[carrierID]
	for i, vid := range ids {
		if vid == id {
			m.vehCar[carrierID] = append(ids[:i:i], ids[i+1:]...)
			delete(m.vehicles, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SaveQuote(ctx context.Context, q model.SavedQuote) (model.SavedQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New().String()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	m.quotes[q.ID] = q
	m.quoteCar[q.CarrierID] = append(m.quoteCar[q.CarrierID], q.ID)
	return q, nil
}

func (m *Memory) GetQuote(ctx context.Context, carrierID, id string) (model.SavedQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.CarrierID != carrierID {
		return model.SavedQuote{}, ErrNotFound
	}
	return q, nil
}

func (m *Memory) ListQuotes(ctx context.Context, carrierID, cursor string, limit int) ([]model.SavedQuote, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.quoteCar[carrierID]
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.SavedQuote{}
	var next string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.quotes[ids[i]])
		next = ids[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), CarrierID: req.CarrierID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.CarrierID] = append(m.subs[req.CarrierID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, carrierID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[carrierID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, carrierID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[carrierID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription(nil), list[start:end]...)
	var next string
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, carrierID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[carrierID]
	out := make([]model.Subscription, 0, len(arr))
	found := false
	for _, s := range arr {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	m.subs[carrierID] = out
	if !found {
		return ErrNotFound
	}
	return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, carrierID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, CarrierID: carrierID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"}, NextAttemptAt: time.Now()}
	m.deliveries[id] = d
	m.deliveriesByCarrier[carrierID] = append(m.deliveriesByCarrier[carrierID], id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, ids := range m.deliveriesByCarrier {
		for _, id := range ids {
			d := m.deliveries[id]
			if d == nil {
				continue
			}
			if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
				out = append(out, d.WebhookDelivery)
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else {
		d.Status = "retry"
		d.LastError = lastError
		if nextAttemptAt != nil {
			d.NextAttemptAt = *nextAttemptAt
		} else {
			d.NextAttemptAt = time.Now().Add(1 * time.Minute)
		}
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d != nil {
		d.Status = "failed"
		d.LastError = lastError
		d.ResponseCode = responseCode
		d.LatencyMs = latencyMs
	}
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, carrierID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for _, id := range m.deliveriesByCarrier[carrierID] {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if status == "" || d.Status == status {
			item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
			if !d.NextAttemptAt.IsZero() {
				item["nextAttemptAt"] = d.NextAttemptAt
			}
			if d.LastError != "" {
				item["lastError"] = d.LastError
			}
			out = append(out, item)
		}
	}
	return out, "", nil
}
