package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ratedesk/internal/model"
	"ratedesk/internal/rates"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping reports database connectivity; used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Migrate creates the schema when it does not exist yet. Settings, vehicle
// and quote documents are stored as JSONB; the engine owns their shape.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cost_settings (
			carrier_id TEXT NOT NULL,
			category   TEXT NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (carrier_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			id         UUID PRIMARY KEY,
			carrier_id TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS vehicles_carrier_idx ON vehicles (carrier_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			id         UUID PRIMARY KEY,
			carrier_id TEXT NOT NULL,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS quotes_carrier_idx ON quotes (carrier_id, id)`,
		`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id         UUID PRIMARY KEY,
			carrier_id TEXT NOT NULL,
			url        TEXT NOT NULL,
			events     JSONB NOT NULL,
			secret     TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id              UUID PRIMARY KEY,
			carrier_id      TEXT NOT NULL,
			subscription_id UUID,
			event_type      TEXT NOT NULL,
			url             TEXT NOT NULL,
			secret          TEXT,
			payload         BYTEA NOT NULL,
			status          TEXT NOT NULL,
			attempts        INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error      TEXT,
			response_code   INT,
			latency_ms      INT,
			delivered_at    TIMESTAMPTZ,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) GetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM cost_settings WHERE carrier_id=$1 AND category=$2`, carrierID, string(cat)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.DefaultSettings(cat), nil
	}
	if err != nil {
		return model.CostSettings{}, err
	}
	var s model.CostSettings
	if err := json.Unmarshal(doc, &s); err != nil {
		return model.CostSettings{}, err
	}
	return s, nil
}

func (p *Postgres) UpdateSettings(ctx context.Context, carrierID string, cat model.VehicleCategory, patch model.SettingsPatch) (model.CostSettings, error) {
	cur, err := p.GetSettings(ctx, carrierID, cat)
	if err != nil {
		return model.CostSettings{}, err
	}
	rates.ApplyPatch(&cur, &patch)
	doc, err := json.Marshal(cur)
	if err != nil {
		return model.CostSettings{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO cost_settings (carrier_id, category, doc) VALUES ($1,$2,$3)
		ON CONFLICT (carrier_id, category) DO UPDATE SET doc=EXCLUDED.doc, updated_at=now()`, carrierID, string(cat), doc)
	if err != nil {
		return model.CostSettings{}, err
	}
	return cur, nil
}

func (p *Postgres) ResetSettings(ctx context.Context, carrierID string, cat model.VehicleCategory) (model.CostSettings, error) {
	_, err := p.db.ExecContext(ctx, `DELETE FROM cost_settings WHERE carrier_id=$1 AND category=$2`, carrierID, string(cat))
	if err != nil {
		return model.CostSettings{}, err
	}
	return rates.DefaultSettings(cat), nil
}

func (p *Postgres) CreateVehicle(ctx context.Context, carrierID string, in model.VehicleRecord) (model.VehicleRecord, error) {
	in.ID = uuid.New().String()
	doc, err := json.Marshal(in.Profile)
	if err != nil {
		return model.VehicleRecord{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO vehicles (id, carrier_id, name, doc) VALUES ($1,$2,$3,$4)`,
		in.ID, carrierID, in.Name, doc)
	if err != nil {
		return model.VehicleRecord{}, err
	}
	return in, nil
}

func (p *Postgres) GetVehicle(ctx context.Context, carrierID, id string) (model.VehicleRecord, error) {
	var v model.VehicleRecord
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT id::text, name, doc FROM vehicles WHERE carrier_id=$1 AND id=$2`, carrierID, id).Scan(&v.ID, &v.Name, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VehicleRecord{}, ErrNotFound
	}
	if err != nil {
		return model.VehicleRecord{}, err
	}
	if err := json.Unmarshal(doc, &v.Profile); err != nil {
		return model.VehicleRecord{}, err
	}
	return v, nil
}

func (p *Postgres) ListVehicles(ctx context.Context, carrierID string) ([]model.VehicleRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, name, doc FROM vehicles WHERE carrier_id=$1 ORDER BY created_at`, carrierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VehicleRecord{}
	for rows.Next() {
		var v model.VehicleRecord
		var doc []byte
		if err := rows.Scan(&v.ID, &v.Name, &doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &v.Profile); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteVehicle(ctx context.Context, carrierID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM vehicles WHERE carrier_id=$1 AND id=$2`, carrierID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SaveQuote(ctx context.Context, q model.SavedQuote) (model.SavedQuote, error) {
	q.ID = uuid.New().String()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(q)
	if err != nil {
		return model.SavedQuote{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO quotes (id, carrier_id, doc, created_at) VALUES ($1,$2,$3,$4)`,
		q.ID, q.CarrierID, doc, q.CreatedAt)
	if err != nil {
		return model.SavedQuote{}, err
	}
	return q, nil
}

func (p *Postgres) GetQuote(ctx context.Context, carrierID, id string) (model.SavedQuote, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM quotes WHERE carrier_id=$1 AND id=$2`, carrierID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SavedQuote{}, ErrNotFound
	}
	if err != nil {
		return model.SavedQuote{}, err
	}
	var q model.SavedQuote
	if err := json.Unmarshal(doc, &q); err != nil {
		return model.SavedQuote{}, err
	}
	return q, nil
}

func (p *Postgres) ListQuotes(ctx context.Context, carrierID, cursor string, limit int) ([]model.SavedQuote, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	// Cursor is the last id text, same scheme across stores.
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM quotes WHERE carrier_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, carrierID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM quotes WHERE carrier_id=$1 ORDER BY id LIMIT $2`, carrierID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.SavedQuote{}
	var last string
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, "", err
		}
		var q model.SavedQuote
		if err := json.Unmarshal(doc, &q); err != nil {
			return nil, "", err
		}
		out = append(out, q)
		last = q.ID
	}
	var next string
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	ev, err := json.Marshal(req.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO webhook_subscriptions (id, carrier_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		id, req.CarrierID, req.URL, ev, nullIfEmpty(req.Secret))
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, CarrierID: req.CarrierID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, carrierID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, COALESCE(secret,'') FROM webhook_subscriptions WHERE carrier_id=$1 AND events @> $2::jsonb`,
		carrierID, fmt.Sprintf("[%q]", eventType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		s.CarrierID = carrierID
		if err := rows.Scan(&s.ID, &s.URL, &ev, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, carrierID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, events, COALESCE(secret,'') FROM webhook_subscriptions WHERE carrier_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, carrierID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, events, COALESCE(secret,'') FROM webhook_subscriptions WHERE carrier_id=$1 ORDER BY id LIMIT $2`, carrierID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	var last string
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		s.CarrierID = carrierID
		if err := rows.Scan(&s.ID, &s.URL, &ev, &s.Secret); err != nil {
			return nil, "", err
		}
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
		last = s.ID
	}
	var next string
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, carrierID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE carrier_id=$1 AND id=$2`, carrierID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, carrierID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, carrier_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`, id, carrierID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, carrier_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.CarrierID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(1 * time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`,
		id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, carrierID, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url FROM webhook_deliveries WHERE carrier_id=$1`
	args := []any{carrierID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, status)
	}
	q += ` ORDER BY next_attempt_at DESC LIMIT 200`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var id, eventType, st, lastErr, url string
		var attempts int
		var nextAt time.Time
		if err := rows.Scan(&id, &eventType, &st, &attempts, &nextAt, &lastErr, &url); err != nil {
			return nil, "", err
		}
		item := map[string]any{"id": id, "eventType": eventType, "status": st, "attempts": attempts, "url": url, "nextAttemptAt": nextAt}
		if lastErr != "" {
			item["lastError"] = lastErr
		}
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out, "", rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
