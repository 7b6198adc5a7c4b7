// Package fuel supplies the diesel price used by the cost accountant.
// Prices come from an optional HTTP collaborator and are cached with a
// TTL; when nothing is available the engine's published default applies.
package fuel

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"ratedesk/internal/rates"
)

// PriceSource returns the current national average $/gallon.
type PriceSource interface {
	Price(ctx context.Context) (float64, error)
}

// Static is a fixed-price source, used for FUEL_PRICE overrides and tests.
type Static struct {
	Dollars float64
}

func (s Static) Price(ctx context.Context) (float64, error) { return s.Dollars, nil }

// HTTPSource fetches a JSON body of the form {"price": 3.95}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSource) Price(ctx context.Context) (float64, error) {
	c := h.Client
	if c == nil {
		c = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if body.Price <= 0 {
		return 0, errInvalidPrice
	}
	return body.Price, nil
}

var errInvalidPrice = jsonError("fuel price missing or non-positive")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// Cache wraps a source with a TTL. A fresh value is served from memory;
// on refresh failure the last known value is kept, and before any
// successful fetch the engine default applies.
type Cache struct {
	Source PriceSource
	TTL    time.Duration

	now func() time.Time

	mu        sync.Mutex
	price     float64
	fetchedAt time.Time
}

func NewCache(src PriceSource, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{Source: src, TTL: ttl, now: time.Now}
}

func (c *Cache) Price(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.price > 0 && c.now().Sub(c.fetchedAt) < c.TTL {
		return c.price, nil
	}
	p, err := c.Source.Price(ctx)
	if err != nil || p <= 0 {
		if c.price > 0 {
			return c.price, nil
		}
		return rates.DefaultFuelPrice, nil
	}
	c.price = p
	c.fetchedAt = c.now()
	return p, nil
}

// RedisCache shares the cached price across instances. Reads hit Redis
// first; a miss refreshes from the source and writes back with the TTL.
type RedisCache struct {
	RDB    *redis.Client
	Source PriceSource
	TTL    time.Duration
	Key    string
}

func NewRedisCache(rdb *redis.Client, src PriceSource, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCache{RDB: rdb, Source: src, TTL: ttl, Key: "fuel:price:national"}
}

func (r *RedisCache) Price(ctx context.Context) (float64, error) {
	if v, err := r.RDB.Get(ctx, r.Key).Result(); err == nil {
		if p, err := strconv.ParseFloat(v, 64); err == nil && p > 0 {
			return p, nil
		}
	}
	p, err := r.Source.Price(ctx)
	if err != nil || p <= 0 {
		return rates.DefaultFuelPrice, nil
	}
	_ = r.RDB.Set(ctx, r.Key, strconv.FormatFloat(p, 'f', -1, 64), r.TTL).Err()
	return p, nil
}

// FromEnv builds the price source the server uses. FUEL_PRICE pins a
// static price; FUEL_PRICE_URL enables the HTTP collaborator, cached in
// Redis when REDIS_URL is set and in memory otherwise.
func FromEnv() PriceSource {
	if v := os.Getenv("FUEL_PRICE"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil && p > 0 {
			return Static{Dollars: p}
		}
	}
	url := os.Getenv("FUEL_PRICE_URL")
	if url == "" {
		return Static{Dollars: rates.DefaultFuelPrice}
	}
	ttl := 30 * time.Minute
	if v := os.Getenv("FUEL_PRICE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	src := &HTTPSource{URL: url}
	if ru := os.Getenv("REDIS_URL"); ru != "" {
		if opt, err := redis.ParseURL(ru); err == nil {
			return NewRedisCache(redis.NewClient(opt), src, ttl)
		}
	}
	return NewCache(src, ttl)
}
