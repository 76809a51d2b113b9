package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TTLs per cache category
const (
	PregnancyTTL  = 24 * time.Hour
	DrugSafetyTTL = 7 * 24 * time.Hour
)

// PregnancyStatus is the cached gestational context of a patient
type PregnancyStatus struct {
	LastMenstrualPeriod string `json:"last_menstrual_period"`
	GestationalWeek     int    `json:"gestational_week"`
}

// Observer receives hit and miss notifications per category
type Observer interface {
	CacheLookup(category string, hit bool)
}

// Tiered is a JSON cache over a Store with fixed TTLs per category
type Tiered struct {
	store    Store
	observer Observer
	logger   *zap.Logger
}

// New creates a tiered cache. A nil store selects a MemoryStore.
func New(store Store, logger *zap.Logger) *Tiered {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tiered{store: store, logger: logger}
}

// WithObserver attaches a hit/miss observer
func (c *Tiered) WithObserver(o Observer) *Tiered {
	c.observer = o
	return c
}

// Get decodes the value at key into dest and reports whether it was found
func (c *Tiered) Get(ctx context.Context, key string, dest any) bool {
	raw, ok := c.store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.store.Delete(ctx, key)
		return false
	}
	return true
}

// Set encodes value and stores it for ttl
func (c *Tiered) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("skipping unencodable cache value", zap.String("key", key), zap.Error(err))
		return
	}
	c.store.Set(ctx, key, raw, ttl)
}

// Clear empties the cache
func (c *Tiered) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// PregnancyKey is the cache key for a patient's pregnancy status
func PregnancyKey(patientID int) string {
	return fmt.Sprintf("preg_%d", patientID)
}

// DrugSafetyKey is the cache key for a drug verdict at a gestational week
func DrugSafetyKey(drugName string, week int) string {
	return fmt.Sprintf("drug_%s:w%d", strings.ToLower(strings.TrimSpace(drugName)), week)
}

// PregnancyStatus returns the cached status for patientID
func (c *Tiered) PregnancyStatus(ctx context.Context, patientID int) (PregnancyStatus, bool) {
	var status PregnancyStatus
	ok := c.Get(ctx, PregnancyKey(patientID), &status)
	c.observe("pregnancy", ok)
	return status, ok
}

// SetPregnancyStatus caches status for 24 hours
func (c *Tiered) SetPregnancyStatus(ctx context.Context, patientID int, status PregnancyStatus) {
	c.Set(ctx, PregnancyKey(patientID), status, PregnancyTTL)
}

// DrugSafety decodes a cached verdict for drugName at week into dest
func (c *Tiered) DrugSafety(ctx context.Context, drugName string, week int, dest any) bool {
	ok := c.Get(ctx, DrugSafetyKey(drugName, week), dest)
	c.observe("drug_safety", ok)
	return ok
}

// SetDrugSafety caches a verdict for 7 days
func (c *Tiered) SetDrugSafety(ctx context.Context, drugName string, week int, verdict any) {
	c.Set(ctx, DrugSafetyKey(drugName, week), verdict, DrugSafetyTTL)
}

func (c *Tiered) observe(category string, hit bool) {
	if c.observer != nil {
		c.observer.CacheLookup(category, hit)
	}
}
