package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

const averagesPrefix = "airflow:averages:"

// AveragesCache keeps recently computed averages for a short TTL. Errors are
// logged and swallowed: the cache never fails a fetch.
type AveragesCache struct {
	kv  KV
	ttl time.Duration
}

func NewAveragesCache(kv KV, ttl time.Duration) *AveragesCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &AveragesCache{kv: kv, ttl: ttl}
}

// AveragesKey derives the cache key from a resolved, sorted id set
func AveragesKey(window models.Window, deviceIDs []string) string {
	return averagesPrefix + window.String() + ":" + strings.Join(deviceIDs, ",")
}

func (c *AveragesCache) Get(ctx context.Context, window models.Window, deviceIDs []string) (models.Averages, bool) {
	raw, err := c.kv.Get(ctx, AveragesKey(window, deviceIDs))
	if err != nil {
		if err != ErrCacheMiss {
			nuts.L.Warnf("[AveragesCache] Lookup failed: %v", err)
		}
		monitoring.ObserveCache(false)
		return models.Averages{}, false
	}
	var avg models.Averages
	if err := json.Unmarshal([]byte(raw), &avg); err != nil {
		nuts.L.Warnf("[AveragesCache] Dropping undecodable entry: %v", err)
		monitoring.ObserveCache(false)
		return models.Averages{}, false
	}
	monitoring.ObserveCache(true)
	return avg, true
}

func (c *AveragesCache) Put(ctx context.Context, avg models.Averages) {
	data, err := json.Marshal(avg)
	if err != nil {
		nuts.L.Warnf("[AveragesCache] Encode failed: %v", err)
		return
	}
	if err := c.kv.Set(ctx, AveragesKey(avg.Window, avg.DeviceIDs), string(data), c.ttl); err != nil {
		nuts.L.Warnf("[AveragesCache] Store failed: %v", err)
	}
}

// InvalidateDevice removes every cached entry whose id set contains the device
func (c *AveragesCache) InvalidateDevice(ctx context.Context, deviceID string) {
	n, err := c.kv.DeletePattern(ctx, averagesPrefix+"*"+deviceID+"*")
	if err != nil {
		nuts.L.Warnf("[AveragesCache] Invalidation for %s failed: %v", deviceID, err)
		return
	}
	if n > 0 {
		nuts.L.Infof("[AveragesCache] Invalidated %d entries for device %s", n, deviceID)
	}
}
