package sensor

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/store"
)

// LatestSampleKey 最新样本在 KV 中的 key
func LatestSampleKey(deviceID string) string {
	return fmt.Sprintf("intake:%s:sensor:latest", deviceID)
}

// CacheSource 从 KV 读取 MQTTIngestor 写入的最新样本
type CacheSource struct {
	kv  store.KV
	key string
}

// NewCacheSource 创建缓存数据源
func NewCacheSource(kv store.KV, deviceID string) *CacheSource {
	return &CacheSource{kv: kv, key: LatestSampleKey(deviceID)}
}

// Latest 样本过期或不存在时返回 store.ErrMiss
func (c *CacheSource) Latest(ctx context.Context) (*models.SensorSample, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	var sample models.SensorSample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, fmt.Errorf("failed to decode cached sample: %w", err)
	}
	return &sample, nil
}
