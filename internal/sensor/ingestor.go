package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/common/mqtt"
	"wisefido-intake/internal/models"
	"wisefido-intake/internal/store"
)

const (
	deviceLinePrefix = "JSON:"
	timestampLayout  = "15:04:05"
)

// Subscriber MQTT 订阅能力（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// DevicePayload ESP32 上报的原始 JSON
type DevicePayload struct {
	Temperature    *float64 `json:"temperature"`
	HeartRate      *float64 `json:"heartRate"`
	SpO2           *float64 `json:"spo2"`
	Weight         *float64 `json:"weight"`
	EnvTemperature *float64 `json:"envTemperature"`
	Humidity       *float64 `json:"humidity"`
	Status         string   `json:"status"`
	Measurements   int      `json:"measurements"`
}

// ParseDevicePayload 解析 ESP32 上报（可带 "JSON:" 前缀），时间戳用 now 填充
func ParseDevicePayload(payload []byte, now time.Time) (*models.SensorSample, error) {
	body := bytes.TrimSpace(payload)
	body = bytes.TrimPrefix(body, []byte(deviceLinePrefix))

	var p DevicePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device payload: %w", err)
	}
	return &models.SensorSample{
		HeartRate:      p.HeartRate,
		SpO2:           p.SpO2,
		Temperature:    p.Temperature,
		EnvTemperature: p.EnvTemperature,
		Humidity:       p.Humidity,
		Weight:         p.Weight,
		Timestamp:      now.Format(timestampLayout),
	}, nil
}

// MQTTIngestor 订阅传感器主题，把最新样本写入 KV 供 CacheSource 读取
type MQTTIngestor struct {
	subscriber Subscriber
	topic      string
	qos        byte
	kv         store.KV
	key        string
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewMQTTIngestor 创建 MQTT 采集器
func NewMQTTIngestor(
	subscriber Subscriber,
	topic string,
	qos byte,
	kv store.KV,
	deviceID string,
	ttl time.Duration,
	logger *zap.Logger,
) *MQTTIngestor {
	return &MQTTIngestor{
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		kv:         kv,
		key:        LatestSampleKey(deviceID),
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (i *MQTTIngestor) Start(ctx context.Context) error {
	if err := i.subscriber.Subscribe(i.topic, i.qos, i.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	i.logger.Info("Sensor ingestor started", zap.String("topic", i.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (i *MQTTIngestor) Stop(ctx context.Context) error {
	if err := i.subscriber.Unsubscribe(i.topic); err != nil {
		i.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	i.logger.Info("Sensor ingestor stopped")
	return nil
}

// handleMessage 处理一条传感器上报
func (i *MQTTIngestor) handleMessage(topic string, payload []byte) error {
	sample, err := ParseDevicePayload(payload, i.now())
	if err != nil {
		i.logger.Warn("Dropping malformed sensor message",
			zap.String("topic", topic),
			zap.Int("payload_size", len(payload)),
			zap.Error(err),
		)
		return err
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	if err := i.kv.Set(context.Background(), i.key, string(data), i.ttl); err != nil {
		i.logger.Error("Failed to cache sensor sample", zap.String("key", i.key), zap.Error(err))
		return fmt.Errorf("failed to cache sample: %w", err)
	}

	i.logger.Debug("Sensor sample cached",
		zap.Float64("heart_rate", models.ValueOr(sample.HeartRate, 0)),
		zap.Float64("temperature", models.ValueOr(sample.Temperature, 0)),
		zap.Float64("weight", models.ValueOr(sample.Weight, 0)),
	)
	return nil
}
