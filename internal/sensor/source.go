// Package sensor 提供传感器数据轮询功能
package sensor

import (
	"context"

	"wisefido-intake/internal/models"
)

// Source 提供最新的传感器快照
type Source interface {
	Latest(ctx context.Context) (*models.SensorSample, error)
}

// SourceFunc 函数适配器
type SourceFunc func(ctx context.Context) (*models.SensorSample, error)

func (f SourceFunc) Latest(ctx context.Context) (*models.SensorSample, error) {
	return f(ctx)
}

// Predicate 判断样本是否满足提前结束的条件；nil 样本不应被接受
type Predicate func(s *models.SensorSample) bool

// HeartRateDetected 手指放上后心率 > 0
func HeartRateDetected(s *models.SensorSample) bool {
	return s != nil && s.HeartRate != nil && *s.HeartRate > 0
}

// BodyTemperatureAbove 体温高于阈值才算有效，低于阈值视为环境温度或噪声
func BodyTemperatureAbove(celsius float64) Predicate {
	return func(s *models.SensorSample) bool {
		return s != nil && s.Temperature != nil && *s.Temperature > celsius
	}
}

// WeightAbove 体重超过阈值视为有人站上
func WeightAbove(kg float64) Predicate {
	return func(s *models.SensorSample) bool {
		return s != nil && s.Weight != nil && *s.Weight > kg
	}
}
