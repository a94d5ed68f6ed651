package models

import "time"

// SensorSample 传感器瞬时读数（所有字段可空）
// 温度单位为摄氏度，体重单位为 kg
type SensorSample struct {
	HeartRate      *float64 `json:"heart_rate"`
	SpO2           *float64 `json:"spo2"`
	Temperature    *float64 `json:"temperature"`
	EnvTemperature *float64 `json:"env_temperature"`
	Humidity       *float64 `json:"humidity"`
	Weight         *float64 `json:"weight"`
	Timestamp      string   `json:"timestamp,omitempty"`
}

// CapturedVitals 本次问诊采集到的生命体征
// 心率阶段初始化，体温阶段合并；两阶段之间不重置
type CapturedVitals struct {
	HeartRate      *float64  `json:"heart_rate"`
	SpO2           *float64  `json:"spo2"`
	Temperature    *float64  `json:"temperature"`
	EnvTemperature *float64  `json:"env_temperature"`
	Humidity       *float64  `json:"humidity"`
	Weight         *float64  `json:"weight"`
	Timestamp      string    `json:"timestamp,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// NewVitalsFromSample 心率阶段：用整条样本初始化体征
func NewVitalsFromSample(s *SensorSample, at time.Time) *CapturedVitals {
	v := &CapturedVitals{CapturedAt: at}
	if s == nil {
		return v
	}
	v.HeartRate = copyFloat(s.HeartRate)
	v.SpO2 = copyFloat(s.SpO2)
	v.Temperature = copyFloat(s.Temperature)
	v.EnvTemperature = copyFloat(s.EnvTemperature)
	v.Humidity = copyFloat(s.Humidity)
	v.Weight = copyFloat(s.Weight)
	v.Timestamp = s.Timestamp
	return v
}

// MergeTemperature 体温阶段：在已有体征上覆盖体温与环境字段
// 心率 / 血氧不会被改动；v 为 nil 时创建新对象
func (v *CapturedVitals) MergeTemperature(s *SensorSample, at time.Time) *CapturedVitals {
	if v == nil {
		v = &CapturedVitals{}
	}
	if s == nil {
		return v
	}
	if s.Temperature != nil {
		v.Temperature = copyFloat(s.Temperature)
	}
	if s.EnvTemperature != nil {
		v.EnvTemperature = copyFloat(s.EnvTemperature)
	}
	if s.Humidity != nil {
		v.Humidity = copyFloat(s.Humidity)
	}
	v.CapturedAt = at
	return v
}

// AsSample 提交阶段把体征当作样本使用
func (v *CapturedVitals) AsSample() *SensorSample {
	if v == nil {
		return nil
	}
	return &SensorSample{
		HeartRate:      copyFloat(v.HeartRate),
		SpO2:           copyFloat(v.SpO2),
		Temperature:    copyFloat(v.Temperature),
		EnvTemperature: copyFloat(v.EnvTemperature),
		Humidity:       copyFloat(v.Humidity),
		Weight:         copyFloat(v.Weight),
		Timestamp:      v.Timestamp,
	}
}

// Clone 深拷贝（状态快照使用）
func (v *CapturedVitals) Clone() *CapturedVitals {
	if v == nil {
		return nil
	}
	c := *v
	c.HeartRate = copyFloat(v.HeartRate)
	c.SpO2 = copyFloat(v.SpO2)
	c.Temperature = copyFloat(v.Temperature)
	c.EnvTemperature = copyFloat(v.EnvTemperature)
	c.Humidity = copyFloat(v.Humidity)
	c.Weight = copyFloat(v.Weight)
	return &c
}

// Float 构造可空浮点
func Float(f float64) *float64 {
	return &f
}

// ValueOr 可空浮点取值，nil 时返回 def
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
