package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	commoncfg "wisefido-intake/internal/common/config"
	"wisefido-intake/internal/models"
)

// Config wisefido-intake（问诊 kiosk）配置
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Device struct {
		ID string `yaml:"id"` // kiosk 设备标识，用于会话 key 和审计
	} `yaml:"device"`

	Backend struct {
		BaseURL string        `yaml:"base_url"` // 验证码/传感器/拍照/提交 后端
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`

	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`

	RedisEnabled bool                  `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig `yaml:"redis"`

	MQTT struct {
		commoncfg.MQTTConfig `yaml:",inline"`
		Enabled              bool   `yaml:"enabled"`
		Topic                string `yaml:"topic"` // ESP32 体征数据主题
	} `yaml:"mqtt"`

	Sensor struct {
		Source       string        `yaml:"source"` // http | mqtt
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		PollInterval time.Duration `yaml:"poll_interval"`
		MaxAttempts  int           `yaml:"max_attempts"`
		// 体重触发
		WeightInterval  time.Duration `yaml:"weight_interval"`
		WeightThreshold float64       `yaml:"weight_threshold"`
	} `yaml:"sensor"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Scanner struct {
		Interval        time.Duration `yaml:"interval"`
		MaxAttempts     int           `yaml:"max_attempts"`
		SnapshotTimeout time.Duration `yaml:"snapshot_timeout"`
	} `yaml:"scanner"`

	Speech struct {
		ChunkTimeout time.Duration `yaml:"chunk_timeout"`
	} `yaml:"speech"`

	Terminal struct {
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"terminal"`

	Interview InterviewConfig `yaml:"interview"`

	Photo struct {
		UploadDir       string        `yaml:"upload_dir"`
		GracePeriod     time.Duration `yaml:"grace_period"`
		ExternalTimeout time.Duration `yaml:"external_timeout"`
	} `yaml:"photo"`

	Events struct {
		Stream string `yaml:"stream"`
		MaxLen int64  `yaml:"max_len"`
	} `yaml:"events"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// InterviewConfig 问诊节奏与问题集；零值字段使用内置默认
type InterviewConfig struct {
	GreetingPause            time.Duration `yaml:"greeting_pause"`
	AnswerPause              time.Duration `yaml:"answer_pause"`
	RetryPause               time.Duration `yaml:"retry_pause"`
	ScanRetryDelay           time.Duration `yaml:"scan_retry_delay"`
	ScanSuccessPause         time.Duration `yaml:"scan_success_pause"`
	SettleDelay              time.Duration `yaml:"settle_delay"`
	PhotoPause               time.Duration `yaml:"photo_pause"`
	SubmitPause              time.Duration `yaml:"submit_pause"`
	ClosingDelay             time.Duration `yaml:"closing_delay"`
	BodyTemperatureThreshold float64       `yaml:"body_temperature_threshold"`

	Questions struct {
		English []models.Question `yaml:"en"`
		Hindi   []models.Question `yaml:"hi"`
	} `yaml:"questions"`
}

// Load 从环境变量加载配置；INTAKE_CONFIG 指向的 YAML 文件覆盖其中的字段
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")
	cfg.Device.ID = getEnv("DEVICE_ID", "kiosk-1")

	cfg.Backend.BaseURL = getEnv("BACKEND_BASE_URL", "http://localhost:5001")
	cfg.Backend.Timeout = parseDuration(getEnv("BACKEND_TIMEOUT", "10s"), 10*time.Second)

	// 审计库可选：kiosk 离线时不依赖 Postgres
	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "intake")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "5"), 5)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "2"), 2)

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-intake")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "esp32/vitals")

	cfg.Sensor.Source = getEnv("SENSOR_SOURCE", "http")
	cfg.Sensor.CacheTTL = parseDuration(getEnv("SENSOR_CACHE_TTL", "10s"), 10*time.Second)
	cfg.Sensor.PollInterval = parseDuration(getEnv("SENSOR_POLL_INTERVAL", "500ms"), 500*time.Millisecond)
	cfg.Sensor.MaxAttempts = parseInt(getEnv("SENSOR_MAX_ATTEMPTS", "100"), 100)
	cfg.Sensor.WeightInterval = parseDuration(getEnv("WEIGHT_INTERVAL", "2s"), 2*time.Second)
	cfg.Sensor.WeightThreshold = parseFloat(getEnv("WEIGHT_THRESHOLD", "10"), 10)

	cfg.Session.TTL = parseDuration(getEnv("SESSION_TTL", "2h"), 2*time.Hour)

	cfg.Scanner.Interval = parseDuration(getEnv("SCAN_INTERVAL", "300ms"), 300*time.Millisecond)
	cfg.Scanner.MaxAttempts = parseInt(getEnv("SCAN_MAX_ATTEMPTS", "200"), 200)
	cfg.Scanner.SnapshotTimeout = parseDuration(getEnv("SCAN_SNAPSHOT_TIMEOUT", "2s"), 2*time.Second)

	cfg.Speech.ChunkTimeout = parseDuration(getEnv("SPEECH_CHUNK_TIMEOUT", "30s"), 30*time.Second)
	cfg.Terminal.RequestTimeout = parseDuration(getEnv("TERMINAL_REQUEST_TIMEOUT", "30s"), 30*time.Second)

	cfg.Photo.UploadDir = getEnv("PHOTO_UPLOAD_DIR", "uploads")
	cfg.Photo.GracePeriod = parseDuration(getEnv("PHOTO_GRACE_PERIOD", "5s"), 5*time.Second)
	cfg.Photo.ExternalTimeout = parseDuration(getEnv("PHOTO_EXTERNAL_TIMEOUT", "10s"), 10*time.Second)

	cfg.Events.Stream = getEnv("EVENTS_STREAM", "intake:events:stream")
	cfg.Events.MaxLen = int64(parseInt(getEnv("EVENTS_MAX_LEN", "10000"), 10000))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if path := os.Getenv("INTAKE_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 用 YAML 文件覆盖配置（文件中未出现的字段保持不变）
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate 检查互相依赖的配置项
func (c *Config) Validate() error {
	switch c.Sensor.Source {
	case "http":
	case "mqtt":
		if !c.MQTT.Enabled {
			return fmt.Errorf("sensor source mqtt requires MQTT_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown sensor source: %q", c.Sensor.Source)
	}
	if c.Device.ID == "" {
		return fmt.Errorf("device id is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", c.MQTT.QoS)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
