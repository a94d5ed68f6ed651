package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnvAndDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "intake")
	t.Setenv("DB_PORT_IGNORED", "x")

	c := DatabaseConfig{User: "postgres", Password: "pw", SSLMode: "disable"}
	c.LoadFromEnv("DB")

	assert.Equal(t, "db.local", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "host=db.local port=6543 user=postgres password=pw dbname=intake sslmode=disable", c.GetDSN())
}

func TestRedisConfig_LoadFromEnv_BadDBKeepsDefault(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "not-a-number")

	c := RedisConfig{DB: 2}
	c.LoadFromEnv("REDIS")

	assert.Equal(t, "redis:6379", c.Addr)
	assert.Equal(t, 2, c.DB)
}

func TestMQTTConfig_LoadFromEnv_QoSRange(t *testing.T) {
	t.Setenv("MQTT_QOS", "1")
	c := MQTTConfig{}
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), c.QoS)

	// 超出范围的 QoS 忽略
	t.Setenv("MQTT_QOS", "5")
	c2 := MQTTConfig{QoS: 0}
	c2.LoadFromEnv("MQTT")
	assert.Equal(t, byte(0), c2.QoS)
}
