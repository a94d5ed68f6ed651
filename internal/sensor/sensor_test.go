package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-intake/internal/common/mqtt"
	"wisefido-intake/internal/models"
	"wisefido-intake/internal/store"
)

// scriptedSource 按顺序返回预设样本；超出脚本后重复最后一项
type scriptedSource struct {
	mu      sync.Mutex
	samples []*models.SensorSample
	errs    []error
	calls   int
}

func (s *scriptedSource) Latest(ctx context.Context) (*models.SensorSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.samples) {
		i = len(s.samples) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return s.samples[i], nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastPoller(src Source, attempts int) *Poller {
	return NewPoller(src, PollerConfig{MaxAttempts: attempts, Interval: time.Millisecond}, zap.NewNop())
}

func TestPredicates(t *testing.T) {
	assert.False(t, HeartRateDetected(nil))
	assert.False(t, HeartRateDetected(&models.SensorSample{HeartRate: models.Float(0)}))
	assert.True(t, HeartRateDetected(&models.SensorSample{HeartRate: models.Float(72)}))

	above30 := BodyTemperatureAbove(30)
	assert.False(t, above30(&models.SensorSample{}))
	assert.False(t, above30(&models.SensorSample{Temperature: models.Float(25.4)}))
	assert.False(t, above30(&models.SensorSample{Temperature: models.Float(30)}))
	assert.True(t, above30(&models.SensorSample{Temperature: models.Float(30.1)}))

	above10 := WeightAbove(10)
	assert.False(t, above10(&models.SensorSample{Weight: models.Float(10)}))
	assert.True(t, above10(&models.SensorSample{Weight: models.Float(62.3)}))
}

func TestPoll_AcceptsFirstMatchingSample(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{
		{HeartRate: models.Float(0)},
		{HeartRate: models.Float(0)},
		{HeartRate: models.Float(72), SpO2: models.Float(98)},
		{HeartRate: models.Float(80)},
	}}

	out, err := fastPoller(src, 10).Poll(context.Background(), HeartRateDetected)
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 72.0, *out.Sample.HeartRate)
	assert.Equal(t, 3, src.Calls())
}

func TestPoll_TemperatureAtOrBelowThresholdNeverAccepted(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{
		{Temperature: models.Float(24)},
		{Temperature: models.Float(29.9)},
		{Temperature: models.Float(30)},
	}}

	out, err := fastPoller(src, 6).Poll(context.Background(), BodyTemperatureAbove(30))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, 6, out.Attempts)
	assert.Equal(t, 30.0, *out.Sample.Temperature)
	assert.Equal(t, 6, src.Calls())
}

func TestPoll_TransportErrorsCountTowardBudget(t *testing.T) {
	boom := errors.New("connection refused")
	src := &scriptedSource{
		samples: []*models.SensorSample{nil, nil, {Temperature: models.Float(36.8)}},
		errs:    []error{boom, boom, nil},
	}

	out, err := fastPoller(src, 5).Poll(context.Background(), BodyTemperatureAbove(30))
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, 3, out.Attempts)
}

func TestPoll_ExhaustionWithOnlyErrors(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{nil}, errs: []error{errors.New("down")}}

	out, err := fastPoller(src, 4).Poll(context.Background(), HeartRateDetected)
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Nil(t, out.Sample)
	assert.Equal(t, 4, src.Calls())
}

func TestPoll_ContextCancelled(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{{}}}
	p := NewPoller(src, PollerConfig{MaxAttempts: 100, Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	out, err := p.Poll(ctx, HeartRateDetected)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Accepted)
	assert.Equal(t, 1, src.Calls())
}

func TestWeightMonitor_StopsOnFirstCrossing(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{
		{Weight: models.Float(0)},
		{Weight: models.Float(4.2)},
		{Weight: models.Float(63.5)},
		{Weight: models.Float(64)},
	}}
	m := NewWeightMonitor(src, time.Millisecond, 10, zap.NewNop())

	var ticks []float64
	sample, err := m.Wait(context.Background(), func(s *models.SensorSample) {
		ticks = append(ticks, models.ValueOr(s.Weight, -1))
	})
	require.NoError(t, err)
	assert.Equal(t, 63.5, *sample.Weight)
	assert.Equal(t, []float64{0, 4.2, 63.5}, ticks)
	assert.Equal(t, 3, src.Calls())
}

func TestWeightMonitor_Stop(t *testing.T) {
	src := &scriptedSource{samples: []*models.SensorSample{{Weight: models.Float(1)}}}
	m := NewWeightMonitor(src, time.Millisecond, 10, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := m.Wait(context.Background(), nil)
		done <- err
	}()

	require.Eventually(t, m.active.Load, time.Second, time.Millisecond)
	m.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrMonitorStopped)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

type fakeSubscriber struct {
	mu      sync.Mutex
	topic   string
	handler mqtt.MessageHandler
	unsub   []string
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.handler = handler
	return nil
}

func (f *fakeSubscriber) Handler() mqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsub = append(f.unsub, topics...)
	return nil
}

func TestParseDevicePayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)
	s, err := ParseDevicePayload([]byte(`JSON:{"temperature":36.9,"heartRate":74,"spo2":97,
		"weight":58.2,"envTemperature":27.5,"humidity":41,"status":"normal","measurements":12}`), now)
	require.NoError(t, err)
	assert.Equal(t, 36.9, *s.Temperature)
	assert.Equal(t, 74.0, *s.HeartRate)
	assert.Equal(t, 97.0, *s.SpO2)
	assert.Equal(t, 58.2, *s.Weight)
	assert.Equal(t, 27.5, *s.EnvTemperature)
	assert.Equal(t, 41.0, *s.Humidity)
	assert.Equal(t, "09:15:30", s.Timestamp)

	s, err = ParseDevicePayload([]byte(`{"weight":0.4}`), now)
	require.NoError(t, err)
	assert.Nil(t, s.HeartRate)
	assert.Equal(t, 0.4, *s.Weight)

	_, err = ParseDevicePayload([]byte("Sensor init OK"), now)
	assert.Error(t, err)
}

func TestIngestor_CachesLatestSample(t *testing.T) {
	kv := store.NewMemoryKV()
	sub := &fakeSubscriber{}
	ing := NewMQTTIngestor(sub, "kiosk/esp32/data", 1, kv, "kiosk-1", time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Start(ctx) }()
	require.Eventually(t, func() bool { return sub.Handler() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, "kiosk/esp32/data", sub.topic)

	require.NoError(t, sub.Handler()("kiosk/esp32/data", []byte(`{"heartRate":70,"temperature":36.6}`)))
	assert.Error(t, sub.Handler()("kiosk/esp32/data", []byte(`not json`)))

	got, err := NewCacheSource(kv, "kiosk-1").Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70.0, *got.HeartRate)
	assert.Equal(t, 36.6, *got.Temperature)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, ing.Stop(context.Background()))
	assert.Equal(t, []string{"kiosk/esp32/data"}, sub.unsub)
}

func TestCacheSource_Miss(t *testing.T) {
	_, err := NewCacheSource(store.NewMemoryKV(), "kiosk-9").Latest(context.Background())
	assert.ErrorIs(t, err, store.ErrMiss)
}
