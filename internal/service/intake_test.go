package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-intake/internal/config"
	"wisefido-intake/internal/interview"
	"wisefido-intake/internal/models"
)

func TestTiming_DefaultsAndOverrides(t *testing.T) {
	got := timing(config.InterviewConfig{})
	assert.Equal(t, interview.DefaultTiming(), got)

	got = timing(config.InterviewConfig{
		AnswerPause:              250 * time.Millisecond,
		ClosingDelay:             time.Second,
		BodyTemperatureThreshold: 31,
	})
	assert.Equal(t, 250*time.Millisecond, got.AnswerPause)
	assert.Equal(t, time.Second, got.ClosingDelay)
	assert.Equal(t, 31.0, got.BodyTemperatureThreshold)
	assert.Equal(t, interview.DefaultTiming().GreetingPause, got.GreetingPause)
}

func TestQuestionSet(t *testing.T) {
	assert.Equal(t, interview.DefaultQuestions(), questionSet(config.InterviewConfig{}))

	var c config.InterviewConfig
	c.Questions.English = []models.Question{{Prompt: "Name?", Field: models.FieldName}}
	c.Questions.Hindi = []models.Question{{Prompt: "नाम?", Field: models.FieldName}}
	qs := questionSet(c)
	assert.Len(t, qs.English, 1)
	assert.Equal(t, models.FieldName, qs.Hindi[0].Field)
}

func TestIntakeService_StartStopInMemory(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weight": 0, "heart_rate": 0}`))
	}))
	defer backend.Close()

	cfg := &config.Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Device.ID = "kiosk-test"
	cfg.Backend.BaseURL = backend.URL
	cfg.Backend.Timeout = time.Second
	cfg.Sensor.Source = "http"
	cfg.Sensor.PollInterval = 10 * time.Millisecond
	cfg.Sensor.MaxAttempts = 3
	cfg.Sensor.WeightInterval = 10 * time.Millisecond
	cfg.Sensor.WeightThreshold = 10
	cfg.Terminal.RequestTimeout = time.Second
	cfg.Speech.ChunkTimeout = time.Second
	cfg.Photo.UploadDir = t.TempDir()

	svc, err := NewIntakeService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, svc.redis)
	require.Nil(t, svc.db)
	require.Nil(t, svc.ingestor)

	require.NoError(t, svc.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, models.PhaseIdle, svc.controller.Snapshot().State.Phase)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, svc.Stop(ctx))

	select {
	case <-svc.Done():
	default:
		t.Fatal("service context should be done after Stop")
	}
}
