package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wisefido-intake/internal/backend"
	"wisefido-intake/internal/common/database"
	mqttcommon "wisefido-intake/internal/common/mqtt"
	rediscommon "wisefido-intake/internal/common/redis"
	"wisefido-intake/internal/config"
	"wisefido-intake/internal/events"
	"wisefido-intake/internal/httpapi"
	"wisefido-intake/internal/interview"
	"wisefido-intake/internal/models"
	"wisefido-intake/internal/photo"
	"wisefido-intake/internal/repository"
	"wisefido-intake/internal/scanner"
	"wisefido-intake/internal/sensor"
	"wisefido-intake/internal/session"
	"wisefido-intake/internal/speech"
	"wisefido-intake/internal/store"
	"wisefido-intake/internal/terminal"
)

// IntakeService kiosk 问诊服务：组装各组件并管理生命周期
type IntakeService struct {
	config *config.Config
	logger *zap.Logger

	redis      *redis.Client
	db         *sql.DB
	mqttClient *mqttcommon.Client

	hub        *terminal.Hub
	ingestor   *sensor.MQTTIngestor
	controller *interview.Controller
	server     *http.Server

	cancel context.CancelFunc
	group  *errgroup.Group
	done   <-chan struct{}
}

// NewIntakeService 创建服务；可选依赖（Postgres / Redis / MQTT）按配置启用
func NewIntakeService(cfg *config.Config, logger *zap.Logger) (*IntakeService, error) {
	s := &IntakeService{config: cfg, logger: logger}
	ctx := context.Background()

	// 会话存储：Redis 不可用时退回进程内存储
	var kv store.KV
	if cfg.RedisEnabled {
		s.redis = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, s.redis); err != nil {
			rediscommon.Close(s.redis)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		kv = store.NewRedisKV(s.redis)
	} else {
		logger.Warn("Redis disabled, session state is kept in memory")
		kv = store.NewMemoryKV()
	}

	sessions := session.NewStore(kv, cfg.Device.ID, cfg.Session.TTL, logger)

	var auditor *repository.SubmissionRepository
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			s.closeClients()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		auditor = repository.NewSubmissionRepository(db, logger)
		if err := auditor.EnsureSchema(ctx); err != nil {
			s.closeClients()
			return nil, fmt.Errorf("failed to ensure submission schema: %w", err)
		}
	}

	backendClient := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, logger)

	// 传感器来源：HTTP 快照或 MQTT 推送缓存
	var samples sensor.Source = sensor.SourceFunc(backendClient.LatestSample)
	if cfg.MQTT.Enabled {
		client, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, logger)
		if err != nil {
			s.closeClients()
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = client
		s.ingestor = sensor.NewMQTTIngestor(client, cfg.MQTT.Topic, cfg.MQTT.QoS, kv, cfg.Device.ID, cfg.Sensor.CacheTTL, logger)
	}
	if cfg.Sensor.Source == "mqtt" {
		samples = sensor.NewCacheSource(kv, cfg.Device.ID)
	}

	s.hub = terminal.NewHub(cfg.Terminal.RequestTimeout, func(ctx context.Context, lang models.Language) error {
		return sessions.SetLanguage(ctx, lang)
	}, logger)

	deps := interview.Deps{
		DeviceID:  cfg.Device.ID,
		Questions: questionSet(cfg.Interview),
		Speaker:   speech.NewSynthesizer(s.hub, cfg.Speech.ChunkTimeout, logger),
		Listener:  speech.NewListener(s.hub),
		Scanner: scanner.NewScanner(s.hub, scanner.NewQRDecoder(), scanner.Config{
			MaxAttempts:     cfg.Scanner.MaxAttempts,
			Interval:        cfg.Scanner.Interval,
			SnapshotTimeout: cfg.Scanner.SnapshotTimeout,
		}, logger),
		Verifier: backendClient,
		Presence: sensor.NewWeightMonitor(samples, cfg.Sensor.WeightInterval, cfg.Sensor.WeightThreshold, logger),
		Vitals: sensor.NewPoller(samples, sensor.PollerConfig{
			MaxAttempts: cfg.Sensor.MaxAttempts,
			Interval:    cfg.Sensor.PollInterval,
		}, logger),
		Samples: samples,
		Photo: photo.NewCapturer(s.hub, backendClient, sessions, photo.Config{
			GracePeriod:     cfg.Photo.GracePeriod,
			ExternalTimeout: cfg.Photo.ExternalTimeout,
		}, logger),
		Submitter: backendClient,
		Display:   s.hub,
		Popup:     s.hub,
		Session:   sessions,
		Events:    events.Nop{},
	}
	if s.redis != nil {
		deps.Events = events.NewStreamPublisher(s.redis, cfg.Events.Stream, cfg.Events.MaxLen, logger)
	}
	if auditor != nil {
		deps.Auditor = auditor
	}
	s.controller = interview.NewController(deps, timing(cfg.Interview), logger)

	opts := httpapi.Options{
		Interview: s.controller,
		Session:   sessions,
		Terminal:  s.hub,
		UploadDir: cfg.Photo.UploadDir,
		Logger:    logger,
	}
	if auditor != nil {
		opts.Submissions = auditor
	}
	s.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start 启动 HTTP 服务、MQTT 采集和问诊控制器（非阻塞）
func (s *IntakeService) Start(ctx context.Context) error {
	s.logger.Info("Starting intake service components",
		zap.String("device_id", s.config.Device.ID),
		zap.String("http_addr", s.config.HTTP.Addr),
		zap.String("sensor_source", s.config.Sensor.Source),
	)

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = g
	s.done = gctx.Done()

	g.Go(func() error {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})
	if s.ingestor != nil {
		g.Go(func() error {
			if err := s.ingestor.Start(gctx); err != nil {
				return fmt.Errorf("mqtt ingestor: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.controller.Run(gctx)
	})

	s.logger.Info("Intake service started successfully")
	return nil
}

// Done 任一组件异常退出或服务停止时关闭
func (s *IntakeService) Done() <-chan struct{} {
	return s.done
}

// Stop 停止服务并释放连接
func (s *IntakeService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping intake service")

	var runErr error
	if s.cancel != nil {
		s.cancel()
		runErr = s.group.Wait()
		if runErr != nil {
			s.logger.Error("Intake service component failed", zap.Error(runErr))
		}
	}

	if s.ingestor != nil {
		if err := s.ingestor.Stop(ctx); err != nil {
			s.logger.Error("Error stopping MQTT ingestor", zap.Error(err))
		}
	}
	s.hub.Close()
	s.closeClients()

	s.logger.Info("Intake service stopped")
	return runErr
}

func (s *IntakeService) closeClients() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redis != nil {
		rediscommon.Close(s.redis)
	}
	if s.db != nil {
		database.Close(s.db)
	}
}

// timing 配置中未设置（零值）的停顿使用默认值
func timing(c config.InterviewConfig) interview.Timing {
	t := interview.DefaultTiming()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&t.GreetingPause, c.GreetingPause)
	set(&t.AnswerPause, c.AnswerPause)
	set(&t.RetryPause, c.RetryPause)
	set(&t.ScanRetryDelay, c.ScanRetryDelay)
	set(&t.ScanSuccessPause, c.ScanSuccessPause)
	set(&t.SettleDelay, c.SettleDelay)
	set(&t.PhotoPause, c.PhotoPause)
	set(&t.SubmitPause, c.SubmitPause)
	set(&t.ClosingDelay, c.ClosingDelay)
	if c.BodyTemperatureThreshold > 0 {
		t.BodyTemperatureThreshold = c.BodyTemperatureThreshold
	}
	return t
}

// questionSet 配置了问题列表时使用配置，否则用内置问题
func questionSet(c config.InterviewConfig) interview.QuestionSet {
	if len(c.Questions.English) == 0 {
		return interview.DefaultQuestions()
	}
	return interview.QuestionSet{
		English: c.Questions.English,
		Hindi:   c.Questions.Hindi,
	}
}
