// Package interview 以顺序状态机执行 kiosk 问诊：
// 体重检测、语音问答（含二维码识别）、心率与体温采集、拍照、提交、结束语
//
// Run 在单个 goroutine 中执行，每次调用协作方都阻塞到返回，任一时刻只有一个阶段在运行
package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/pacing"
	"wisefido-intake/internal/sensor"
)

// ErrAlreadyStarted 已有问诊在进行或开始请求已排队
var ErrAlreadyStarted = errors.New("interview already started")

// Timing 阶段之间的固定停顿
type Timing struct {
	GreetingPause    time.Duration
	AnswerPause      time.Duration
	RetryPause       time.Duration
	ScanRetryDelay   time.Duration
	ScanSuccessPause time.Duration
	SettleDelay      time.Duration
	PhotoPause       time.Duration
	SubmitPause      time.Duration
	ClosingDelay     time.Duration

	// 体温阈值（°C），不高于该值的读数视为环境温度
	BodyTemperatureThreshold float64
}

// DefaultTiming kiosk 默认节奏
func DefaultTiming() Timing {
	return Timing{
		GreetingPause:            2 * time.Second,
		AnswerPause:              100 * time.Millisecond,
		RetryPause:               time.Second,
		ScanRetryDelay:           3 * time.Second,
		ScanSuccessPause:         500 * time.Millisecond,
		SettleDelay:              time.Second,
		PhotoPause:               2 * time.Second,
		SubmitPause:              time.Second,
		ClosingDelay:             5 * time.Second,
		BodyTemperatureThreshold: 30,
	}
}

// Snapshot 供 HTTP 状态接口读取的只读快照
type Snapshot struct {
	InterviewID string                 `json:"interview_id,omitempty"`
	DeviceID    string                 `json:"device_id"`
	Language    models.Language        `json:"language"`
	State       State                  `json:"state"`
	Fields      map[string]string      `json:"fields"`
	Vitals      *models.CapturedVitals `json:"vitals,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Controller 问诊状态机
type Controller struct {
	deps   Deps
	timing Timing
	logger *zap.Logger
	now    func() time.Time

	startCh chan struct{}

	mu          sync.RWMutex
	starting    bool // 已检测到患者或已接受开始请求，直到问诊结束
	state       State
	interviewID string
	lang        models.Language
	record      *models.SessionRecord
	vitals      *models.CapturedVitals
	updatedAt   time.Time
}

// NewController 创建控制器
func NewController(deps Deps, timing Timing, logger *zap.Logger) *Controller {
	if timing.BodyTemperatureThreshold <= 0 {
		timing.BodyTemperatureThreshold = DefaultTiming().BodyTemperatureThreshold
	}
	if err := deps.Questions.Validate(); err != nil {
		if len(deps.Questions.English) > 0 {
			logger.Warn("Invalid question set, using built-in questions", zap.Error(err))
		}
		deps.Questions = DefaultQuestions()
	}
	return &Controller{
		deps:    deps,
		timing:  timing,
		logger:  logger,
		now:     time.Now,
		startCh: make(chan struct{}, 1),
		state:   InitialState(),
		lang:    models.LanguageEnglish,
		record:  models.NewSessionRecord(),
	}
}

// Start 操作员手动开始：跳过体重检测和问候，直接从第一个问题开始
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.starting || c.state.Started {
		return ErrAlreadyStarted
	}
	select {
	case c.startCh <- struct{}{}:
		c.starting = true
		return nil
	default:
		return ErrAlreadyStarted
	}
}

// Snapshot 当前状态的深拷贝
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		InterviewID: c.interviewID,
		DeviceID:    c.deps.DeviceID,
		Language:    c.lang,
		State:       c.state,
		Fields:      c.record.Fields(),
		Vitals:      c.vitals.Clone(),
		UpdatedAt:   c.updatedAt,
	}
}

// Run 循环执行：等待患者 → 问诊 → 复位，直到 ctx 取消
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Interview controller started", zap.String("device_id", c.deps.DeviceID))
	defer c.logger.Info("Interview controller stopped")

	for {
		trigger, err := c.awaitPatient(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.runInterview(ctx, trigger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Interview aborted", zap.String("interview_id", c.currentID()), zap.Error(err))
			c.resetState()
		}
	}
}

// awaitPatient 空闲阶段：体重超过阈值或操作员开始
func (c *Controller) awaitPatient(ctx context.Context) (Event, error) {
	select {
	case <-c.startCh:
		return EventOperatorStart, nil
	default:
	}

	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	if c.deps.Presence == nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-c.startCh:
			return EventOperatorStart, nil
		}
	}

	c.show(ElementQuestion, msgs.StandOnScale)
	c.deps.Speaker.Speak(ctx, msgs.StandOnScale, lang)

	for {
		type detection struct {
			sample *models.SensorSample
			err    error
		}
		monitorCtx, cancel := context.WithCancel(ctx)
		done := make(chan detection, 1)
		go func() {
			s, err := c.deps.Presence.Wait(monitorCtx, func(s *models.SensorSample) {
				c.show(ElementWeight, weightBadge(s.Weight))
			})
			done <- detection{sample: s, err: err}
		}()

		select {
		case <-ctx.Done():
			c.deps.Presence.Stop()
			cancel()
			<-done
			return "", ctx.Err()

		case <-c.startCh:
			c.deps.Presence.Stop()
			cancel()
			<-done
			return EventOperatorStart, nil

		case d := <-done:
			cancel()
			if d.err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				c.logger.Warn("Weight monitor ended without detection", zap.Error(d.err))
				if err := pacing.Wait(ctx, c.timing.RetryPause); err != nil {
					return "", err
				}
				continue
			}

			// 问候期间到达的开始请求不再排队
			c.mu.Lock()
			c.starting = true
			c.mu.Unlock()

			lang = c.language(ctx)
			msgs = MessagesFor(lang)
			c.show(ElementQuestion, msgs.Greeting)
			c.deps.Speaker.Speak(ctx, msgs.Greeting, lang)
			if err := pacing.Wait(ctx, c.timing.GreetingPause); err != nil {
				return "", err
			}
			return EventPatientDetected, nil
		}
	}
}

// runInterview 从对话阶段执行到复位回空闲
func (c *Controller) runInterview(ctx context.Context, trigger Event) error {
	select {
	case <-c.startCh:
	default:
	}
	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	record := c.deps.Session.Restore(ctx)
	id := uuid.NewString()

	c.mu.Lock()
	c.interviewID = id
	c.record = record
	c.vitals = nil
	c.state = InitialState()
	c.state.QuestionCount = len(c.deps.Questions.English)
	c.mu.Unlock()

	if err := c.apply(trigger); err != nil {
		return err
	}
	c.publish(ctx, "started", string(trigger))
	c.logger.Info("Interview started",
		zap.String("interview_id", id),
		zap.String("trigger", string(trigger)),
		zap.Int("questions", len(c.deps.Questions.English)),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		phase := c.phase()
		if phase == models.PhaseIdle {
			return nil
		}

		var event Event
		switch phase {
		case models.PhaseDialogue:
			event = c.askQuestion(ctx)
		case models.PhaseHeartbeat:
			event = c.readHeartbeat(ctx)
		case models.PhaseTemperature:
			event = c.readTemperature(ctx)
		case models.PhasePhoto:
			event = c.takePhoto(ctx)
		case models.PhaseSubmit:
			event = c.submit(ctx)
		case models.PhaseComplete:
			event = c.complete(ctx)
		default:
			return fmt.Errorf("unexpected phase %s", phase)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.apply(event); err != nil {
			return err
		}
		if next := c.phase(); next != phase {
			c.logger.Info("Interview phase changed",
				zap.String("interview_id", id),
				zap.String("from", string(phase)),
				zap.String("to", string(next)),
			)
			c.publish(ctx, string(event), "")
		}
	}
}

// askQuestion 对话阶段的一步：处理当前索引的问题
func (c *Controller) askQuestion(ctx context.Context) Event {
	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	c.mu.RLock()
	idx := c.state.QuestionIndex
	c.mu.RUnlock()
	q := c.deps.Questions.For(lang)[idx]

	if c.hasField(q.Field) {
		c.logger.Info("Question already answered, skipping",
			zap.Int("index", idx),
			zap.String("field", q.Field),
		)
		return EventAnswerCaptured
	}

	if q.IsQRScan() {
		return c.scanQuestion(ctx, q, lang)
	}

	c.show(ElementQuestion, q.Prompt)
	c.deps.Speaker.Speak(ctx, q.Prompt, lang)
	if err := pacing.Wait(ctx, c.timing.AnswerPause); err != nil {
		return ""
	}

	answer, err := c.deps.Listener.Listen(ctx, lang)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		c.logger.Info("Voice answer not captured, asking again",
			zap.String("field", q.Field),
			zap.Error(err),
		)
		c.deps.Speaker.Speak(ctx, msgs.Retry, lang)
		_ = pacing.Wait(ctx, c.timing.RetryPause)
		return EventAnswerFailed
	}

	c.recordField(ctx, q.Field, answer)
	c.show(ElementAnswer, answer)
	return EventAnswerCaptured
}

// scanQuestion 扫码问题：扫码 → 核验 → 合并身份字段；失败 3 秒后重扫
func (c *Controller) scanQuestion(ctx context.Context, q models.Question, lang models.Language) Event {
	msgs := MessagesFor(lang)
	c.show(ElementQuestion, q.Prompt)
	c.deps.Speaker.Speak(ctx, q.Prompt, lang)

	// 关机时让挂起的扫描 tick 失效
	stop := context.AfterFunc(ctx, c.deps.Scanner.Cancel)
	defer stop()

	for {
		c.show(ElementAnswer, msgs.Scanning)

		payload, err := c.deps.Scanner.Scan(ctx)
		var id *models.PatientIdentity
		if err == nil {
			id, err = c.deps.Verifier.VerifyCode(ctx, payload)
		}
		if ctx.Err() != nil {
			return ""
		}
		if err != nil {
			c.logger.Warn("QR identification failed, rescanning", zap.Error(err))
			if applyErr := c.apply(EventAnswerFailed); applyErr != nil {
				c.logger.Error("Failed to record scan retry", zap.Error(applyErr))
			}
			c.show(ElementAnswer, msgs.ScanError)
			c.show(ElementQuestion, msgs.ScanError)
			c.deps.Speaker.Speak(ctx, msgs.ScanError, lang)
			if err := pacing.Wait(ctx, c.timing.ScanRetryDelay); err != nil {
				return ""
			}
			continue
		}

		c.recordField(ctx, q.Field, payload)
		c.mu.Lock()
		changed := c.record.ApplyIdentity(id)
		c.mu.Unlock()
		for _, f := range changed {
			value := c.field(f)
			c.persist(ctx, f, value)
			c.show(f, value)
		}

		name := id.Name
		if name == "" {
			name = "Unknown"
		}
		success := fmt.Sprintf(msgs.ScanSuccess, name)
		c.show(ElementAnswer, success)
		c.show(ElementQuestion, success)
		c.logger.Info("Patient identified by QR code",
			zap.String("patient_id", id.PatientID),
			zap.Strings("fields", changed),
		)
		c.deps.Speaker.Speak(ctx, success, lang)
		if err := pacing.Wait(ctx, c.timing.ScanSuccessPause); err != nil {
			return ""
		}
		return EventAnswerCaptured
	}
}

// readHeartbeat 心率 / 血氧：初始化 CapturedVitals
func (c *Controller) readHeartbeat(ctx context.Context) Event {
	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	c.show(ElementQuestion, msgs.HeartbeatPrompt)
	c.deps.Speaker.Speak(ctx, msgs.HeartbeatPrompt, lang)
	c.showPopup(ctx, msgs.HeartbeatTitle, msgs.HeartbeatHint, models.SensorHeartbeat)

	c.show(ElementQuestion, msgs.WaitingFinger)
	c.show(ElementVitalsStatus, msgs.WaitingVitals)

	out, err := c.deps.Vitals.Poll(ctx, sensor.HeartRateDetected)
	if err != nil {
		return ""
	}
	if !out.Accepted {
		c.logger.Warn("Heartbeat not detected, continuing without it", zap.Int("attempts", out.Attempts))
		c.show(ElementVitalsStatus, msgs.Timeout)
		return EventVitalsDone
	}

	vitals := models.NewVitalsFromSample(out.Sample, c.now())
	if !sensor.BodyTemperatureAbove(c.timing.BodyTemperatureThreshold)(out.Sample) {
		// 指夹阶段的温度是环境读数
		vitals.Temperature = nil
	}
	c.mu.Lock()
	c.vitals = vitals
	c.mu.Unlock()

	c.show(ElementQuestion, fmt.Sprintf(msgs.CapturedVitals,
		formatReading(vitals.HeartRate), formatReading(vitals.SpO2), formatTemperature(vitals.Temperature)))
	c.show(ElementVitals, vitalsBox(vitals))
	c.show(ElementWeight, weightBadge(vitals.Weight))
	c.show(ElementVitalsStatus, vitalsStatus(vitals))
	c.logger.Info("Heartbeat captured",
		zap.Float64("heart_rate", models.ValueOr(vitals.HeartRate, 0)),
		zap.Float64("spo2", models.ValueOr(vitals.SpO2, 0)),
		zap.Int("attempts", out.Attempts),
	)

	_ = pacing.Wait(ctx, c.timing.SettleDelay)
	return EventVitalsDone
}

// readTemperature 体温：合并进 CapturedVitals，不覆盖心率 / 血氧
func (c *Controller) readTemperature(ctx context.Context) Event {
	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	c.show(ElementQuestion, msgs.TemperaturePrompt)
	c.deps.Speaker.Speak(ctx, msgs.TemperaturePrompt, lang)
	c.showPopup(ctx, msgs.TemperatureTitle, msgs.TemperatureHint, models.SensorTemperature)

	c.show(ElementQuestion, msgs.ReadingTemperature)

	out, err := c.deps.Vitals.Poll(ctx, sensor.BodyTemperatureAbove(c.timing.BodyTemperatureThreshold))
	if err != nil {
		return ""
	}
	if !out.Accepted {
		c.logger.Warn("Body temperature not captured, continuing without it", zap.Int("attempts", out.Attempts))
		c.show(ElementVitalsStatus, msgs.Timeout)
		return EventVitalsDone
	}

	c.mu.Lock()
	c.vitals = c.vitals.MergeTemperature(out.Sample, c.now())
	vitals := c.vitals.Clone()
	c.mu.Unlock()

	c.show(ElementQuestion, fmt.Sprintf(msgs.CapturedTemp, formatTemperature(vitals.Temperature)))
	if out.Sample.Weight != nil {
		c.show(ElementWeight, weightBadge(out.Sample.Weight))
	}
	c.show(ElementVitals, vitalsBox(vitals))
	c.show(ElementVitalsStatus, vitalsStatus(vitals))
	c.logger.Info("Body temperature captured",
		zap.Float64("temperature", models.ValueOr(vitals.Temperature, 0)),
		zap.Int("attempts", out.Attempts),
	)

	_ = pacing.Wait(ctx, c.timing.SettleDelay)
	return EventVitalsDone
}

// takePhoto 拍照阶段只执行一次
func (c *Controller) takePhoto(ctx context.Context) Event {
	c.mu.RLock()
	taken := c.state.PhotoTaken
	c.mu.RUnlock()
	if taken {
		return EventPhotoTaken
	}

	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	c.show(ElementQuestion, msgs.PhotoPrompt)
	c.deps.Speaker.Speak(ctx, msgs.PhotoPrompt, lang)
	if err := pacing.Wait(ctx, c.timing.PhotoPause); err != nil {
		return ""
	}
	c.show(ElementQuestion, msgs.PhotoCountdown)
	c.deps.Speaker.Speak(ctx, msgs.PhotoCountdown, lang)

	ref := c.deps.Photo.Capture(ctx)
	c.mu.Lock()
	c.record.Set(models.FieldPhoto, ref)
	c.mu.Unlock()
	c.show(models.FieldPhoto, ref)
	c.logger.Info("Photo captured", zap.String("photo", ref))
	return EventPhotoTaken
}

// submit 提交一次，失败只记录日志
func (c *Controller) submit(ctx context.Context) Event {
	if err := pacing.Wait(ctx, c.timing.SubmitPause); err != nil {
		return ""
	}

	c.mu.RLock()
	record := c.record.Clone()
	sample := c.vitals.AsSample()
	id := c.interviewID
	c.mu.RUnlock()

	if sample == nil && c.deps.Samples != nil {
		fresh, err := c.deps.Samples.Latest(ctx)
		if err != nil {
			c.logger.Warn("No captured vitals and fresh sample unavailable", zap.Error(err))
		}
		sample = fresh
	}

	payload := models.BuildSubmission(record, sample)
	audit := &models.SubmissionRecord{
		InterviewID: id,
		DeviceID:    c.deps.DeviceID,
		PatientID:   payload.PatientID,
		Payload:     payload,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: c.now(),
	}

	if err := c.deps.Submitter.Submit(ctx, payload); err != nil {
		c.logger.Error("Interview submission failed",
			zap.String("interview_id", id),
			zap.String("patient_id", payload.PatientID),
			zap.Error(err),
		)
		audit.Status = models.SubmissionStatusFailed
		audit.Error = err.Error()
	}

	if c.deps.Auditor != nil {
		if err := c.deps.Auditor.Save(ctx, audit); err != nil {
			c.logger.Warn("Failed to write submission audit", zap.Error(err))
		}
	}
	c.publish(ctx, "submission_"+audit.Status, audit.Error)
	return EventSubmitted
}

// complete 结束语 → 复位页面 → 清空会话
func (c *Controller) complete(ctx context.Context) Event {
	lang := c.language(ctx)
	msgs := MessagesFor(lang)

	c.show(ElementQuestion, msgs.Closing)
	c.deps.Speaker.Speak(ctx, msgs.Closing, lang)
	if err := pacing.Wait(ctx, c.timing.ClosingDelay); err != nil {
		return ""
	}

	if c.deps.Display != nil {
		c.deps.Display.Reset()
	}
	if err := c.deps.Session.Clear(ctx); err != nil {
		c.logger.Warn("Failed to clear session", zap.Error(err))
	}

	c.mu.Lock()
	c.record = models.NewSessionRecord()
	c.vitals = nil
	c.mu.Unlock()

	c.logger.Info("Interview complete", zap.String("interview_id", c.currentID()))
	return EventReset
}

func (c *Controller) apply(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Transition(c.state, e)
	if err != nil {
		return err
	}
	c.state = next
	c.updatedAt = c.now()
	return nil
}

func (c *Controller) resetState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = InitialState()
	c.record = models.NewSessionRecord()
	c.vitals = nil
	c.updatedAt = c.now()
}

func (c *Controller) phase() models.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Phase
}

func (c *Controller) currentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interviewID
}

// language 在阶段边界读取一次语言
func (c *Controller) language(ctx context.Context) models.Language {
	lang := c.deps.Session.Language(ctx)
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
	return lang
}

func (c *Controller) hasField(field string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.Has(field)
}

func (c *Controller) field(field string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.Get(field)
}

// recordField 写入记录、持久化并回显到字段元素
func (c *Controller) recordField(ctx context.Context, field, value string) {
	c.mu.Lock()
	c.record.Set(field, value)
	c.mu.Unlock()
	c.persist(ctx, field, value)
	c.show(field, value)
}

func (c *Controller) persist(ctx context.Context, field, value string) {
	if err := c.deps.Session.SaveField(ctx, field, value); err != nil {
		c.logger.Warn("Failed to persist field", zap.String("field", field), zap.Error(err))
	}
}

func (c *Controller) show(element, text string) {
	if c.deps.Display != nil {
		c.deps.Display.Show(element, text)
	}
}

// showPopup 有弹窗能力时先展示引导，失败则直接读取
func (c *Controller) showPopup(ctx context.Context, title, instruction string, kind models.SensorKind) {
	if c.deps.Popup == nil {
		return
	}
	if err := c.deps.Popup.ShowSensorPopup(ctx, title, instruction, kind); err != nil {
		c.logger.Info("Sensor popup unavailable, reading directly",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (c *Controller) publish(ctx context.Context, event, detail string) {
	if c.deps.Events == nil {
		return
	}
	c.mu.RLock()
	ev := models.InterviewEvent{
		InterviewID: c.interviewID,
		DeviceID:    c.deps.DeviceID,
		Phase:       c.state.Phase,
		Event:       event,
		Detail:      detail,
		At:          c.now(),
	}
	c.mu.RUnlock()
	if err := c.deps.Events.Publish(ctx, ev); err != nil {
		c.logger.Warn("Failed to publish interview event", zap.String("event", event), zap.Error(err))
	}
}
