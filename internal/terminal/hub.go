package terminal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/speech"
)

// ErrNotConnected 没有页面连接
var ErrNotConnected = errors.New("kiosk terminal not connected")

const (
	DefaultRequestTimeout = 30 * time.Second
	writeTimeout          = 5 * time.Second
	maxMessageBytes       = 8 << 20
)

// LanguageHandler 页面切换语言时回调
type LanguageHandler func(ctx context.Context, lang models.Language) error

type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

func (p *peer) write(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(msg)
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}

// Hub 同一时刻只服务一个页面连接，新连接替换旧连接
type Hub struct {
	upgrader       websocket.Upgrader
	requestTimeout time.Duration
	onLanguage     LanguageHandler
	logger         *zap.Logger

	seq atomic.Uint64

	mu      sync.Mutex
	current *peer
	pending map[string]pendingRequest
	voices  []speech.Voice
}

// pendingRequest 等待回复的请求，记录发往的连接
type pendingRequest struct {
	peer *peer
	ch   chan Message
}

// NewHub 创建终端连接中心
func NewHub(requestTimeout time.Duration, onLanguage LanguageHandler, logger *zap.Logger) *Hub {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		requestTimeout: requestTimeout,
		onLanguage:     onLanguage,
		logger:         logger,
		pending:        make(map[string]pendingRequest),
	}
}

// ServeHTTP 升级为 websocket 并阻塞到连接断开
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Terminal upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	p := &peer{conn: conn, closed: make(chan struct{})}
	h.attach(p)
	h.logger.Info("Kiosk terminal connected", zap.String("remote_addr", r.RemoteAddr))

	h.readLoop(r.Context(), p)

	h.detach(p)
	h.logger.Info("Kiosk terminal disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// Connected 是否有页面在线
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// Close 断开当前页面
func (h *Hub) Close() {
	h.mu.Lock()
	p := h.current
	h.mu.Unlock()
	if p != nil {
		p.close()
	}
}

func (h *Hub) attach(p *peer) {
	h.mu.Lock()
	old := h.current
	h.current = p
	h.voices = nil
	if old != nil {
		h.failPendingLocked(old)
	}
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
}

func (h *Hub) detach(p *peer) {
	p.close()
	h.mu.Lock()
	if h.current == p {
		h.current = nil
	}
	h.failPendingLocked(p)
	h.mu.Unlock()
}

// failPendingLocked 让发往 p 的挂起请求立即以 ErrNotConnected 返回；调用方持有 h.mu
func (h *Hub) failPendingLocked(p *peer) {
	for id, req := range h.pending {
		if req.peer != p {
			continue
		}
		select {
		case req.ch <- Message{ID: id, Type: TypeError, Error: ErrNotConnected.Error()}:
		default:
		}
		delete(h.pending, id)
	}
}

func (h *Hub) readLoop(ctx context.Context, p *peer) {
	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Terminal read ended", zap.Error(err))
			}
			return
		}
		h.dispatch(ctx, msg)
	}
}

func (h *Hub) dispatch(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeLang:
		if h.onLanguage != nil {
			if err := h.onLanguage(ctx, models.ParseLanguage(msg.Lang)); err != nil {
				h.logger.Warn("Failed to apply language switch", zap.Error(err))
			}
		}
		return
	case TypeVoices:
		h.mu.Lock()
		h.voices = msg.Voices
		h.mu.Unlock()
	}

	if msg.ID == "" {
		return
	}
	h.mu.Lock()
	req, ok := h.pending[msg.ID]
	delete(h.pending, msg.ID)
	h.mu.Unlock()
	if !ok {
		h.logger.Debug("Dropping unsolicited terminal message",
			zap.String("id", msg.ID),
			zap.String("type", msg.Type),
		)
		return
	}
	req.ch <- msg
}

// request 发送请求并等待页面回复同 id 的消息
func (h *Hub) request(ctx context.Context, msg Message) (Message, error) {
	msg.ID = strconv.FormatUint(h.seq.Add(1), 10)
	ch := make(chan Message, 1)

	h.mu.Lock()
	p := h.current
	if p == nil {
		h.mu.Unlock()
		return Message{}, ErrNotConnected
	}
	h.pending[msg.ID] = pendingRequest{peer: p, ch: ch}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, msg.ID)
		h.mu.Unlock()
	}()

	if err := p.write(msg); err != nil {
		return Message{}, fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	timer := time.NewTimer(h.requestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Type == TypeError {
			if resp.Error == ErrNotConnected.Error() {
				return resp, ErrNotConnected
			}
			return resp, fmt.Errorf("terminal %s failed: %s", msg.Type, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-timer.C:
		return Message{}, fmt.Errorf("terminal %s timed out after %s", msg.Type, h.requestTimeout)
	}
}

// notify 单向通知，不等待回复
func (h *Hub) notify(msg Message) error {
	h.mu.Lock()
	p := h.current
	h.mu.Unlock()
	if p == nil {
		return ErrNotConnected
	}
	return p.write(msg)
}

// Voices 优先使用页面主动上报的发音人列表
func (h *Hub) Voices(ctx context.Context) ([]speech.Voice, error) {
	h.mu.Lock()
	cached := h.voices
	h.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	resp, err := h.request(ctx, Message{Type: TypeVoices})
	if err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

// SpeakChunk 页面播放完这一句后回复 done
func (h *Hub) SpeakChunk(ctx context.Context, text string, voice speech.Voice, locale string) error {
	_, err := h.request(ctx, Message{Type: TypeSpeak, Text: text, Voice: voice.Name, Lang: locale})
	return err
}

// Recognize 页面做一次语音识别
func (h *Hub) Recognize(ctx context.Context, locale string) (string, error) {
	resp, err := h.request(ctx, Message{Type: TypeListen, Lang: locale})
	if err != nil {
		if resp.Error == errorNoRecognizer {
			return "", speech.ErrNoRecognizer
		}
		return "", err
	}
	return resp.Text, nil
}

// Snapshot 页面摄像头的一帧（base64 编码的 JPEG / PNG）
func (h *Hub) Snapshot(ctx context.Context) ([]byte, error) {
	resp, err := h.request(ctx, Message{Type: TypeSnapshot})
	if err != nil {
		return nil, err
	}
	frame, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid frame encoding: %w", err)
	}
	return frame, nil
}

// Available 页面在线即认为页面摄像头可用
func (h *Hub) Available() bool {
	return h.Connected()
}

// TriggerCapture 页面拍照并上传到 /upload_photo，回复 done 表示已开始拍照
func (h *Hub) TriggerCapture(ctx context.Context) error {
	_, err := h.request(ctx, Message{Type: TypeCapturePhoto})
	return err
}

// ShowSensorPopup 弹出传感器引导视频，页面在弹窗关闭后回复
func (h *Hub) ShowSensorPopup(ctx context.Context, title, instruction string, kind models.SensorKind) error {
	_, err := h.request(ctx, Message{
		Type:        TypePopup,
		Title:       title,
		Instruction: instruction,
		Kind:        string(kind),
	})
	return err
}

// Show 更新页面元素文本
func (h *Hub) Show(element, text string) {
	if err := h.notify(Message{Type: TypeDisplay, Element: element, Text: text}); err != nil {
		h.logger.Debug("Display update dropped", zap.String("element", element), zap.Error(err))
	}
}

// Reset 问诊结束后重置页面
func (h *Hub) Reset() {
	if err := h.notify(Message{Type: TypeReset}); err != nil {
		h.logger.Debug("Terminal reset dropped", zap.Error(err))
	}
}
