package terminal

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/speech"
)

// fakePage 模拟 kiosk 页面：按类型自动回复，记录收到的通知
type fakePage struct {
	conn *websocket.Conn

	mu       sync.Mutex
	received []Message
}

func (p *fakePage) Received() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.received...)
}

func (p *fakePage) run(t *testing.T, reply func(Message) *Message) {
	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			return
		}
		p.mu.Lock()
		p.received = append(p.received, msg)
		p.mu.Unlock()
		if resp := reply(msg); resp != nil {
			resp.ID = msg.ID
			if err := p.conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func startHub(t *testing.T, onLang LanguageHandler) (*Hub, string) {
	t.Helper()
	return startHubWithTimeout(t, time.Second, onLang)
}

func startHubWithTimeout(t *testing.T, timeout time.Duration, onLang LanguageHandler) (*Hub, string) {
	t.Helper()
	hub := NewHub(timeout, onLang, zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connectPage(t *testing.T, hub *Hub, url string, reply func(Message) *Message) *fakePage {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	page := &fakePage{conn: conn}
	go page.run(t, reply)
	require.Eventually(t, hub.Connected, time.Second, time.Millisecond)
	return page
}

func TestHub_NotConnected(t *testing.T) {
	hub := NewHub(time.Second, nil, zap.NewNop())

	assert.False(t, hub.Available())
	assert.ErrorIs(t, hub.SpeakChunk(context.Background(), "Hello.", speech.Voice{}, "en-US"), ErrNotConnected)
	_, err := hub.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	hub.Show("questionDisplay", "ignored")
	hub.Reset()
}

func TestHub_RequestResponse(t *testing.T) {
	hub, url := startHub(t, nil)
	frame := []byte{0x89, 'P', 'N', 'G'}

	page := connectPage(t, hub, url, func(m Message) *Message {
		switch m.Type {
		case TypeSpeak, TypeCapturePhoto, TypePopup:
			return &Message{Type: TypeDone}
		case TypeListen:
			return &Message{Type: TypeTranscript, Text: "chest pain"}
		case TypeSnapshot:
			return &Message{Type: TypeFrame, Data: base64.StdEncoding.EncodeToString(frame)}
		case TypeVoices:
			return &Message{Type: TypeVoices, Voices: []speech.Voice{{Name: "Lekha", Lang: "hi-IN"}}}
		}
		return nil
	})
	ctx := context.Background()

	require.NoError(t, hub.SpeakChunk(ctx, "Namaste.", speech.Voice{Name: "Lekha"}, "hi-IN"))

	text, err := hub.Recognize(ctx, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "chest pain", text)

	got, err := hub.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	voices, err := hub.Voices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []speech.Voice{{Name: "Lekha", Lang: "hi-IN"}}, voices)

	require.NoError(t, hub.TriggerCapture(ctx))
	require.NoError(t, hub.ShowSensorPopup(ctx, "Heartbeat Sensor", "Please place your finger on the sensor", models.SensorHeartbeat))

	hub.Show("answerDisplay", "chest pain")
	require.Eventually(t, func() bool {
		for _, m := range page.Received() {
			if m.Type == TypeDisplay && m.Element == "answerDisplay" && m.Text == "chest pain" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	for _, m := range page.Received() {
		if m.Type == TypeSpeak {
			assert.Equal(t, "Namaste.", m.Text)
			assert.Equal(t, "Lekha", m.Voice)
			assert.Equal(t, "hi-IN", m.Lang)
		}
		if m.Type == TypePopup {
			assert.Equal(t, "heartbeat", m.Kind)
		}
	}
}

func TestHub_ErrorReplies(t *testing.T) {
	hub, url := startHub(t, nil)
	connectPage(t, hub, url, func(m Message) *Message {
		switch m.Type {
		case TypeListen:
			return &Message{Type: TypeError, Error: errorNoRecognizer}
		case TypeSpeak:
			return &Message{Type: TypeError, Error: "synthesis-failed"}
		}
		return nil
	})
	ctx := context.Background()

	_, err := hub.Recognize(ctx, "en-US")
	assert.ErrorIs(t, err, speech.ErrNoRecognizer)

	err = hub.SpeakChunk(ctx, "Hello.", speech.Voice{}, "en-US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis-failed")

	// 页面不回复：请求超时
	_, err = hub.Snapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestHub_LanguageSwitchFromPage(t *testing.T) {
	var mu sync.Mutex
	var got models.Language
	hub, url := startHub(t, func(ctx context.Context, lang models.Language) error {
		mu.Lock()
		defer mu.Unlock()
		got = lang
		return nil
	})
	page := connectPage(t, hub, url, func(Message) *Message { return nil })

	require.NoError(t, page.conn.WriteJSON(Message{Type: TypeLang, Lang: "hi"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == models.LanguageHindi
	}, time.Second, time.Millisecond)
}

func TestHub_DisconnectFailsPending(t *testing.T) {
	hub, url := startHub(t, nil)
	page := connectPage(t, hub, url, func(m Message) *Message { return nil })

	errCh := make(chan error, 1)
	go func() {
		_, err := hub.Recognize(context.Background(), "en-US")
		errCh <- err
	}()

	require.Eventually(t, func() bool { return len(page.Received()) > 0 }, time.Second, time.Millisecond)
	require.NoError(t, page.conn.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not released")
	}
	require.Eventually(t, func() bool { return !hub.Connected() }, time.Second, time.Millisecond)
}

func TestHub_ReplacedPageFailsItsPending(t *testing.T) {
	hub, url := startHubWithTimeout(t, time.Minute, nil)
	oldPage := connectPage(t, hub, url, func(m Message) *Message { return nil })

	errCh := make(chan error, 1)
	go func() {
		_, err := hub.Recognize(context.Background(), "en-US")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return len(oldPage.Received()) > 0 }, time.Second, time.Millisecond)

	newPage := connectPage(t, hub, url, func(m Message) *Message {
		if m.Type == TypeListen {
			return &Message{Type: TypeTranscript, Text: "headache"}
		}
		return nil
	})

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("request on the replaced page was not released")
	}

	text, err := hub.Recognize(context.Background(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "headache", text)
	assert.NotEmpty(t, newPage.Received())
}
