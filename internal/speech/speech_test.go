package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "   ", nil},
		{"single without punctuation", "Hello there", []string{"Hello there"}},
		{"multiple", "Hello! I can see you are here. I am here to help you.",
			[]string{"Hello!", "I can see you are here.", "I am here to help you."}},
		{"trailing ellipsis", "Taking photo... 3... 2... 1...",
			[]string{"Taking photo...", "3...", "2...", "1..."}},
		{"danda", "नमस्ते! मैं देख रहा हूं कि आप यहां हैं। मैं आपकी मदद के लिए यहां हूं।",
			[]string{"नमस्ते!", "मैं देख रहा हूं कि आप यहां हैं।", "मैं आपकी मदद के लिए यहां हूं।"}},
		{"punctuation only", "?!", []string{"?!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestPickVoice(t *testing.T) {
	voices := []Voice{
		{Name: "Google UK English", Lang: "en-GB"},
		{Name: "Samantha", Lang: "en-US"},
		{Name: "Lekha", Lang: "hi_IN"},
	}

	v, ok := PickVoice(voices, "en-US")
	require.True(t, ok)
	assert.Equal(t, "Samantha", v.Name)

	v, ok = PickVoice(voices, "hi-IN")
	require.True(t, ok)
	assert.Equal(t, "Lekha", v.Name)

	_, ok = PickVoice(voices, "ta-IN")
	assert.False(t, ok)

	_, ok = PickVoice(nil, "en-US")
	assert.False(t, ok)
}

type recordingEngine struct {
	voices   []Voice
	spoken   []string
	used     []Voice
	failOn   map[string]error
	blockFor string
}

func (e *recordingEngine) Voices(ctx context.Context) ([]Voice, error) {
	return e.voices, nil
}

func (e *recordingEngine) SpeakChunk(ctx context.Context, text string, voice Voice, locale string) error {
	e.spoken = append(e.spoken, text)
	e.used = append(e.used, voice)
	if text == e.blockFor {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.failOn[text]
}

func TestSynthesizer_SpeaksChunksInOrder(t *testing.T) {
	engine := &recordingEngine{voices: []Voice{{Name: "Samantha", Lang: "en-US"}}}
	s := NewSynthesizer(engine, time.Second, zap.NewNop())

	s.Speak(context.Background(), "First. Second? Third!", models.LanguageEnglish)

	assert.Equal(t, []string{"First.", "Second?", "Third!"}, engine.spoken)
	for _, v := range engine.used {
		assert.Equal(t, "Samantha", v.Name)
	}
}

func TestSynthesizer_CompletesDespiteChunkFailures(t *testing.T) {
	engine := &recordingEngine{
		failOn:   map[string]error{"One.": errors.New("synthesis-failed")},
		blockFor: "Two.",
	}
	s := NewSynthesizer(engine, 20*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.Speak(context.Background(), "One. Two. Three.", models.LanguageHindi)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Speak did not return")
	}
	assert.Equal(t, []string{"One.", "Two.", "Three."}, engine.spoken)
	assert.Equal(t, Voice{}, engine.used[0])
}

func TestSynthesizer_NilEngineReturns(t *testing.T) {
	s := NewSynthesizer(nil, 0, zap.NewNop())
	s.Speak(context.Background(), "Anyone there?", models.LanguageEnglish)
}

type fakeRecognizer struct {
	text   string
	err    error
	locale string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, locale string) (string, error) {
	f.locale = locale
	return f.text, f.err
}

func TestListener(t *testing.T) {
	ctx := context.Background()

	_, err := NewListener(nil).Listen(ctx, models.LanguageEnglish)
	assert.ErrorIs(t, err, ErrNoRecognizer)

	rec := &fakeRecognizer{text: "  headache since morning "}
	text, err := NewListener(rec).Listen(ctx, models.LanguageHindi)
	require.NoError(t, err)
	assert.Equal(t, "headache since morning", text)
	assert.Equal(t, "hi-IN", rec.locale)

	_, err = NewListener(&fakeRecognizer{text: "   "}).Listen(ctx, models.LanguageEnglish)
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	boom := errors.New("no-speech")
	_, err = NewListener(&fakeRecognizer{err: boom}).Listen(ctx, models.LanguageEnglish)
	assert.ErrorIs(t, err, boom)
}
