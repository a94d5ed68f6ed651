package photo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/session"
	"wisefido-intake/internal/store"
)

var placeholderPattern = regexp.MustCompile(`^patient_\d+\.jpg$`)

type fakeCamera struct {
	available bool
	err       error
	onTrigger func()
	triggered int
}

func (f *fakeCamera) Available() bool { return f.available }

func (f *fakeCamera) TriggerCapture(ctx context.Context) error {
	f.triggered++
	if f.onTrigger != nil {
		f.onTrigger()
	}
	return f.err
}

type fakeExternal struct {
	name  string
	err   error
	block bool
	calls int
}

func (f *fakeExternal) TakePicture(ctx context.Context) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.name, f.err
}

func newSessionStore() *session.Store {
	return session.NewStore(store.NewMemoryKV(), "kiosk-1", 0, zap.NewNop())
}

func fastConfig() Config {
	return Config{GracePeriod: 5 * time.Millisecond, ExternalTimeout: 20 * time.Millisecond}
}

func TestCapture_InPagePhotoWins(t *testing.T) {
	ctx := context.Background()
	sess := newSessionStore()
	cam := &fakeCamera{available: true, onTrigger: func() {
		_ = sess.SaveField(ctx, models.FieldPhoto, "qa_photo_001.jpg")
	}}
	ext := &fakeExternal{name: "cam.jpg"}

	ref := NewCapturer(cam, ext, sess, fastConfig(), zap.NewNop()).Capture(ctx)
	assert.Equal(t, "qa_photo_001.jpg", ref)
	assert.Equal(t, 1, cam.triggered)
	assert.Zero(t, ext.calls)
}

func TestCapture_FallsBackToExternal(t *testing.T) {
	ctx := context.Background()
	sess := newSessionStore()
	cam := &fakeCamera{available: true}
	ext := &fakeExternal{name: "cam_20260301.jpg"}

	ref := NewCapturer(cam, ext, sess, fastConfig(), zap.NewNop()).Capture(ctx)
	assert.Equal(t, "cam_20260301.jpg", ref)

	stored, err := sess.Field(ctx, models.FieldPhoto)
	require.NoError(t, err)
	assert.Equal(t, "cam_20260301.jpg", stored)
}

func TestCapture_SkipsUnavailableCamera(t *testing.T) {
	cam := &fakeCamera{available: false}
	ext := &fakeExternal{name: "ext.jpg"}

	ref := NewCapturer(cam, ext, newSessionStore(), fastConfig(), zap.NewNop()).Capture(context.Background())
	assert.Equal(t, "ext.jpg", ref)
	assert.Zero(t, cam.triggered)
}

func TestCapture_PlaceholderWhenEverythingFails(t *testing.T) {
	ctx := context.Background()
	sess := newSessionStore()
	cam := &fakeCamera{available: true, err: errors.New("permission denied")}
	ext := &fakeExternal{block: true}

	c := NewCapturer(cam, ext, sess, fastConfig(), zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1767225600123) }

	start := time.Now()
	ref := c.Capture(ctx)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, "patient_1767225600123.jpg", ref)
	assert.Regexp(t, placeholderPattern, ref)

	stored, err := sess.Field(ctx, models.FieldPhoto)
	require.NoError(t, err)
	assert.Equal(t, ref, stored)
}

func TestCapture_NoCollaborators(t *testing.T) {
	ref := NewCapturer(nil, nil, newSessionStore(), fastConfig(), zap.NewNop()).Capture(context.Background())
	assert.Regexp(t, placeholderPattern, ref)
}

func TestCapture_EmptyExternalName(t *testing.T) {
	ref := NewCapturer(nil, &fakeExternal{name: ""}, newSessionStore(), fastConfig(), zap.NewNop()).Capture(context.Background())
	assert.Regexp(t, placeholderPattern, ref)
}
