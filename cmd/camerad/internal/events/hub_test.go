package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/camerakit/internal/camera"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubB()

	h.Publish(camera.Event{Type: camera.EventFlashChanged})

	require.Equal(t, camera.EventFlashChanged, (<-a).Type)
	require.Equal(t, camera.EventFlashChanged, (<-b).Type)

	unsubA()
	unsubA()
	_, ok := <-a
	assert.False(t, ok, "channel closed after unsubscribe")
	assert.Equal(t, 1, h.Subscribers())
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	for range subscriberBuffer + 10 {
		h.Publish(camera.Event{Type: camera.EventRecordingProgress})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_StreamCap(t *testing.T) {
	h := NewHub()
	for range maxStreams {
		require.True(t, h.AcquireStream())
	}
	assert.False(t, h.AcquireStream())
	h.ReleaseStream()
	assert.True(t, h.AcquireStream())
}
