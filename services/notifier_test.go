package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDelivers(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, 8)

	d.Enqueue("+911234567890", ChannelSMS, "hello")
	d.Enqueue("someone@example.com", ChannelEmail, "hi")

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 10*time.Millisecond)
	d.Close()
}

func TestDispatcherSkipsEmptyContact(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, 8)
	defer d.Close()

	d.Enqueue("", ChannelSMS, "nowhere to go")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestDispatcherEnqueueAfterCloseDrops(t *testing.T) {
	sink := &recordingNotifier{}
	d := NewDispatcher(sink, 8)
	d.Close()

	assert.NotPanics(t, func() {
		d.Enqueue("+911234567890", ChannelSMS, "too late")
	})
	assert.Equal(t, 0, sink.count())

	assert.NotPanics(t, d.Close, "double close is a no-op")
}
