package toast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageFallsBackToKey(t *testing.T) {
	require.Equal(t, "Translation failed", Message(KeyErrorTranslating))
	require.Equal(t, "someUnknownKey", Message("someUnknownKey"))
}

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	b.Show(KeyAILimitReached, Warning)

	got := <-a
	require.Equal(t, KeyAILimitReached, got.Key)
	require.Equal(t, Warning, got.Severity)
	require.NotEmpty(t, got.Message)
	require.Equal(t, got.Key, (<-c).Key)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < busBuffer+5; i++ {
		b.Show(KeyErrorTranslating, Error)
	}
	require.Len(t, ch, busBuffer)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	cancel()
	_, open := <-ch
	require.False(t, open)
	b.Show(KeyFilterFailed, Error)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var n Notifier = &r
	n.Show(KeyErrorTranslatingTitle, Error)
	require.Equal(t, []Toast{{Key: KeyErrorTranslatingTitle, Severity: Error, Message: "Could not translate title"}}, r.Toasts())
}
