package chatclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedSender fails a configurable number of times before succeeding.
type scriptedSender struct {
	failures int
	calls    int
	nextID   uint
}

func (s *scriptedSender) Send(ctx context.Context, draft Draft) (Ack, error) {
	s.calls++
	if s.calls <= s.failures {
		return Ack{}, errors.New("network unreachable")
	}
	s.nextID++
	return Ack{RemoteID: s.nextID, CreatedAt: time.Now()}, nil
}

func TestOutboxSubmitSuccess(t *testing.T) {
	sender := &scriptedSender{}
	outbox := NewOutbox(sender, time.Second)

	message := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "hola"})
	require.Equal(t, StatusSent, message.Status)
	require.NotZero(t, message.RemoteID)
	require.Empty(t, message.Error)
}

func TestOutboxFailedSendThenRetry(t *testing.T) {
	sender := &scriptedSender{failures: 1}
	outbox := NewOutbox(sender, time.Second)

	message := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "hola"})
	require.Equal(t, StatusFailed, message.Status)
	require.NotEmpty(t, message.Error)

	retried, err := outbox.Retry(context.Background(), message.LocalID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, retried.Status)
	require.Empty(t, retried.Error)
	require.Equal(t, 2, sender.calls)
}

func TestOutboxRetryOnlyFromFailed(t *testing.T) {
	sender := &scriptedSender{}
	outbox := NewOutbox(sender, time.Second)

	message := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "hola"})
	require.Equal(t, StatusSent, message.Status)

	_, err := outbox.Retry(context.Background(), message.LocalID)
	require.ErrorIs(t, err, ErrNotRetryable)

	_, err = outbox.Retry(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownMessage)
}

func TestOutboxMergeDropsAcknowledged(t *testing.T) {
	sender := &scriptedSender{}
	outbox := NewOutbox(sender, time.Second)

	first := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "uno"})
	second := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "dos"})
	other := outbox.Submit(context.Background(), Draft{ThreadID: 2, Text: "ajeno"})

	// Server only reflects the first message so far.
	remaining := outbox.Merge(1, []uint{first.RemoteID})
	require.Len(t, remaining, 1)
	require.Equal(t, second.LocalID, remaining[0].LocalID)

	// The other thread's entry is untouched.
	require.Len(t, outbox.Snapshot(2), 1)
	require.Equal(t, other.LocalID, outbox.Snapshot(2)[0].LocalID)
}

func TestOutboxExpireStale(t *testing.T) {
	// A sender that never returns an ack path is not needed here; the entry
	// is forced into sending and aged past the timeout by hand.
	outbox := NewOutbox(&scriptedSender{}, time.Second)

	outbox.mu.Lock()
	outbox.pending["stuck"] = &Message{
		LocalID:     "stuck",
		ThreadID:    1,
		Text:        "lost",
		Status:      StatusSending,
		SubmittedAt: time.Now().Add(-time.Minute),
	}
	outbox.mu.Unlock()

	expired := outbox.ExpireStale()
	require.Len(t, expired, 1)
	require.Equal(t, StatusFailed, expired[0].Status)
	require.Equal(t, "send timed out", expired[0].Error)

	// Expiry is idempotent.
	require.Empty(t, outbox.ExpireStale())
}

func TestOutboxDiscard(t *testing.T) {
	sender := &scriptedSender{failures: 1}
	outbox := NewOutbox(sender, time.Second)

	message := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "hola"})
	require.Equal(t, StatusFailed, message.Status)

	require.NoError(t, outbox.Discard(message.LocalID))
	require.Empty(t, outbox.Snapshot(1))
	require.ErrorIs(t, outbox.Discard(message.LocalID), ErrUnknownMessage)
}

func TestOutboxSnapshotOrdering(t *testing.T) {
	sender := &scriptedSender{failures: 10}
	outbox := NewOutbox(sender, time.Second)
	outbox.now = func() time.Time { return time.Unix(100, 0) }

	first := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "uno"})
	outbox.now = func() time.Time { return time.Unix(200, 0) }
	second := outbox.Submit(context.Background(), Draft{ThreadID: 1, Text: "dos"})

	entries := outbox.Snapshot(1)
	require.Len(t, entries, 2)
	require.Equal(t, first.LocalID, entries[0].LocalID)
	require.Equal(t, second.LocalID, entries[1].LocalID)
}
