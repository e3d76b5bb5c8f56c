// Package chatclient implements the client side of message delivery: an
// outbox that tracks optimistic sends through the sending, sent, read and
// failed states, and a poller that refreshes conversation state while the
// chat view is visible.
package chatclient

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-capital/market-api/pkg/attachment"
)

// Local delivery states. They mirror the server's message states with the
// addition of "sending", which only ever exists in the outbox.
const (
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusRead    = "read"
	StatusFailed  = "failed"
)

var (
	// ErrUnknownMessage is returned when the referenced local id is not in
	// the outbox.
	ErrUnknownMessage = errors.New("unknown outbox message")
	// ErrNotRetryable is returned when retrying a message that is not in the
	// failed state. Only failed messages may re-enter sending.
	ErrNotRetryable = errors.New("message is not in a retryable state")
)

// Draft is the content of a message before it is handed to the outbox.
type Draft struct {
	ThreadID   uint
	Text       string
	Attachment *attachment.Attachment
}

// Message is one outbox entry. LocalID identifies it until the server
// acknowledges the send and assigns RemoteID.
type Message struct {
	LocalID     string
	RemoteID    uint
	ThreadID    uint
	Text        string
	Attachment  *attachment.Attachment
	Status      string
	Error       string
	SubmittedAt time.Time
}

// Ack is the server's acknowledgement of a delivered message.
type Ack struct {
	RemoteID  uint
	CreatedAt time.Time
}

// Sender delivers a draft to the server. Implementations wrap the HTTP call.
type Sender interface {
	Send(ctx context.Context, draft Draft) (Ack, error)
}

// Outbox tracks in-flight and failed sends. A message enters as sending,
// moves to sent on acknowledgement or failed on error, and failed messages
// can re-enter sending through Retry. No other transition is possible.
type Outbox struct {
	mu          sync.Mutex
	sender      Sender
	sendTimeout time.Duration
	pending     map[string]*Message
	now         func() time.Time
}

// NewOutbox constructs an outbox around the given sender.
func NewOutbox(sender Sender, sendTimeout time.Duration) *Outbox {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}

	return &Outbox{
		sender:      sender,
		sendTimeout: sendTimeout,
		pending:     map[string]*Message{},
		now:         time.Now,
	}
}

// Submit registers the draft and attempts delivery. The returned message is
// the entry's state after the attempt: sent with the server id on success,
// failed with the error text otherwise. The entry stays in the outbox either
// way until Merge or Discard removes it.
func (o *Outbox) Submit(ctx context.Context, draft Draft) Message {
	entry := &Message{
		LocalID:     uuid.NewString(),
		ThreadID:    draft.ThreadID,
		Text:        draft.Text,
		Attachment:  draft.Attachment,
		Status:      StatusSending,
		SubmittedAt: o.now(),
	}

	o.mu.Lock()
	o.pending[entry.LocalID] = entry
	o.mu.Unlock()

	o.deliver(ctx, entry.LocalID)

	return o.snapshotOne(entry.LocalID)
}

// Retry re-attempts a failed message. The content is resent as-is; the
// server treats it as a fresh message.
func (o *Outbox) Retry(ctx context.Context, localID string) (Message, error) {
	o.mu.Lock()
	entry, ok := o.pending[localID]
	if !ok {
		o.mu.Unlock()
		return Message{}, ErrUnknownMessage
	}
	if entry.Status != StatusFailed {
		o.mu.Unlock()
		return Message{}, ErrNotRetryable
	}

	entry.Status = StatusSending
	entry.Error = ""
	entry.SubmittedAt = o.now()
	o.mu.Unlock()

	o.deliver(ctx, localID)

	return o.snapshotOne(localID), nil
}

func (o *Outbox) deliver(ctx context.Context, localID string) {
	o.mu.Lock()
	entry, ok := o.pending[localID]
	if !ok || entry.Status != StatusSending {
		o.mu.Unlock()
		return
	}
	draft := Draft{ThreadID: entry.ThreadID, Text: entry.Text, Attachment: entry.Attachment}
	o.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	ack, err := o.sender.Send(sendCtx, draft)

	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok = o.pending[localID]
	if !ok || entry.Status != StatusSending {
		return
	}

	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		return
	}

	entry.Status = StatusSent
	entry.RemoteID = ack.RemoteID
}

// ExpireStale fails any message stuck in sending longer than the send
// timeout. Covers attempts orphaned by a crash mid-send.
func (o *Outbox) ExpireStale() []Message {
	cutoff := o.now().Add(-o.sendTimeout)

	o.mu.Lock()
	defer o.mu.Unlock()

	expired := make([]Message, 0)
	for _, entry := range o.pending {
		if entry.Status == StatusSending && entry.SubmittedAt.Before(cutoff) {
			entry.Status = StatusFailed
			entry.Error = "send timed out"
			expired = append(expired, *entry)
		}
	}
	return expired
}

// Merge reconciles the outbox against the server's view of a thread. Entries
// acknowledged by the server are dropped locally; what remains are in-flight
// and failed sends that the caller renders after the server messages.
func (o *Outbox) Merge(threadID uint, remoteIDs []uint) []Message {
	remote := make(map[uint]struct{}, len(remoteIDs))
	for _, id := range remoteIDs {
		remote[id] = struct{}{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for localID, entry := range o.pending {
		if entry.ThreadID != threadID || entry.Status != StatusSent {
			continue
		}
		if _, ok := remote[entry.RemoteID]; ok {
			delete(o.pending, localID)
		}
	}

	return o.snapshotThreadLocked(threadID)
}

// Discard drops an entry, typically a failed send the user gave up on.
func (o *Outbox) Discard(localID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.pending[localID]; !ok {
		return ErrUnknownMessage
	}
	delete(o.pending, localID)
	return nil
}

// Snapshot returns the outbox entries for a thread in submission order.
func (o *Outbox) Snapshot(threadID uint) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotThreadLocked(threadID)
}

func (o *Outbox) snapshotThreadLocked(threadID uint) []Message {
	entries := make([]Message, 0)
	for _, entry := range o.pending {
		if entry.ThreadID == threadID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SubmittedAt.Equal(entries[j].SubmittedAt) {
			return entries[i].LocalID < entries[j].LocalID
		}
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries
}

func (o *Outbox) snapshotOne(localID string) Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	if entry, ok := o.pending[localID]; ok {
		return *entry
	}
	return Message{}
}
