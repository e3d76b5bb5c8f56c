package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QRSession is a short-lived handoff token. Scanning the QR code on another
// device resolves the session once and opens the referenced conversation.
type QRSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ThreadID  uint      `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QRLinkService issues and resolves QR handoff sessions.
type QRLinkService interface {
	Create(actor Identity, threadID uint) QRSession
	Resolve(id string) (QRSession, error)
	Start(ctx context.Context)
}

type qrLinkService struct {
	mu       sync.Mutex
	sessions map[string]QRSession
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewQRLinkService constructs the in-memory session store.
func NewQRLinkService(ttl time.Duration, logger zerolog.Logger) QRLinkService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &qrLinkService{
		sessions: make(map[string]QRSession),
		ttl:      ttl,
		logger:   logger.With().Str("component", "qrlink_service").Logger(),
		now:      time.Now,
	}
}

// Start runs the expiry sweep until the context is cancelled.
func (s *qrLinkService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *qrLinkService) Create(actor Identity, threadID uint) QRSession {
	now := s.now().UTC()
	session := QRSession{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		ThreadID:  threadID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Resolve is one-shot: a session is removed on first use so a leaked QR code
// cannot be replayed.
func (s *qrLinkService) Resolve(id string) (QRSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return QRSession{}, ErrSessionNotFound
	}
	delete(s.sessions, id)

	if s.now().UTC().After(session.ExpiresAt) {
		return QRSession{}, ErrSessionNotFound
	}

	return session, nil
}

func (s *qrLinkService) sweep() {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug().Int("expired", removed).Msg("qr sessions swept")
	}
}
