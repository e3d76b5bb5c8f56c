package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQRLinkServiceResolveIsOneShot(t *testing.T) {
	svc := NewQRLinkService(time.Minute, testLogger())

	session := svc.Create(Identity{ID: "buyer-1"}, 7)
	require.NotEmpty(t, session.ID)
	require.Equal(t, uint(7), session.ThreadID)

	resolved, err := svc.Resolve(session.ID)
	require.NoError(t, err)
	require.Equal(t, "buyer-1", resolved.UserID)

	_, err = svc.Resolve(session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestQRLinkServiceExpiry(t *testing.T) {
	svc := NewQRLinkService(time.Minute, testLogger()).(*qrLinkService)

	session := svc.Create(Identity{ID: "buyer-1"}, 7)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := svc.Resolve(session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestQRLinkServiceSweepRemovesExpired(t *testing.T) {
	svc := NewQRLinkService(time.Minute, testLogger()).(*qrLinkService)

	stale := svc.Create(Identity{ID: "buyer-1"}, 1)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	fresh := svc.Create(Identity{ID: "buyer-2"}, 2)

	svc.sweep()

	require.Len(t, svc.sessions, 1)
	_, staleKept := svc.sessions[stale.ID]
	require.False(t, staleKept)
	_, freshKept := svc.sessions[fresh.ID]
	require.True(t, freshKept)
}
