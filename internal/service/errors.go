package service

import "errors"

// Domain errors surfaced to handlers for status mapping.
var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrSelfChat        = errors.New("cannot open a thread with yourself")
	ErrOwnAsset        = errors.New("cannot buy your own asset")
	ErrNotParticipant  = errors.New("user is not a participant of this thread")
	ErrEmptyMessage    = errors.New("message needs text or an attachment")
	ErrUnknownAction   = errors.New("unknown action")
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Identity describes the authenticated caller as extracted from the JWT.
type Identity struct {
	ID   string
	Name string
	Role string
}
