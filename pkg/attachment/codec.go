// Package attachment encodes chat media as self-describing data-URL payloads
// stored inline with the message record, and infers the message kind from the
// declared MIME type. There is no separate blob store; the size ceiling is the
// safety valve.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the hard ceiling for a single attachment payload.
const MaxSize = 25 << 20 // 25 MiB

const (
	dataURLPrefix    = "data:"
	base64Marker     = ";base64,"
	fallbackMIMEType = "application/octet-stream"
)

var (
	// ErrEmpty indicates an attachment with no payload bytes.
	ErrEmpty = errors.New("attachment payload is empty")
	// ErrTooLarge indicates a payload above the 25 MiB ceiling.
	ErrTooLarge = errors.New("attachment exceeds the 25 MiB limit")
	// ErrMalformed indicates a payload whose embedded metadata cannot be parsed.
	ErrMalformed = errors.New("attachment payload is malformed")
)

// Attachment is the inline media value carried by a chat message. It has no
// lifecycle of its own.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	DataURL  string `json:"dataUrl"`
}

// Validate checks the attachment before the payload is accepted for a
// message. Ordering mirrors the API contract: presence first, then bounds.
// The ceiling is enforced against the base64 body itself, not the declared
// Size field, and the two must agree.
func (a Attachment) Validate() error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.MimeType) == "" || a.DataURL == "" {
		return ErrMalformed
	}
	if a.Size <= 0 {
		return ErrEmpty
	}
	if a.Size > MaxSize {
		return ErrTooLarge
	}

	payload, err := payloadSize(a.DataURL)
	if err != nil {
		return err
	}
	if payload > MaxSize {
		return ErrTooLarge
	}
	if payload != a.Size {
		return ErrMalformed
	}
	return nil
}

// payloadSize derives the decoded byte count from the base64 body by length
// arithmetic, without decoding it.
func payloadSize(dataURL string) (int64, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return 0, ErrMalformed
	}
	marker := strings.Index(dataURL, base64Marker)
	if marker < 0 {
		return 0, ErrMalformed
	}

	body := dataURL[marker+len(base64Marker):]
	n := int64(len(body))
	if n == 0 {
		return 0, ErrEmpty
	}
	if n%4 != 0 {
		return 0, ErrMalformed
	}

	var padding int64
	for i := len(body) - 1; i >= 0 && body[i] == '='; i-- {
		padding++
	}
	return n/4*3 - padding, nil
}

// Kind reports the message kind implied by the declared MIME type.
func (a Attachment) Kind() string {
	return KindForMIME(a.MimeType)
}

// KindForMIME maps a MIME type onto one of the four attachment kinds.
// Anything that is not image, video or audio is treated as a document.
func KindForMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "document"
	}
}

// Encode converts raw captured bytes into a transportable data-URL payload.
func Encode(raw []byte, declaredMIME string) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmpty
	}
	if int64(len(raw)) > MaxSize {
		return "", ErrTooLarge
	}

	mime := strings.TrimSpace(declaredMIME)
	if mime == "" {
		mime = fallbackMIMEType
	}

	return fmt.Sprintf("%s%s%s%s", dataURLPrefix, mime, base64Marker, base64.StdEncoding.EncodeToString(raw)), nil
}

// Decode is the inverse of Encode, used for local preview and playback. When
// the embedded MIME type is absent or the generic fallback, it makes exactly
// one reconstruction attempt by re-labelling the payload with the sniffed
// type. A concretely declared type is trusted as-is; sniffing is a content
// heuristic and would re-label legitimate text-like payloads. Beyond that a
// broken payload is reported as malformed, never repaired.
func Decode(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, "", ErrMalformed
	}

	marker := strings.Index(dataURL, base64Marker)
	if marker < 0 {
		return nil, "", ErrMalformed
	}

	embedded := strings.TrimSpace(dataURL[len(dataURLPrefix):marker])
	raw, err := base64.StdEncoding.DecodeString(dataURL[marker+len(base64Marker):])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return nil, "", ErrEmpty
	}

	if embedded == "" || embedded == fallbackMIMEType {
		if sniffed := mimetype.Detect(raw); sniffed != nil {
			return raw, sniffed.String(), nil
		}
	}

	return raw, embedded, nil
}

// New builds a validated attachment value from raw captured bytes.
func New(name string, raw []byte, declaredMIME string) (Attachment, error) {
	dataURL, err := Encode(raw, declaredMIME)
	if err != nil {
		return Attachment{}, err
	}

	mime := strings.TrimSpace(declaredMIME)
	if mime == "" {
		mime = fallbackMIMEType
	}

	out := Attachment{
		Name:     name,
		MimeType: mime,
		Size:     int64(len(raw)),
		DataURL:  dataURL,
	}
	if err := out.Validate(); err != nil {
		return Attachment{}, err
	}
	return out, nil
}
