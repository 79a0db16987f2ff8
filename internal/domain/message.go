package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// AttachmentKind tags the payload carried alongside a message.
type AttachmentKind string

const (
	AttachmentText  AttachmentKind = "text"
	AttachmentImage AttachmentKind = "image"
	AttachmentPDF   AttachmentKind = "pdf"
)

// Attachment is a user-provided file or image accompanying a message.
// Content is either raw text (AttachmentText) or a data-URL-encoded
// binary payload (AttachmentImage, AttachmentPDF).
type Attachment struct {
	Name    string
	Kind    AttachmentKind
	Content string
}

// IsDocument reports whether the attachment routes through the
// file-processing path (text or PDF, never images).
func (a *Attachment) IsDocument() bool {
	return a != nil && (a.Kind == AttachmentText || a.Kind == AttachmentPDF)
}

// Payload returns the attachment content as raw bytes plus its MIME type.
// Data-URL payloads are decoded back to binary; raw text passes through
// as text/plain.
func (a *Attachment) Payload() ([]byte, string, error) {
	if strings.HasPrefix(a.Content, "data:") {
		return decodeDataURL(a.Content)
	}
	return []byte(a.Content), "text/plain", nil
}

// OutgoingMessage is one user submission handed to the router. It is
// constructed per submission and consumed exactly once.
type OutgoingMessage struct {
	Text         string
	LanguageCode string
	Attachment   *Attachment
}

// SimplifiedResult is the normalized outcome of a routed request.
// AudioRef is either a remote URL or a data:audio/... URI; consumers
// must accept both. Immutable once returned.
type SimplifiedResult struct {
	Text     string
	AudioRef string
}

// AudioData returns the embedded audio bytes when AudioRef is a data URL.
// Remote URLs return ok=false; callers fetch or link those themselves.
func (r *SimplifiedResult) AudioData() (data []byte, ok bool) {
	if !strings.HasPrefix(r.AudioRef, "data:") {
		return nil, false
	}
	b, _, err := decodeDataURL(r.AudioRef)
	if err != nil {
		return nil, false
	}
	return b, true
}

// AudioDataURL wraps base64-encoded MP3 audio in a data URL.
func AudioDataURL(audioBase64 string) string {
	return "data:audio/mp3;base64," + audioBase64
}

// BinaryDataURL encodes raw bytes as a base64 data URL with the given
// MIME type, the transport form attachments use for binary payloads.
func BinaryDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func decodeDataURL(u string) ([]byte, string, error) {
	rest := strings.TrimPrefix(u, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("malformed data URL: no comma separator")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	mime := meta
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		mime = meta[:semi]
	}
	if mime == "" {
		mime = "text/plain"
	}
	if !strings.Contains(meta, "base64") {
		return []byte(payload), mime, nil
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL payload: %w", err)
	}
	return b, mime, nil
}
