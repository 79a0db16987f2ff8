package domain

import "context"

// InlinePart is a binary payload attached inline to a session prompt,
// typically an image decoded from a data URL.
type InlinePart struct {
	MIMEType string
	Data     []byte
}

// Session is the AI session capability: prompt in, text out, with
// conversational memory preserved across calls. Availability is gated on
// a credential configured at startup.
type Session interface {
	Send(ctx context.Context, prompt string, parts ...InlinePart) (string, error)
}

// Generator is a stateless one-shot text generation capability. The
// translation layer uses it so translation requests never pollute the
// conversational session.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
