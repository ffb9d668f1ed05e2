package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// IsZero reports whether the ref points at no message.
func (r MessageRef) IsZero() bool { return r.MessageID == 0 }

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the outbound chat-platform surface used by the core.
//
// Implementations must be safe for concurrent use: the webhook handler and
// the background loops all send through the same adapter.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error

	// DeleteMessage removes a previously sent message. Deleting a message
	// that is already gone is not an error for the caller.
	DeleteMessage(ctx context.Context, ref MessageRef) error
}
