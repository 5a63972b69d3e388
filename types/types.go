package types

import (
	"context"
	"time"
)

// Recipient is a conversation the broadcast engine may deliver to.
type Recipient struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecipientStore keeps at most one record per recipient ID. Delete is the only
// way a recipient leaves future broadcasts.
type RecipientStore interface {
	Upsert(ctx context.Context, r Recipient) error
	Delete(ctx context.Context, id int64) error
	ScanAll(ctx context.Context) ([]Recipient, error)
	Count(ctx context.Context) (int, error)
}

// FileRef points at a Telegram attachment that has not been downloaded yet.
type FileRef struct {
	FileID   string   `json:"file_id"`
	FileName string   `json:"file_name,omitempty"`
	FileSize int64    `json:"file_size,omitempty"`
	MimeType string   `json:"mime_type,omitempty"`
	Kind     FileKind `json:"kind"`
	Duration int      `json:"duration,omitempty"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
}
