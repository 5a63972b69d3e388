package types

import (
	"context"
	"time"
)

const (
	DefaultWatermarkPosition = "bottom-right"
	DefaultWatermarkOpacity  = 50
	DefaultWatermarkSize     = 20
)

// Settings are per-user options for the rename/watermark/metadata plugins.
type Settings struct {
	Prefix            string    `json:"prefix,omitempty"`
	Suffix            string    `json:"suffix,omitempty"`
	WatermarkText     string    `json:"watermark_text,omitempty"`
	WatermarkPosition string    `json:"watermark_position,omitempty"`
	WatermarkOpacity  int       `json:"watermark_opacity,omitempty"`
	WatermarkSize     int       `json:"watermark_size,omitempty"`
	MetadataTitle     string    `json:"metadata_title,omitempty"`
	MetadataArtist    string    `json:"metadata_artist,omitempty"`
	MetadataAlbum     string    `json:"metadata_album,omitempty"`
	RenameCount       int       `json:"rename_count,omitempty"`
	LastActivity      time.Time `json:"last_activity"`
}

func DefaultSettings() Settings {
	return Settings{
		WatermarkPosition: DefaultWatermarkPosition,
		WatermarkOpacity:  DefaultWatermarkOpacity,
		WatermarkSize:     DefaultWatermarkSize,
	}
}

func (s Settings) HasMetadata() bool {
	return s.MetadataTitle != "" || s.MetadataArtist != "" || s.MetadataAlbum != ""
}

// CombineSession collects files for /finishcombine.
type CombineSession struct {
	FileType  string    `json:"file_type"`
	Files     []FileRef `json:"files"`
	StartedAt time.Time `json:"started_at"`
}

func (c *CombineSession) TotalSize() int64 {
	var total int64
	for _, f := range c.Files {
		total += f.FileSize
	}
	return total
}

type SettingsStore interface {
	GetSettings(ctx context.Context, userID int64) (Settings, error)
	SetSettings(ctx context.Context, userID int64, s Settings) error
	GetCombine(ctx context.Context, userID int64) (*CombineSession, error)
	SetCombine(ctx context.Context, userID int64, c *CombineSession) error
	DeleteCombine(ctx context.Context, userID int64) error
}

// RelayStore remembers which user a forwarded copy in the owner chat came from.
type RelayStore interface {
	Remember(ctx context.Context, ownerMessageID int, userID int64) error
	Lookup(ctx context.Context, ownerMessageID int) (int64, bool, error)
}
