package formats

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/mnbots/mnbot/types"
)

const (
	CategoryImage    = "image"
	CategoryAudio    = "audio"
	CategoryVideo    = "video"
	CategoryDocument = "document"
)

var extToCategory = map[string]string{
	"png": CategoryImage, "jpg": CategoryImage, "jpeg": CategoryImage,
	"webp": CategoryImage, "bmp": CategoryImage,

	"mp3": CategoryAudio, "ogg": CategoryAudio, "opus": CategoryAudio, "wav": CategoryAudio,
	"flac": CategoryAudio, "m4a": CategoryAudio, "aac": CategoryAudio,

	"mp4": CategoryVideo, "avi": CategoryVideo, "mkv": CategoryVideo,
	"webm": CategoryVideo, "mov": CategoryVideo, "m4v": CategoryVideo,

	"pdf": CategoryDocument, "txt": CategoryDocument, "zip": CategoryDocument,
}

// CombineTypes lists the extensions /combine accepts, in display order.
var CombineTypes = []string{".mp4", ".mp3", ".pdf"}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// GetCategoryByExtension returns "" for unknown extensions.
func GetCategoryByExtension(ext string) string {
	return extToCategory[normalize(ext)]
}

func IsVideo(ext string) bool { return GetCategoryByExtension(ext) == CategoryVideo }
func IsAudio(ext string) bool { return GetCategoryByExtension(ext) == CategoryAudio }
func IsImage(ext string) bool { return GetCategoryByExtension(ext) == CategoryImage }

func IsCombineType(ext string) bool {
	ext = "." + normalize(ext)
	for _, t := range CombineTypes {
		if t == ext {
			return true
		}
	}
	return false
}

// Extension picks a lower-case extension with a leading dot for a file,
// falling back to its MIME type and then to its kind.
func Extension(f types.FileRef) string {
	if ext := strings.ToLower(filepath.Ext(f.FileName)); ext != "" {
		return ext
	}
	if f.MimeType != "" {
		if exts, err := mime.ExtensionsByType(f.MimeType); err == nil && len(exts) > 0 {
			for _, e := range exts {
				if GetCategoryByExtension(e) != "" {
					return e
				}
			}
			return exts[0]
		}
	}
	switch f.Kind {
	case types.KindVideo:
		return ".mp4"
	case types.KindAudio:
		return ".mp3"
	case types.KindPhoto:
		return ".jpg"
	}
	return ""
}

// UploadKind maps a file onto the Telegram method used to send it back.
func UploadKind(f types.FileRef) types.FileKind {
	switch f.Kind {
	case types.KindVideo, types.KindAudio:
		return f.Kind
	}
	return types.KindDocument
}
