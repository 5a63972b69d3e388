package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/mnbots/mnbot/types"
)

// FileRefs lists the attachments of msg. Photos contribute only their largest size.
func FileRefs(msg *models.Message) []types.FileRef {
	if msg == nil {
		return nil
	}
	var files []types.FileRef

	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.FileSize > best.FileSize {
				best = p
			}
		}
		files = append(files, types.FileRef{
			FileID:   best.FileID,
			FileName: "photo.jpg",
			FileSize: int64(best.FileSize),
			MimeType: "image/jpeg",
			Kind:     types.KindPhoto,
			Width:    best.Width,
			Height:   best.Height,
		})
	}
	if v := msg.Video; v != nil {
		files = append(files, types.FileRef{
			FileID:   v.FileID,
			FileName: v.FileName,
			FileSize: int64(v.FileSize),
			MimeType: v.MimeType,
			Kind:     types.KindVideo,
			Duration: v.Duration,
			Width:    v.Width,
			Height:   v.Height,
		})
	}
	if d := msg.Document; d != nil {
		files = append(files, types.FileRef{
			FileID:   d.FileID,
			FileName: d.FileName,
			FileSize: int64(d.FileSize),
			MimeType: d.MimeType,
			Kind:     types.KindDocument,
		})
	}
	if a := msg.Audio; a != nil {
		files = append(files, types.FileRef{
			FileID:   a.FileID,
			FileName: a.FileName,
			FileSize: int64(a.FileSize),
			MimeType: a.MimeType,
			Kind:     types.KindAudio,
			Duration: a.Duration,
		})
	}
	if vn := msg.VideoNote; vn != nil {
		files = append(files, types.FileRef{
			FileID:   vn.FileID,
			FileName: "video_note.mp4",
			FileSize: int64(vn.FileSize),
			Kind:     types.KindVideo,
			Duration: vn.Duration,
			Width:    vn.Length,
			Height:   vn.Length,
		})
	}
	return files
}

// FirstFile returns the first attachment of msg.
func FirstFile(msg *models.Message) (types.FileRef, bool) {
	files := FileRefs(msg)
	if len(files) == 0 {
		return types.FileRef{}, false
	}
	return files[0], true
}
