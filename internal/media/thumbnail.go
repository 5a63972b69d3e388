package media

import (
	"context"
	"errors"

	"github.com/mnbots/mnbot/internal/ffmpeg"
	"github.com/mnbots/mnbot/internal/messages"
	"github.com/mnbots/mnbot/types"
)

// ThumbnailPlugin attaches a cover image to a video without re-encoding and
// stamps title and comment metadata.
type ThumbnailPlugin struct {
	CoverURL string
	Tag      string
}

func (p ThumbnailPlugin) Name() string           { return "thumbnail" }
func (p ThumbnailPlugin) RequiredStream() string { return "video" }

func (p ThumbnailPlugin) Auxiliary(Request) []AuxAsset {
	return []AuxAsset{{Name: "thumbnail", URL: p.CoverURL, FileName: "thumbnail.jpg"}}
}

func (p ThumbnailPlugin) Transform(ctx context.Context, env *Env) (*Output, error) {
	cover, ok := env.Assets["thumbnail"]
	if !ok {
		return nil, &AuxiliaryFetchError{Asset: "thumbnail", Err: errors.New("not downloaded")}
	}
	title := baseTitle(env.Req.Files[0], "video")
	name := "edited_" + title + ".mp4"
	out := env.Job.Path(name)

	if err := env.Encoder.Run(ctx, ThumbnailSpec(env.Sources[0], cover, out, title, p.Tag)); err != nil {
		return nil, err
	}
	return &Output{
		Path:     out,
		FileName: name,
		Kind:     types.KindVideo,
		Caption:  messages.ThumbnailCaption(p.Tag, title),
	}, nil
}

// ThumbnailSpec copies every stream of src, adds cover as an attached picture
// and writes title and comment metadata.
func ThumbnailSpec(src, cover, out, title, tag string) ffmpeg.Spec {
	return ffmpeg.Spec{
		Inputs: []ffmpeg.Input{{Path: src}, {Path: cover}},
		Output: out,
		Maps:   []string{"0:v", "0:a?", "1:v"},
		Codec:  "copy",
		Metadata: []ffmpeg.Metadata{
			{Key: "title", Value: tag + " " + title},
			{Key: "comment", Value: tag + " - Edited by MN Bots"},
			{Stream: "s:v:0", Key: "title", Value: tag + " Video"},
			{Stream: "s:v:1", Key: "title", Value: tag + " Thumbnail"},
		},
		Extra: []string{"-disposition:v:1", "attached_pic", "-movflags", "faststart"},
	}
}
