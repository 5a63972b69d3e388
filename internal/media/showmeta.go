package media

import (
	"context"
	"strconv"
	"strings"

	"github.com/mnbots/mnbot/internal/messages"
)

// ShowMetadataPlugin replies with container tags and basic stream facts.
type ShowMetadataPlugin struct{}

func (ShowMetadataPlugin) Name() string                 { return "showmetadata" }
func (ShowMetadataPlugin) RequiredStream() string       { return "" }
func (ShowMetadataPlugin) Auxiliary(Request) []AuxAsset { return nil }

func (ShowMetadataPlugin) Transform(ctx context.Context, env *Env) (*Output, error) {
	probe, err := env.Encoder.Probe(ctx, env.Sources[0])
	if err != nil {
		// Not a media container; there is nothing to show.
		return &Output{Text: messages.Metadata(nil)}, nil
	}

	tags := map[string]string{}
	for k, v := range probe.Format.Tags {
		if v = strings.TrimSpace(v); v != "" {
			tags[strings.ToLower(k)] = v
		}
	}
	if d := probe.DurationSeconds(); d > 0 {
		tags["duration"] = formatDuration(d)
	}
	if probe.Format.FormatName != "" {
		tags["format"] = probe.Format.FormatName
	}
	if br, err := strconv.Atoi(probe.Format.BitRate); err == nil && br > 0 {
		tags["bit rate"] = strconv.Itoa(br/1000) + " kb/s"
	}
	if v, ok := probe.FirstVideo(); ok {
		tags["width"] = strconv.Itoa(v.Width)
		tags["height"] = strconv.Itoa(v.Height)
		if v.CodecName != "" {
			tags["video codec"] = v.CodecName
		}
	}
	for _, s := range probe.Streams {
		if s.CodecType == "audio" && s.CodecName != "" {
			tags["audio codec"] = s.CodecName
			break
		}
	}
	return &Output{Text: messages.Metadata(tags)}, nil
}

func formatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return strconv.Itoa(m) + ":" + pad2(s)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
