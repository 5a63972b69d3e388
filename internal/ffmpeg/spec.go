// Package ffmpeg builds declarative ffmpeg invocations and runs them.
package ffmpeg

import "strings"

// Input is one -i source. Options are placed before its -i flag.
type Input struct {
	Path    string
	Options []string
}

// Metadata is a -metadata directive. Stream selects a stream specifier such
// as "s:v:0"; empty means global metadata.
type Metadata struct {
	Stream string
	Key    string
	Value  string
}

// Spec describes a single ffmpeg run.
type Spec struct {
	Inputs        []Input
	Output        string
	FilterComplex string
	VideoFilter   string
	Maps          []string
	// Codec applies to every stream (-c). VideoCodec and AudioCodec override it.
	Codec      string
	VideoCodec string
	AudioCodec string
	Metadata   []Metadata
	Extra      []string
}

// Args renders the argument list. The output is always overwritten.
func (s Spec) Args() []string {
	args := []string{"-hide_banner", "-y"}
	for _, in := range s.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if s.FilterComplex != "" {
		args = append(args, "-filter_complex", s.FilterComplex)
	}
	if s.VideoFilter != "" {
		args = append(args, "-vf", s.VideoFilter)
	}
	for _, m := range s.Maps {
		args = append(args, "-map", m)
	}
	if s.Codec != "" {
		args = append(args, "-c", s.Codec)
	}
	if s.VideoCodec != "" {
		args = append(args, "-c:v", s.VideoCodec)
	}
	if s.AudioCodec != "" {
		args = append(args, "-c:a", s.AudioCodec)
	}
	for _, m := range s.Metadata {
		flag := "-metadata"
		if m.Stream != "" {
			flag += ":" + m.Stream
		}
		args = append(args, flag, m.Key+"="+m.Value)
	}
	args = append(args, s.Extra...)
	args = append(args, s.Output)
	return args
}

// EscapeFilterValue escapes v for use as an unquoted option value inside a
// -vf or -filter_complex graph. Both the option and the graph level are
// escaped.
func EscapeFilterValue(v string) string {
	option := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`).Replace(v)
	return strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	).Replace(option)
}
