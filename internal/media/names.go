package media

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mnbots/mnbot/types"
)

const maxNameRunes = 64

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// CleanFilename drops characters that are invalid in file names and limits
// the length to 64 runes.
func CleanFilename(name string) string {
	cleaned := strings.TrimSpace(invalidNameChars.ReplaceAllString(name, ""))
	if utf8.RuneCountInString(cleaned) > maxNameRunes {
		cleaned = string([]rune(cleaned)[:maxNameRunes])
	}
	return cleaned
}

// FinalName applies the user's prefix and suffix around a cleaned base name.
func FinalName(s types.Settings, base, ext string) string {
	return s.Prefix + CleanFilename(base) + s.Suffix + ext
}

func baseTitle(f types.FileRef, fallback string) string {
	name := strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName))
	if name = CleanFilename(name); name != "" {
		return name
	}
	return fallback
}
