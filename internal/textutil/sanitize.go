package textutil

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// UploadFileName turns a client-supplied file name into a single safe path
// element. Directory components are dropped and names that would resolve
// outside the target directory fall back to fallback.
func UploadFileName(name, fallback string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = SanitizeFileName(filepath.Base(name))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return fallback
	}
	return name
}

// Truncate shortens value to at most limit runes, marking the cut with "…".
func Truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}
