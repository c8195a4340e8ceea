package validator

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	defaultExtension = ".pdf"
	// maxFilenameBytes keeps the stored name below common filesystem limits.
	maxFilenameBytes = 200
)

// SanitizeUploadFilename turns a client supplied filename hint into a single
// path component that is safe to join with the uploads directory.
// Directory components are stripped for both '/' and '\' separators,
// control characters are dropped and a ".pdf" extension is added when the
// name has none. Unusable names fall back to upload-<unix-millis>.pdf.
func SanitizeUploadFilename(raw string, now time.Time) string {
	name := raw
	if decoded, err := url.PathUnescape(raw); err == nil {
		name = decoded
	}

	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		name = fmt.Sprintf("upload-%d%s", now.UnixMilli(), defaultExtension)
	}

	if filepath.Ext(name) == "" {
		name += defaultExtension
	}

	return truncateFilename(name)
}

// truncateFilename shortens the stem so the whole name fits maxFilenameBytes,
// keeping the extension and never splitting a rune.
func truncateFilename(name string) string {
	if len(name) <= maxFilenameBytes {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) > maxFilenameBytes/2 {
		ext = defaultExtension
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	limit := maxFilenameBytes - len(ext)
	for len(stem) > limit {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}

	return stem + ext
}

// PublicPath returns the URL path under which a stored file is served.
func PublicPath(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + url.PathEscape(name)
}
