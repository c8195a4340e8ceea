package validator

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finestate/hub-backend/internal/entity"
)

var fixedNow = time.UnixMilli(1700000000123)

func TestSanitizeUploadFilename(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"keeps case of extension", "Q3 Report.PDF", "Q3 Report.PDF"},
		{"percent encoded", "Q3%20Report.pdf", "Q3 Report.pdf"},
		{"unix traversal", "../../etc/passwd", "passwd.pdf"},
		{"encoded traversal", "..%2F..%2Fetc%2Fpasswd", "passwd.pdf"},
		{"windows traversal", `..\..\windows\win.ini`, "win.ini"},
		{"windows absolute", `C:\Users\me\lease.pdf`, "lease.pdf"},
		{"control characters", "lea\x00se\n.pdf", "lease.pdf"},
		{"encoded control characters", "lea%00se.pdf", "lease.pdf"},
		{"no extension", "brochure", "brochure.pdf"},
		{"other extension kept", "notes.txt", "notes.txt"},
		{"invalid escape kept raw", "100%.pdf", "100%.pdf"},
		{"empty", "", "upload-1700000000123.pdf"},
		{"dot dot", "..", "upload-1700000000123.pdf"},
		{"encoded dot dot", "%2e%2e", "upload-1700000000123.pdf"},
		{"trailing separator", "../", "upload-1700000000123.pdf"},
		{"only slash", "/", "upload-1700000000123.pdf"},
		{"whitespace", "   ", "upload-1700000000123.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeUploadFilename(tt.raw, fixedNow))
		})
	}
}

func TestSanitizeUploadFilenameTruncatesLongNames(t *testing.T) {
	name := SanitizeUploadFilename(strings.Repeat("é", 300)+".pdf", fixedNow)

	assert.LessOrEqual(t, len(name), maxFilenameBytes)
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.True(t, strings.HasPrefix(name, "é"))
}

func TestSanitizedNameStaysInsideUploadsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	pieces := []string{"..", "/", `\`, "%2e%2e", "%2F", "%5C", ".", "a", "b.pdf", "", "\x00", "é", "%", " "}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		var sb strings.Builder
		for j := rng.Intn(8); j >= 0; j-- {
			sb.WriteString(pieces[rng.Intn(len(pieces))])
		}
		raw := sb.String()

		name := SanitizeUploadFilename(raw, fixedNow)
		joined := filepath.Join(dir, name)

		require.Equal(t, dir, filepath.Dir(joined), "raw %q sanitized to %q", raw, name)
		require.NotContains(t, name, "/", "raw %q", raw)
		require.NotEmpty(t, filepath.Ext(name), "raw %q", raw)
	}
}

func TestPublicPath(t *testing.T) {
	assert.Equal(t, "/uploads/passwd.pdf", PublicPath("/uploads", "passwd.pdf"))
	assert.Equal(t, "/uploads/Q3%20Report.pdf", PublicPath("/uploads/", "Q3 Report.pdf"))
	assert.Equal(t, "/uploads/100%25.pdf", PublicPath("/uploads", "100%.pdf"))
}

func TestValidateSendMessage(t *testing.T) {
	assert.ErrorIs(t, ValidateSendMessage(&entity.SendMessageRequest{Message: "  "}), entity.ErrEmptyMessage)
	assert.NoError(t, ValidateSendMessage(&entity.SendMessageRequest{Message: "hi"}))
	assert.NoError(t, ValidateSendMessage(&entity.SendMessageRequest{
		Files: []entity.FileSelection{{Filename: "a.pdf", Text: "x"}},
	}))
	assert.ErrorIs(t, ValidateSendMessage(&entity.SendMessageRequest{
		Files: []entity.FileSelection{{Filename: " "}},
	}), entity.ErrMissingField)
}

func TestValidatePDFPath(t *testing.T) {
	assert.ErrorIs(t, ValidatePDFPath(""), entity.ErrMissingField)
	assert.ErrorIs(t, ValidatePDFPath("photo.png"), entity.ErrInvalidFormat)
	assert.NoError(t, ValidatePDFPath("/tmp/Report.PDF"))
}
