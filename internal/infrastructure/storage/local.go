// Package storage keeps uploads and generated reports on the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/utils/idgen"
)

// ErrUnsupportedType is returned for content outside the accepted families.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrTooLarge is returned when data exceeds the configured limit.
var ErrTooLarge = errors.New("file too large")

// accepted lists the content type families that may be stored.
var accepted = []string{
	"image/",
	"text/",
	"application/pdf",
	"application/json",
	"application/vnd.openxmlformats-officedocument.",
	"application/msword",
	"application/vnd.ms-excel",
}

// LocalStore writes files under Dir and serves them from BaseURL.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	log      zerolog.Logger
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir, baseURL string, maxBytes int64, log zerolog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("uploads dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		log:      log.With().Str("component", "file-store").Logger(),
	}, nil
}

// Dir returns the directory served under the base URL.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save stores data under a fresh ulid-based name. The content type is sniffed
// when the caller gives none or a generic one.
func (s *LocalStore) Save(ctx context.Context, filename, contentType string, data []byte) (*chat.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), s.maxBytes)
	}

	detected := mimetype.Detect(data)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detected.String()
	}
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if !Accepted(base) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, base)
	}

	clean := SanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(clean))
	if ext == "" {
		ext = detected.Extension()
	}
	name := idgen.New(idgen.PrefixUpload) + ext
	if clean == "" {
		clean = name
	}

	full := filepath.Join(s.dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	s.log.Debug().Str("file", name).Str("content_type", contentType).Int("bytes", len(data)).Msg("file stored")

	return &chat.StoredFile{
		URL:         path.Join(s.baseURL, name),
		Path:        full,
		Filename:    clean,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Accepted reports whether contentType may be stored.
func Accepted(contentType string) bool {
	for _, prefix := range accepted {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// SanitizeFilename keeps the base name and drops characters that are unsafe
// in paths or headers.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`"<>|:*?`, r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var _ chat.FileStore = (*LocalStore)(nil)
