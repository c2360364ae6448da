// Package storage keeps user uploaded files (avatars) on disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

var ErrInvalidName = errors.New("invalid file name")

type Upload struct {
	// Filename is the client supplied name; only its base and extension are kept.
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Provider interface {
	Save(ctx context.Context, up Upload) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// StoredName prefixes the sanitized client filename with 20 random hex chars.
func StoredName(filename string) (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + "-" + sanitize(filename), nil
}

func sanitize(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	out := strings.TrimLeft(sb.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func validName(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".")
}

func contentType(up Upload) string {
	if up.ContentType != "" {
		return up.ContentType
	}
	if t := mime.TypeByExtension(filepath.Ext(up.Filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
