package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/508dev/interview-service/internal/config"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")
var ErrInvalidKey = errors.New("invalid object key")

const (
	PhotoPrefix  = "interviewers"
	ResumePrefix = "resumes"
)

// Object is a stored file. Callers must close Body.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected in configuration.
func New(ctx context.Context, cfg config.Storage) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath)
	case "minio":
		return NewMinioStorage(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// typeExtensions maps sniffed content types to the extension their keys get.
var typeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"application/pdf": ".pdf",
}

// documentExtensions are kept from the client filename when sniffing cannot
// tell the format apart, e.g. .docx detected as application/zip.
var documentExtensions = map[string]bool{
	".doc":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".txt":  true,
}

// NewKey returns a unique key under prefix. The extension follows the sniffed
// content type, never a client supplied one such as .html.
func NewKey(prefix, filename, contentType string) string {
	return prefix + "/" + uuid.NewString() + extensionFor(filename, contentType)
}

func extensionFor(filename, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if ext, ok := typeExtensions[mediaType]; ok {
			return ext
		}
	}
	ext := strings.ToLower(path.Ext(filename))
	if documentExtensions[ext] {
		return ext
	}
	return ""
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

// HasPrefix reports whether key lives under the given prefix directory.
func HasPrefix(key, prefix string) bool {
	return strings.HasPrefix(key, prefix+"/")
}
