package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrTooLarge = errors.New("file is too large")

// Upload is a file received from a form, fully buffered.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Size() int64 {
	return int64(len(u.Data))
}

// FormFile reads the multipart field from an already parsed request. It
// returns nil without error when the field is absent.
func FormFile(r *http.Request, field string, maxBytes int64) (*Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &Upload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// Store puts the upload under a fresh key below prefix and returns the key.
func Store(ctx context.Context, s Storage, prefix string, u *Upload) (string, error) {
	key := NewKey(prefix, u.Filename, u.ContentType)
	if err := s.Put(ctx, key, bytes.NewReader(u.Data), u.Size(), u.ContentType); err != nil {
		return "", err
	}
	return key, nil
}
