package media

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid media key")

// Store persists confirmation evidence and returns where it can be fetched.
type Store interface {
	// Save writes data under key. The extension is derived from the content.
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// objectName validates key and appends the extension detected from data.
func objectName(key string, data []byte) (name, contentType string, err error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", "", ErrInvalidKey
		}
	}

	mt := mimetype.Detect(data)
	return key + mt.Extension(), mt.String(), nil
}
