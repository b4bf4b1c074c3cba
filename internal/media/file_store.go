package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// fileStore implements Store on the local file system.
type fileStore struct {
	dir     string
	urlBase string
	logger  zerolog.Logger
}

// NewFileStore creates a store rooted at dir. Saved files are reported as
// urlBase joined with their relative path.
func NewFileStore(dir, urlBase string, logger zerolog.Logger) Store {
	return &fileStore{
		dir:     dir,
		urlBase: urlBase,
		logger:  logger.With().Str("component", "file-media-store").Logger(),
	}
}

func (s *fileStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, _, err := objectName(key, data)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", full).Msg("failed to create media directory")
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	if err := os.WriteFile(full, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", full).Msg("failed to write media file")
		return "", fmt.Errorf("failed to write media file %s: %w", full, err)
	}

	s.logger.Debug().Str("path", full).Int("bytes", len(data)).Msg("media saved")

	return s.urlBase + "/" + name, nil
}
