package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectPutter is the part of the S3 client the store uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store implements Store on an S3 bucket.
type s3Store struct {
	client objectPutter
	bucket string
	region string
	prefix string
	logger zerolog.Logger
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "s3-media-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 media store initialised")

	return newS3Store(s3.NewFromConfig(cfg), bucket, region, prefix, logger), nil
}

func newS3Store(client objectPutter, bucket, region, prefix string, logger zerolog.Logger) *s3Store {
	return &s3Store{
		client: client,
		bucket: bucket,
		region: region,
		prefix: prefix,
		logger: logger,
	}
}

func (s *s3Store) Save(ctx context.Context, key string, data []byte) (string, error) {
	name, contentType, err := objectName(key, data)
	if err != nil {
		return "", err
	}
	objectKey := s.prefix + name

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", objectKey).
		Int("bytes", len(data)).
		Msg("media uploaded to S3")

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey), nil
}

// fallbackStore writes to S3 and falls back to the local store when S3 fails.
type fallbackStore struct {
	primary Store
	local   Store
	logger  zerolog.Logger
}

// NewFallbackStore creates a store that tries primary first. If primary is
// nil only local is used.
func NewFallbackStore(primary, local Store, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary: primary,
		local:   local,
		logger:  logger.With().Str("component", "fallback-media-store").Logger(),
	}
}

func (s *fallbackStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if s.primary != nil {
		location, err := s.primary.Save(ctx, key, data)
		if err == nil {
			return location, nil
		}
		if errors.Is(err, ErrInvalidKey) {
			return "", err
		}

		s.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("failed to save to S3, falling back to local file system")
	}

	return s.local.Save(ctx, key, data)
}
