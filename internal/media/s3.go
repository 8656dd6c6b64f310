package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/rs/zerolog"
)

var ErrUnsupportedType = errors.New("media: unsupported image type")

// Uploader stores an image and returns the reference saved on the vehicle card.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, S3 compatible storage
	// PublicBaseURL prefixes returned references; defaults to the bucket's virtual host URL
	PublicBaseURL string
}

type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	baseURL string
	prefix  string
	logger  zerolog.Logger
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

func NewS3Uploader(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return newS3Uploader(client, cfg.Bucket, base, logger), nil
}

func newS3Uploader(client putObjectAPI, bucket, baseURL string, logger zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  "vehicles",
		logger:  logger.With().Str("component", "s3_uploader").Logger(),
	}
}

func (u *S3Uploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		metrics.RecordUpload(ErrUnsupportedType)
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	key := path.Join(u.prefix, uuid.NewString()+ext)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": path.Base(filename)},
	})
	metrics.RecordUpload(err)
	if err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("failed to upload image")
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	u.logger.Info().Str("key", key).Msg("image uploaded")
	return u.baseURL + "/" + key, nil
}
