package images

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
)

// ObjectPutter is the subset of the S3 client used for mirroring
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Config holds CloudFlare R2 settings
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	Prefix    string
}

// R2Mirror copies remote images into an R2 bucket so articles do not hotlink
type R2Mirror struct {
	s3        ObjectPutter
	http      *resty.Client
	bucket    string
	publicURL string
	prefix    string
	maxBytes  int
}

// NewR2Client builds an S3 client pointed at the R2 endpoint
func NewR2Client(ctx context.Context, cfg R2Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	}), nil
}

// NewR2Mirror creates a mirror writing through client
func NewR2Mirror(client ObjectPutter, cfg R2Config) *R2Mirror {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "images"
	}
	return &R2Mirror{
		s3:        client,
		http:      resty.New().SetTimeout(30 * time.Second),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		prefix:    prefix,
		maxBytes:  10 << 20,
	}
}

// Mirror downloads src and stores it under id, returning the public URL.
// Objects are keyed by id so repeated calls overwrite rather than duplicate.
func (m *R2Mirror) Mirror(ctx context.Context, id, src string) (string, error) {
	resp, err := m.http.R().SetContext(ctx).Get(src)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("download image: unexpected status code %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) > m.maxBytes {
		return "", fmt.Errorf("image too large: %d bytes", len(body))
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	key := path.Join(m.prefix, id+extensionFor(contentType))

	_, err = m.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return m.publicURL + "/" + key, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
